// Package media defines the outgoing content types an action can return:
// text, files of various kinds, locations and paginated messages. The tg
// package normalizes these into protocol send operations.
package media

import (
	"fmt"
	"os"
	"path/filepath"
)

// Telegram transport limits, in bytes unless noted.
const (
	// FileSizeLimit is the upload limit for documents, video and audio.
	FileSizeLimit = 50 * 1024 * 1024
	// PhotoSizeLimit is the upload limit for photos.
	PhotoSizeLimit = 10 * 1024 * 1024
	// VoiceSizeLimit is the upload limit for voice notes.
	VoiceSizeLimit = 1 * 1024 * 1024
	// DownloadSizeLimit is the largest file the bot will download.
	DownloadSizeLimit = 20 * 1024 * 1024
	// MaxHorizontalAccuracy is the largest accepted location accuracy, meters.
	MaxHorizontalAccuracy = 1500.0
)

// Path marks a string as a filesystem path whose media kind should be
// detected by content rather than declared by the developer.
type Path string

// File is the common part of all file-backed media.
type File struct {
	// Path is the file to send.
	Path string
	// Caption is an optional caption, rendered as markdown.
	Caption string
	// Filename overrides the name shown to the recipient.
	Filename string
}

// Name returns the filename to present, defaulting to the path's base name.
func (f File) Name() string {
	if f.Filename != "" {
		return f.Filename
	}
	return filepath.Base(f.Path)
}

// Check validates that the file exists, is a regular file, is readable and
// does not exceed limit.
func (f File) Check(limit int64) error {
	info, err := os.Stat(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file %s does not exist", f.Path)
		}
		return fmt.Errorf("stat %s: %w", f.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("path %s is not a file", f.Path)
	}

	fh, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("file %s is not readable", f.Path)
	}
	fh.Close()

	if info.Size() > limit {
		return fmt.Errorf("file %s exceeds the size limit of %d bytes", f.Path, limit)
	}
	return nil
}

// Document is a generic file attachment.
type Document struct {
	File
}

// Photo is an image attachment.
type Photo struct {
	File
}

// Video is a video attachment.
type Video struct {
	File
}

// Audio is an audio attachment with optional track metadata.
type Audio struct {
	File
	Performer string
	Title     string
}

// Voice is a voice-note attachment. It has a smaller size limit than Audio.
type Voice struct {
	File
}

// SizeLimit returns the upload limit for the media kind.
func (Document) SizeLimit() int64 { return FileSizeLimit }

// SizeLimit returns the upload limit for the media kind.
func (Photo) SizeLimit() int64 { return PhotoSizeLimit }

// SizeLimit returns the upload limit for the media kind.
func (Video) SizeLimit() int64 { return FileSizeLimit }

// SizeLimit returns the upload limit for the media kind.
func (Audio) SizeLimit() int64 { return FileSizeLimit }

// SizeLimit returns the upload limit for the media kind.
func (Voice) SizeLimit() int64 { return VoiceSizeLimit }

// Location is a geographic point.
type Location struct {
	Latitude           float64
	Longitude          float64
	HorizontalAccuracy float64
}

// NewLocation builds a validated location. Latitude must be in [-90, 90]
// and longitude in [-180, 180].
func NewLocation(latitude, longitude, horizontalAccuracy float64) (Location, error) {
	if latitude < -90 || latitude > 90 {
		return Location{}, fmt.Errorf("latitude must be between -90 and 90, got %v", latitude)
	}
	if longitude < -180 || longitude > 180 {
		return Location{}, fmt.Errorf("longitude must be between -180 and 180, got %v", longitude)
	}
	if horizontalAccuracy != 0 && (horizontalAccuracy < 0 || horizontalAccuracy > MaxHorizontalAccuracy) {
		return Location{}, fmt.Errorf("horizontal accuracy must be between 0 and %v, got %v",
			MaxHorizontalAccuracy, horizontalAccuracy)
	}
	return Location{
		Latitude:           latitude,
		Longitude:          longitude,
		HorizontalAccuracy: horizontalAccuracy,
	}, nil
}
