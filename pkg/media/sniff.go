package media

import (
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Detect inspects a file and wraps it in the media kind matching its
// content: images become Photo, mp4 video becomes Video, common audio
// formats become Audio, everything else becomes a generic Document.
func Detect(path string) (any, error) {
	f := File{Path: path}
	if err := f.Check(FileSizeLimit); err != nil {
		return nil, err
	}

	mimetype, err := sniffContentType(path)
	if err != nil {
		return nil, fmt.Errorf("detecting media type: %w", err)
	}

	switch {
	case strings.HasPrefix(mimetype, "image/"):
		return &Photo{File: f}, nil
	case mimetype == "video/mp4":
		return &Video{File: f}, nil
	case mimetype == "audio/mpeg" || mimetype == "audio/mp4" || mimetype == "audio/x-m4a":
		return &Audio{File: f}, nil
	default:
		return &Document{File: f}, nil
	}
}

// sniffContentType reads the first 512 bytes of the file and detects its
// MIME type from content.
func sniffContentType(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	buf := make([]byte, 512)
	n, err := fh.Read(buf)
	if err != nil && n == 0 {
		return "", err
	}

	mimetype := http.DetectContentType(buf[:n])
	// DetectContentType appends charset parameters to text types.
	if i := strings.Index(mimetype, ";"); i >= 0 {
		mimetype = mimetype[:i]
	}
	return mimetype, nil
}
