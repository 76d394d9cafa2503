package question

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"toribot/pkg/media"
)

// File asks the user to upload a file. The attachment is downloaded to a
// temporary path, which becomes the answer; set AsBytes to receive the
// content instead.
type File struct {
	base

	// MaxSize is the largest accepted attachment in bytes. Zero means the
	// transport download limit.
	MaxSize int64

	// AllowedExtensions restricts uploads by file extension, written
	// without the leading dot. Empty accepts any extension.
	AllowedExtensions []string

	// AllowedMIMETypes restricts uploads by declared MIME type. Empty
	// accepts any type.
	AllowedMIMETypes []string

	// AsBytes returns the file content instead of its local path.
	AsBytes bool
}

// NewFile creates a file question with the given prompt text.
func NewFile(text string) *File {
	return &File{base: base{Text: text}}
}

// Response extracts the attachment from the reply.
func (q *File) Response(ctx context.Context, ex *Exchange, ans *Answer) (any, error) {
	if ans.Document == nil {
		return nil, Invalid(q.ErrorText)
	}
	return ans.Document, nil
}

// Validate checks the attachment against the size, extension and MIME type
// restrictions and downloads it.
func (q *File) Validate(ctx context.Context, ex *Exchange, response any) (any, error) {
	return q.validate(response, func(response any) (any, error) {
		att, ok := response.(*Attachment)
		if !ok {
			return nil, Invalid(q.ErrorText)
		}
		if err := q.checkAttachment(att); err != nil {
			return nil, err
		}
		return q.download(ctx, ex, att)
	})
}

func (q *File) maxSize() int64 {
	if q.MaxSize > 0 {
		return q.MaxSize
	}
	return media.DownloadSizeLimit
}

func (q *File) checkAttachment(att *Attachment) error {
	if att.FileSize > q.maxSize() {
		return Invalid(q.ErrorText)
	}

	if len(q.AllowedExtensions) > 0 && att.FileName != "" {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(att.FileName), "."))
		if !containsFold(q.AllowedExtensions, ext) {
			return Invalid(q.ErrorText)
		}
	}

	if len(q.AllowedMIMETypes) > 0 && att.MIMEType != "" {
		if !containsFold(q.AllowedMIMETypes, att.MIMEType) {
			return Invalid(q.ErrorText)
		}
	}

	return nil
}

func (q *File) download(ctx context.Context, ex *Exchange, att *Attachment) (any, error) {
	if ex.Download == nil {
		return nil, fmt.Errorf("no downloader available for file questions")
	}

	path, err := ex.Download(ctx, att.FileID, q.maxSize())
	if err != nil {
		return nil, fmt.Errorf("downloading attachment: %w", err)
	}

	if q.AsBytes {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading downloaded attachment: %w", err)
		}
		return data, nil
	}
	return path, nil
}

func (q *File) applyDefaults(d Defaults) {
	if q.ErrorText == "" {
		q.ErrorText = d.FileError
	}
}

// checkConfig rejects malformed extension lists at chain build time.
func (q *File) checkConfig() error {
	for _, ext := range q.AllowedExtensions {
		if strings.HasSuffix(ext, ".") || strings.HasPrefix(ext, ".") {
			return fmt.Errorf("file extensions must not carry a dot, use %q instead of %q",
				strings.Trim(ext, "."), ext)
		}
	}
	return nil
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

// Image asks the user to upload a picture. It behaves like File but reads
// the photo attachment, which carries no filename or declared MIME type.
type Image struct {
	File
}

// NewImage creates an image question with the given prompt text.
func NewImage(text string) *Image {
	return &Image{File: File{base: base{Text: text}}}
}

// Response extracts the photo from the reply.
func (q *Image) Response(ctx context.Context, ex *Exchange, ans *Answer) (any, error) {
	if ans.Photo == nil {
		return nil, Invalid(q.ErrorText)
	}
	return ans.Photo, nil
}

func (q *Image) applyDefaults(d Defaults) {
	if q.ErrorText == "" {
		q.ErrorText = d.ImageError
	}
}
