package question

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func fileExchange(t *testing.T, content string) *Exchange {
	t.Helper()

	path := filepath.Join(t.TempDir(), "upload.pdf")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	ex := testExchange()
	ex.Download = func(ctx context.Context, fileID string, maxSize int64) (string, error) {
		return path, nil
	}
	return ex
}

func TestFileRequiresDocument(t *testing.T) {
	q := NewFile("Upload a file")
	q.applyDefaults(testDefaults())

	_, err := q.Response(context.Background(), testExchange(), &Answer{Text: "no file here"})
	if got := rejectionText(t, err); got != "Please upload a valid file." {
		t.Errorf("Expected default rejection text, got %q", got)
	}
}

func TestFileDownloadsToPath(t *testing.T) {
	q := NewFile("Upload a file")
	q.applyDefaults(testDefaults())

	ex := fileExchange(t, "content")
	value, err := q.Validate(context.Background(), ex, &Attachment{
		FileID:   "f1",
		FileName: "report.pdf",
		FileSize: 7,
	})
	if err != nil {
		t.Fatalf("Failed to validate: %v", err)
	}
	path, ok := value.(string)
	if !ok {
		t.Fatalf("Expected a path string, got %T", value)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected downloaded file at %s: %v", path, err)
	}
}

func TestFileAsBytesReturnsContent(t *testing.T) {
	q := NewFile("Upload a file")
	q.AsBytes = true
	q.applyDefaults(testDefaults())

	ex := fileExchange(t, "content")
	value, err := q.Validate(context.Background(), ex, &Attachment{FileID: "f1", FileSize: 7})
	if err != nil {
		t.Fatalf("Failed to validate: %v", err)
	}
	data, ok := value.([]byte)
	if !ok {
		t.Fatalf("Expected bytes, got %T", value)
	}
	if string(data) != "content" {
		t.Errorf("Expected file content, got %q", data)
	}
}

func TestFileRejectsOversizedAttachments(t *testing.T) {
	q := NewFile("Upload a file")
	q.MaxSize = 10
	q.applyDefaults(testDefaults())

	_, err := q.Validate(context.Background(), testExchange(), &Attachment{FileID: "f1", FileSize: 11})
	if got := rejectionText(t, err); got != "Please upload a valid file." {
		t.Errorf("Expected default rejection text, got %q", got)
	}
}

func TestFileRejectsDisallowedExtension(t *testing.T) {
	q := NewFile("Upload a file")
	q.AllowedExtensions = []string{"pdf"}
	q.applyDefaults(testDefaults())

	_, err := q.Validate(context.Background(), testExchange(), &Attachment{
		FileID:   "f1",
		FileName: "notes.txt",
		FileSize: 5,
	})
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("Expected a validation error, got %v", err)
	}
}

func TestFileAcceptsAllowedExtensionCaseInsensitively(t *testing.T) {
	q := NewFile("Upload a file")
	q.AllowedExtensions = []string{"pdf"}
	q.applyDefaults(testDefaults())

	ex := fileExchange(t, "content")
	if _, err := q.Validate(context.Background(), ex, &Attachment{
		FileID:   "f1",
		FileName: "report.PDF",
		FileSize: 5,
	}); err != nil {
		t.Fatalf("Expected PDF extension to be accepted: %v", err)
	}
}

func TestFileRejectsDisallowedMIMEType(t *testing.T) {
	q := NewFile("Upload a file")
	q.AllowedMIMETypes = []string{"application/pdf"}
	q.applyDefaults(testDefaults())

	_, err := q.Validate(context.Background(), testExchange(), &Attachment{
		FileID:   "f1",
		MIMEType: "text/plain",
		FileSize: 5,
	})
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("Expected a validation error, got %v", err)
	}
}

func TestFileCheckConfigRejectsDottedExtensions(t *testing.T) {
	q := NewFile("Upload a file")
	q.AllowedExtensions = []string{".pdf"}

	err := q.checkConfig()
	if err == nil {
		t.Fatal("Expected config error, got nil")
	}
	want := `file extensions must not carry a dot, use "pdf" instead of ".pdf"`
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestImageReadsPhotoAttachment(t *testing.T) {
	q := NewImage("Upload a picture")
	q.applyDefaults(testDefaults())

	response, err := q.Response(context.Background(), testExchange(), &Answer{
		Photo: &Attachment{FileID: "p1", FileSize: 5},
	})
	if err != nil {
		t.Fatalf("Failed to extract response: %v", err)
	}
	att, ok := response.(*Attachment)
	if !ok || att.FileID != "p1" {
		t.Errorf("Expected photo attachment, got %v", response)
	}

	_, err = q.Response(context.Background(), testExchange(), &Answer{Text: "no photo"})
	if got := rejectionText(t, err); got != "Please upload a valid image." {
		t.Errorf("Expected default rejection text, got %q", got)
	}
}
