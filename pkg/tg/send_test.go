package tg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"text/template"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"toribot/pkg/media"
	"toribot/pkg/question"
	"toribot/pkg/state"
)

// fakeAPI records every outbound call instead of hitting Telegram. It is
// safe for concurrent use, like the real client.
type fakeAPI struct {
	mu     sync.Mutex
	sent   []tgbotapi.Chattable
	groups []tgbotapi.MediaGroupConfig
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) SendMediaGroup(cfg tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, cfg)
	return nil, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return "http://localhost/file/" + fileID, nil
}

func testSender(t *testing.T) (*Sender, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	pages := NewPageStore(testLogger(t), state.NewMemoryStore(), 24*time.Hour)
	return NewSender(testLogger(t), api, pages, 5), api
}

func mediaFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("content"), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func TestSendNilSendsNothing(t *testing.T) {
	s, api := testSender(t)
	if err := s.Send(context.Background(), 1, nil); err != nil {
		t.Fatalf("Failed to send nil: %v", err)
	}
	if len(api.sent) != 0 {
		t.Errorf("Expected nothing to be sent, got %d messages", len(api.sent))
	}
}

func TestSendStringEscapesMarkdown(t *testing.T) {
	s, api := testSender(t)
	if err := s.Send(context.Background(), 1, "2 + 2 = 4. Nice!"); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(api.sent))
	}

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("Expected a MessageConfig, got %T", api.sent[0])
	}
	if msg.ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Errorf("Expected MarkdownV2 parse mode, got %q", msg.ParseMode)
	}
	if !strings.Contains(msg.Text, `\+`) || !strings.Contains(msg.Text, `\!`) {
		t.Errorf("Expected reserved characters to be escaped, got %q", msg.Text)
	}
}

func TestSendEmptyStringSendsNothing(t *testing.T) {
	s, api := testSender(t)
	if err := s.Send(context.Background(), 1, ""); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	if len(api.sent) != 0 {
		t.Errorf("Expected nothing to be sent, got %d messages", len(api.sent))
	}
}

func TestSendUnsupportedType(t *testing.T) {
	s, _ := testSender(t)
	err := s.Send(context.Background(), 1, struct{ X int }{1})
	if err == nil {
		t.Fatal("Expected error for unsupported type, got nil")
	}
	if !strings.Contains(err.Error(), "cannot be sent") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestSendDocument(t *testing.T) {
	s, api := testSender(t)
	path := mediaFixture(t, "report.pdf")

	err := s.Send(context.Background(), 1, media.Document{File: media.File{Path: path, Caption: "The report"}})
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	doc, ok := api.sent[0].(tgbotapi.DocumentConfig)
	if !ok {
		t.Fatalf("Expected a DocumentConfig, got %T", api.sent[0])
	}
	if doc.Caption != "The report" {
		t.Errorf("Expected caption, got %q", doc.Caption)
	}
	if doc.ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Errorf("Expected MarkdownV2 caption mode, got %q", doc.ParseMode)
	}
}

func TestSendMissingFileFails(t *testing.T) {
	s, api := testSender(t)

	err := s.Send(context.Background(), 1, &media.Photo{File: media.File{Path: "/no/such/file.png"}})
	if err == nil {
		t.Fatal("Expected error for missing file, got nil")
	}
	if len(api.sent) != 0 {
		t.Errorf("Expected nothing to be sent, got %d messages", len(api.sent))
	}
}

func TestSendLocation(t *testing.T) {
	s, api := testSender(t)

	loc, err := media.NewLocation(40.4, -3.7, 20)
	if err != nil {
		t.Fatalf("Failed to build location: %v", err)
	}
	if err := s.Send(context.Background(), 1, loc); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	cfg, ok := api.sent[0].(tgbotapi.LocationConfig)
	if !ok {
		t.Fatalf("Expected a LocationConfig, got %T", api.sent[0])
	}
	if cfg.Latitude != 40.4 || cfg.Longitude != -3.7 {
		t.Errorf("Unexpected coordinates: %v, %v", cfg.Latitude, cfg.Longitude)
	}
	if cfg.HorizontalAccuracy != 20 {
		t.Errorf("Expected accuracy 20, got %v", cfg.HorizontalAccuracy)
	}
}

func TestSendCoordinateSlice(t *testing.T) {
	s, api := testSender(t)

	if err := s.Send(context.Background(), 1, []float64{40.4, -3.7}); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	if _, ok := api.sent[0].(tgbotapi.LocationConfig); !ok {
		t.Fatalf("Expected a LocationConfig, got %T", api.sent[0])
	}

	if err := s.Send(context.Background(), 1, []float64{40.4}); err == nil {
		t.Error("Expected error for a one-element coordinate slice")
	}
	if err := s.Send(context.Background(), 1, []float64{91, 0}); err == nil {
		t.Error("Expected error for out-of-range latitude")
	}
}

func TestSendPages(t *testing.T) {
	s, api := testSender(t)

	tmpl, err := template.New("page").Parse("{{range .Data}}{{.}}{{end}}")
	if err != nil {
		t.Fatalf("Failed to parse template: %v", err)
	}

	err = s.Send(context.Background(), 1, &media.Pages{
		Data:         []any{"a", "b", "c"},
		PageTemplate: tmpl,
		ItemsPerPage: 1,
	})
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("Expected a MessageConfig, got %T", api.sent[0])
	}
	if msg.Text != "a" {
		t.Errorf("Expected the first page, got %q", msg.Text)
	}
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("Expected a navigation keyboard, got %T", msg.ReplyMarkup)
	}
	if len(markup.InlineKeyboard[0]) != 2 {
		t.Errorf("Expected 2 buttons on the first page, got %d", len(markup.InlineKeyboard[0]))
	}
}

func TestSendListFoldsConsecutiveMedia(t *testing.T) {
	s, api := testSender(t)

	photo1 := media.Photo{File: media.File{Path: mediaFixture(t, "one.png")}}
	photo2 := media.Photo{File: media.File{Path: mediaFixture(t, "two.png")}}
	video := media.Video{File: media.File{Path: mediaFixture(t, "clip.mp4")}}
	doc := media.Document{File: media.File{Path: mediaFixture(t, "report.pdf")}}

	err := s.Send(context.Background(), 1, []any{
		"intro",
		photo1, photo2, video,
		doc,
		"outro",
	})
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	// intro, the lone document and outro go out individually; the photo and
	// video run folds into one media group.
	if len(api.sent) != 3 {
		t.Errorf("Expected 3 individual messages, got %d", len(api.sent))
	}
	if len(api.groups) != 1 {
		t.Fatalf("Expected 1 media group, got %d", len(api.groups))
	}
	if len(api.groups[0].Media) != 3 {
		t.Errorf("Expected 3 items in the media group, got %d", len(api.groups[0].Media))
	}
}

func TestSendListKeepsSingletonsIndividual(t *testing.T) {
	s, api := testSender(t)

	photo := media.Photo{File: media.File{Path: mediaFixture(t, "one.png")}}
	doc := media.Document{File: media.File{Path: mediaFixture(t, "report.pdf")}}

	if err := s.Send(context.Background(), 1, []any{photo, doc}); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	if len(api.groups) != 0 {
		t.Errorf("Expected no media groups for mixed singletons, got %d", len(api.groups))
	}
	if len(api.sent) != 2 {
		t.Errorf("Expected 2 individual messages, got %d", len(api.sent))
	}
}

func TestSendListDoesNotGroupAcrossKinds(t *testing.T) {
	s, api := testSender(t)

	doc1 := media.Document{File: media.File{Path: mediaFixture(t, "a.pdf")}}
	doc2 := media.Document{File: media.File{Path: mediaFixture(t, "b.pdf")}}
	photo1 := media.Photo{File: media.File{Path: mediaFixture(t, "a.png")}}
	photo2 := media.Photo{File: media.File{Path: mediaFixture(t, "b.png")}}

	if err := s.Send(context.Background(), 1, []any{doc1, doc2, photo1, photo2}); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	if len(api.groups) != 2 {
		t.Errorf("Expected separate document and photo groups, got %d", len(api.groups))
	}
}

func TestSendPrompt(t *testing.T) {
	s, api := testSender(t)

	s.SendPrompt(context.Background(), 1, &question.Prompt{
		Text:     "Pick one",
		Keyboard: []string{"red", "green"},
	})

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("Expected a MessageConfig, got %T", api.sent[0])
	}
	keyboard, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok {
		t.Fatalf("Expected a reply keyboard, got %T", msg.ReplyMarkup)
	}
	if !keyboard.OneTimeKeyboard || !keyboard.ResizeKeyboard {
		t.Error("Expected a one-time resized keyboard")
	}
	if len(keyboard.Keyboard) != 2 {
		t.Errorf("Expected 2 keyboard rows, got %d", len(keyboard.Keyboard))
	}

	s.SendPrompt(context.Background(), 1, &question.Prompt{
		Text:   "Pick one",
		Inline: []question.InlineButton{{Label: "red", Data: "color_red"}},
	})

	msg = api.sent[1].(tgbotapi.MessageConfig)
	inline, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("Expected an inline keyboard, got %T", msg.ReplyMarkup)
	}
	if inline.InlineKeyboard[0][0].Text != "red" {
		t.Errorf("Unexpected inline button: %+v", inline.InlineKeyboard[0][0])
	}
}

func TestEscape(t *testing.T) {
	escaped := escape("a_b*c[d]")
	if escaped != `a\_b\*c\[d\]` {
		t.Errorf("Unexpected escaping: %q", escaped)
	}
}

func TestUploadFileWithoutOverrideUsesPath(t *testing.T) {
	path := mediaFixture(t, "report.pdf")

	upload, err := uploadFile(media.File{Path: path})
	if err != nil {
		t.Fatalf("Failed to build upload: %v", err)
	}
	if _, ok := upload.(tgbotapi.FilePath); !ok {
		t.Errorf("Expected a FilePath upload, got %T", upload)
	}
}

func TestUploadFileOverrideBuffersContent(t *testing.T) {
	path := mediaFixture(t, "data.bin")

	// A buffered upload leaves no open handle behind for the API client
	// to forget to close.
	upload, err := uploadFile(media.File{Path: path, Filename: "renamed.bin"})
	if err != nil {
		t.Fatalf("Failed to build upload: %v", err)
	}
	fb, ok := upload.(tgbotapi.FileBytes)
	if !ok {
		t.Fatalf("Expected a FileBytes upload, got %T", upload)
	}
	if fb.Name != "renamed.bin" {
		t.Errorf("Expected the overridden name, got %q", fb.Name)
	}
	if string(fb.Bytes) != "content" {
		t.Errorf("Expected the file content, got %q", fb.Bytes)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("Expected no open handle on the source file: %v", err)
	}
}
