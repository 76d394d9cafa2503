package tg

import (
	"context"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"toribot/pkg/logger"
	"toribot/pkg/media"
	"toribot/pkg/question"
)

// API is the slice of the Telegram client the sender uses. *tgbotapi.BotAPI
// satisfies it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMediaGroup(cfg tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Sender normalizes action return values into outbound Telegram operations.
// File and type validation errors propagate to the caller; transport-level
// send failures are logged and swallowed so one failed message never takes
// down the rest of a dispatch.
type Sender struct {
	log          *logger.Logger
	api          API
	pages        *PageStore
	itemsPerPage int
}

// NewSender creates a sender over the given API client.
func NewSender(log *logger.Logger, api API, pages *PageStore, itemsPerPage int) *Sender {
	return &Sender{
		log:          log,
		api:          api,
		pages:        pages,
		itemsPerPage: itemsPerPage,
	}
}

// Send converts value into one or more outbound messages for the chat.
// Supported shapes: nil (nothing sent), string, media.Path, the media
// wrapper types, media.Location, a two-element coordinate slice,
// *media.Pages, and a list mixing any of these.
func (s *Sender) Send(ctx context.Context, chatID int64, value any) error {
	switch v := value.(type) {
	case nil:
		return nil

	case string:
		if v == "" {
			return nil
		}
		msg := tgbotapi.NewMessage(chatID, escape(v))
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		s.deliver(chatID, msg, "text")
		return nil

	case media.Path:
		detected, err := media.Detect(string(v))
		if err != nil {
			return err
		}
		return s.Send(ctx, chatID, detected)

	case media.Location:
		return s.sendLocation(chatID, v)
	case *media.Location:
		return s.sendLocation(chatID, *v)

	case []float64:
		if len(v) != 2 {
			return fmt.Errorf("a coordinate slice must have exactly two elements, got %d", len(v))
		}
		loc, err := media.NewLocation(v[0], v[1], 0)
		if err != nil {
			return err
		}
		return s.sendLocation(chatID, loc)

	case *media.Pages:
		return s.sendPages(ctx, chatID, v)

	case []any:
		return s.sendList(ctx, chatID, v)

	default:
		if m, ok := asMedia(value); ok {
			return s.sendMedia(chatID, m)
		}
		return fmt.Errorf("value of type %T cannot be sent", value)
	}
}

// asMedia normalizes value and pointer forms of the media wrappers to
// pointers.
func asMedia(value any) (any, bool) {
	switch v := value.(type) {
	case *media.Document, *media.Photo, *media.Video, *media.Audio, *media.Voice:
		return v, true
	case media.Document:
		return &v, true
	case media.Photo:
		return &v, true
	case media.Video:
		return &v, true
	case media.Audio:
		return &v, true
	case media.Voice:
		return &v, true
	default:
		return nil, false
	}
}

// sendMedia validates and sends one file-backed message.
func (s *Sender) sendMedia(chatID int64, m any) error {
	var (
		file  media.File
		limit int64
		kind  string
		cfg   tgbotapi.Chattable
	)

	switch v := m.(type) {
	case *media.Document:
		file, limit, kind = v.File, v.SizeLimit(), "document"
	case *media.Photo:
		file, limit, kind = v.File, v.SizeLimit(), "photo"
	case *media.Video:
		file, limit, kind = v.File, v.SizeLimit(), "video"
	case *media.Audio:
		file, limit, kind = v.File, v.SizeLimit(), "audio"
	case *media.Voice:
		file, limit, kind = v.File, v.SizeLimit(), "voice"
	default:
		return fmt.Errorf("value of type %T cannot be sent", m)
	}

	if err := file.Check(limit); err != nil {
		return err
	}

	upload, err := uploadFile(file)
	if err != nil {
		return err
	}

	switch v := m.(type) {
	case *media.Document:
		c := tgbotapi.NewDocument(chatID, upload)
		c.Caption, c.ParseMode = mediaCaption(file)
		cfg = c
	case *media.Photo:
		c := tgbotapi.NewPhoto(chatID, upload)
		c.Caption, c.ParseMode = mediaCaption(file)
		cfg = c
	case *media.Video:
		c := tgbotapi.NewVideo(chatID, upload)
		c.Caption, c.ParseMode = mediaCaption(file)
		cfg = c
	case *media.Audio:
		c := tgbotapi.NewAudio(chatID, upload)
		c.Caption, c.ParseMode = mediaCaption(file)
		c.Performer = v.Performer
		c.Title = v.Title
		cfg = c
	case *media.Voice:
		c := tgbotapi.NewVoice(chatID, upload)
		c.Caption, c.ParseMode = mediaCaption(file)
		cfg = c
	}

	s.deliver(chatID, cfg, kind)
	return nil
}

// uploadFile builds the upload payload, honoring a filename override. The
// override path buffers the file because the API client never closes readers
// handed to it.
func uploadFile(f media.File) (tgbotapi.RequestFileData, error) {
	if f.Filename == "" {
		return tgbotapi.FilePath(f.Path), nil
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("file %s is not readable", f.Path)
	}
	return tgbotapi.FileBytes{Name: f.Filename, Bytes: data}, nil
}

func mediaCaption(f media.File) (string, string) {
	if f.Caption == "" {
		return "", ""
	}
	return escape(f.Caption), tgbotapi.ModeMarkdownV2
}

func (s *Sender) sendLocation(chatID int64, loc media.Location) error {
	cfg := tgbotapi.NewLocation(chatID, loc.Latitude, loc.Longitude)
	cfg.HorizontalAccuracy = loc.HorizontalAccuracy
	s.deliver(chatID, cfg, "location")
	return nil
}

// sendPages renders the page sequence, persists it and sends the first page
// with the navigation keyboard.
func (s *Sender) sendPages(ctx context.Context, chatID int64, p *media.Pages) error {
	rendered, err := p.Render(s.itemsPerPage)
	if err != nil {
		return err
	}
	pages := make([]string, len(rendered))
	for i, page := range rendered {
		pages[i] = escape(page)
	}

	id, err := s.pages.Save(ctx, pages)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, pages[0])
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if markup := paginatorKeyboard(id, 1, len(pages)); markup != nil {
		msg.ReplyMarkup = *markup
	}
	s.deliver(chatID, msg, "pages")
	return nil
}

// mediaGroupMax is Telegram's attachment limit per media group.
const mediaGroupMax = 10

// groupKind classifies a list element for media grouping. Photos and videos
// group together; documents and audio each group only among themselves.
func groupKind(v any) string {
	m, ok := asMedia(v)
	if !ok {
		return ""
	}
	switch m.(type) {
	case *media.Photo, *media.Video:
		return "visual"
	case *media.Document:
		return "document"
	case *media.Audio:
		return "audio"
	default:
		return ""
	}
}

// sendList sends each element in order, folding consecutive runs of
// group-compatible media into Telegram media groups.
func (s *Sender) sendList(ctx context.Context, chatID int64, items []any) error {
	for i := 0; i < len(items); {
		kind := groupKind(items[i])
		if kind == "" {
			if err := s.Send(ctx, chatID, items[i]); err != nil {
				return err
			}
			i++
			continue
		}

		run := i + 1
		for run < len(items) && groupKind(items[run]) == kind {
			run++
		}

		if run-i < 2 {
			if err := s.Send(ctx, chatID, items[i]); err != nil {
				return err
			}
			i = run
			continue
		}

		for start := i; start < run; start += mediaGroupMax {
			end := start + mediaGroupMax
			if end > run {
				end = run
			}
			if end-start < 2 {
				if err := s.Send(ctx, chatID, items[start]); err != nil {
					return err
				}
				continue
			}
			if err := s.sendMediaGroup(chatID, items[start:end]); err != nil {
				return err
			}
		}
		i = run
	}
	return nil
}

// sendMediaGroup validates each element and sends them as one grouped
// message.
func (s *Sender) sendMediaGroup(chatID int64, items []any) error {
	group := make([]interface{}, 0, len(items))
	for _, item := range items {
		m, _ := asMedia(item)
		input, err := inputMedia(m)
		if err != nil {
			return err
		}
		group = append(group, input)
	}

	cfg := tgbotapi.NewMediaGroup(chatID, group)
	if _, err := s.api.SendMediaGroup(cfg); err != nil {
		s.log.Error("Failed to send media group",
			zap.Int64("chat_id", chatID), zap.Int("size", len(items)), zap.Error(err))
	}
	return nil
}

// inputMedia builds the media-group entry for one wrapper.
func inputMedia(m any) (interface{}, error) {
	build := func(f media.File, limit int64, wrap func(tgbotapi.RequestFileData) interface{}) (interface{}, error) {
		if err := f.Check(limit); err != nil {
			return nil, err
		}
		upload, err := uploadFile(f)
		if err != nil {
			return nil, err
		}
		return wrap(upload), nil
	}

	switch v := m.(type) {
	case *media.Photo:
		return build(v.File, v.SizeLimit(), func(u tgbotapi.RequestFileData) interface{} {
			c := tgbotapi.NewInputMediaPhoto(u)
			c.Caption, c.ParseMode = mediaCaption(v.File)
			return c
		})
	case *media.Video:
		return build(v.File, v.SizeLimit(), func(u tgbotapi.RequestFileData) interface{} {
			c := tgbotapi.NewInputMediaVideo(u)
			c.Caption, c.ParseMode = mediaCaption(v.File)
			return c
		})
	case *media.Document:
		return build(v.File, v.SizeLimit(), func(u tgbotapi.RequestFileData) interface{} {
			c := tgbotapi.NewInputMediaDocument(u)
			c.Caption, c.ParseMode = mediaCaption(v.File)
			return c
		})
	case *media.Audio:
		return build(v.File, v.SizeLimit(), func(u tgbotapi.RequestFileData) interface{} {
			c := tgbotapi.NewInputMediaAudio(u)
			c.Caption, c.ParseMode = mediaCaption(v.File)
			c.Performer = v.Performer
			c.Title = v.Title
			return c
		})
	default:
		return nil, fmt.Errorf("value of type %T cannot be grouped", m)
	}
}

// SendText sends plain text without markdown rendering. Used for question
// error texts and built-in replies.
func (s *Sender) SendText(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}
	s.deliver(chatID, tgbotapi.NewMessage(chatID, text), "text")
}

// SendPrompt sends a question prompt with its keyboard, if any.
func (s *Sender) SendPrompt(ctx context.Context, chatID int64, p *question.Prompt) {
	msg := tgbotapi.NewMessage(chatID, p.Text)

	switch {
	case len(p.Keyboard) > 0:
		rows := make([][]tgbotapi.KeyboardButton, len(p.Keyboard))
		for i, label := range p.Keyboard {
			rows[i] = tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(label))
		}
		keyboard := tgbotapi.NewOneTimeReplyKeyboard(rows...)
		keyboard.ResizeKeyboard = true
		msg.ReplyMarkup = keyboard
	case len(p.Inline) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, len(p.Inline))
		for i, btn := range p.Inline {
			rows[i] = tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	s.deliver(chatID, msg, "prompt")
}

// deliver performs the network call. Transport failures are logged, not
// propagated.
func (s *Sender) deliver(chatID int64, cfg tgbotapi.Chattable, kind string) {
	if _, err := s.api.Send(cfg); err != nil {
		s.log.Error("Failed to send",
			zap.Int64("chat_id", chatID), zap.String("kind", kind), zap.Error(err))
	}
}
