package tg

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"toribot/pkg/logger"
	"toribot/pkg/state"
)

// pagePrefix namespaces pagination records in the state store.
const pagePrefix = "pages:"

// expiredPagesText replaces the message content when navigation reaches
// pagination state that no longer exists.
const expiredPagesText = "⚠️ This paginated message has expired."

// ErrPagesExpired reports that a pagination record is gone or past its TTL.
// Navigation degrades to the expired notice; it is never a crash.
var ErrPagesExpired = errors.New("paginated message has expired")

// pageRecord is the persisted server-side state of one paginated message.
type pageRecord struct {
	ID        string    `json:"id"`
	Pages     []string  `json:"pages"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PageStore persists rendered page sequences so a message's forward/back
// buttons keep working until the record expires. Expiry is checked lazily at
// navigation time; Sweep additionally removes dead records in the background.
type PageStore struct {
	log        *logger.Logger
	store      state.Store
	expiration time.Duration
	now        func() time.Time
}

// NewPageStore creates a page store with the given record lifetime.
func NewPageStore(log *logger.Logger, s state.Store, expiration time.Duration) *PageStore {
	return &PageStore{
		log:        log,
		store:      s,
		expiration: expiration,
		now:        time.Now,
	}
}

// Save persists a rendered page sequence under a fresh opaque id.
func (s *PageStore) Save(ctx context.Context, pages []string) (string, error) {
	if len(pages) == 0 {
		return "", fmt.Errorf("no pages to save")
	}

	now := s.now()
	record := pageRecord{
		ID:        uuid.NewString(),
		Pages:     pages,
		CreatedAt: now,
		ExpiresAt: now.Add(s.expiration),
	}
	if err := state.SetJSON(ctx, s.store, pagePrefix+record.ID, record); err != nil {
		return "", fmt.Errorf("saving pages: %w", err)
	}
	return record.ID, nil
}

// Page returns the content of one page plus the total page count. A missing
// or expired record returns ErrPagesExpired; an expired record is deleted on
// the way out. Pages are numbered from 1.
func (s *PageStore) Page(ctx context.Context, id string, page int) (string, int, error) {
	var record pageRecord
	found, err := state.GetJSON(ctx, s.store, pagePrefix+id, &record)
	if err != nil {
		return "", 0, fmt.Errorf("reading pages %q: %w", id, err)
	}
	if !found {
		return "", 0, ErrPagesExpired
	}

	if s.now().After(record.ExpiresAt) {
		if err := s.store.Delete(ctx, pagePrefix+id); err != nil {
			s.log.Warn("Failed to delete expired pages", zap.String("pages_id", id), zap.Error(err))
		}
		return "", 0, ErrPagesExpired
	}

	if page < 1 || page > len(record.Pages) {
		return "", 0, fmt.Errorf("page number %d is out of range, valid range is 1 to %d", page, len(record.Pages))
	}
	return record.Pages[page-1], len(record.Pages), nil
}

// Sweep deletes every expired pagination record.
func (s *PageStore) Sweep(ctx context.Context) error {
	keys, err := s.store.Keys(ctx, pagePrefix)
	if err != nil {
		return fmt.Errorf("listing pages: %w", err)
	}

	removed := 0
	now := s.now()
	for _, key := range keys {
		var record pageRecord
		found, err := state.GetJSON(ctx, s.store, key, &record)
		if err != nil || !found {
			continue
		}
		if now.After(record.ExpiresAt) {
			if err := s.store.Delete(ctx, key); err != nil {
				s.log.Warn("Failed to delete expired pages", zap.String("key", key), zap.Error(err))
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		s.log.Debug("Cleaned up expired pages", zap.Int("removed", removed))
	}
	return nil
}

// pageCallbackData encodes a navigation target as "<id>#<page>", pages
// numbered from 1.
func pageCallbackData(id string, page int) string {
	return id + "#" + strconv.Itoa(page)
}

// parsePageCallback decodes navigation callback data.
func parsePageCallback(data string) (id string, page int, ok bool) {
	i := strings.LastIndex(data, "#")
	if i < 0 {
		return "", 0, false
	}
	page, err := strconv.Atoi(data[i+1:])
	if err != nil {
		return "", 0, false
	}
	return data[:i], page, true
}

// paginatorKeyboard builds the forward/back navigation row for a page.
func paginatorKeyboard(id string, current, total int) *tgbotapi.InlineKeyboardMarkup {
	if total <= 1 {
		return nil
	}

	var row []tgbotapi.InlineKeyboardButton
	if current > 1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("«", pageCallbackData(id, current-1)))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData(
		fmt.Sprintf("%d/%d", current, total), pageCallbackData(id, current)))
	if current < total {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("»", pageCallbackData(id, current+1)))
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	return &markup
}
