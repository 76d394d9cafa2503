// Package tg is the Telegram transport: the long-poll client that routes
// updates to registered actions, drives question conversations, enforces
// authorization and normalizes handler results into outbound messages.
package tg

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"toribot/pkg/action"
	"toribot/pkg/config"
	"toribot/pkg/datasource"
	"toribot/pkg/logger"
	"toribot/pkg/question"
	"toribot/pkg/users"
)

// conversation is one in-flight question chain in a chat. Updates are
// dispatched on separate goroutines, so replies take mu to keep rapid
// messages from advancing the chain concurrently.
type conversation struct {
	mu     sync.Mutex
	action *action.Action
	conv   *question.Conversation
	user   *users.User
	update *tgbotapi.Update
}

// Client is the Telegram long-poll transport.
type Client struct {
	log     *logger.Logger
	cfg     *config.Config
	users   users.Store
	sources map[string]datasource.DataSource

	actions   map[string]*action.Action // by command
	byName    map[string]*action.Action
	actionSet []*action.Action

	bot    *tgbotapi.BotAPI
	sender *Sender
	pages  *PageStore

	mu            sync.Mutex
	conversations map[int64]*conversation

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewClient creates the transport over the given actions. Duplicate command
// tokens across actions are discarded with a warning; first registration
// wins.
func NewClient(
	log *logger.Logger,
	cfg *config.Config,
	userStore users.Store,
	sources map[string]datasource.DataSource,
	pages *PageStore,
	actions []*action.Action,
) (*Client, error) {
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		log:           log,
		cfg:           cfg,
		users:         userStore,
		sources:       sources,
		pages:         pages,
		actions:       make(map[string]*action.Action),
		byName:        make(map[string]*action.Action),
		actionSet:     actions,
		conversations: make(map[int64]*conversation),
		ctx:           ctx,
		cancel:        cancel,
	}

	for _, a := range actions {
		c.byName[a.Name] = a
		for _, cmd := range a.Commands {
			if prev, dup := c.actions[cmd]; dup {
				log.Warn("Command is already registered, it will be ignored",
					zap.String("command", cmd),
					zap.String("action", a.Name),
					zap.String("registered_to", prev.Name))
				continue
			}
			c.actions[cmd] = a
		}
	}

	return c, nil
}

// Start connects the bot and processes updates until the context ends.
func (c *Client) Start(ctx context.Context) error {
	c.log.Info("Starting Telegram client")

	// Keep HTTP timeout longer than long-poll timeout to avoid periodic forced reconnects.
	httpClient := &http.Client{Timeout: 75 * time.Second}
	if c.cfg.Telegram.Proxy != "" {
		proxyURL, err := url.Parse(c.cfg.Telegram.Proxy)
		if err != nil {
			return fmt.Errorf("parsing telegram proxy: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		}
		c.log.Info("Telegram proxy enabled", zap.String("proxy", proxyURL.String()))
	}

	bot, err := tgbotapi.NewBotAPIWithClient(c.cfg.Telegram.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return fmt.Errorf("creating telegram bot: %w", err)
	}

	c.bot = bot
	c.stopOnce = sync.Once{}
	c.bot.Debug = false
	c.sender = NewSender(c.log, bot, c.pages, c.cfg.Pages.ItemsPerPage)

	c.log.Info("Telegram bot connected", zap.String("username", bot.Self.UserName))
	c.syncCommandScopes(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 50

	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			go c.handleUpdate(update)

		case <-ctx.Done():
			c.log.Info("Telegram client stopping")
			c.stopReceivingUpdates()
			return nil

		case <-c.ctx.Done():
			c.log.Info("Telegram client stopping")
			c.stopReceivingUpdates()
			return nil
		}
	}
}

// Stop shuts the client down.
func (c *Client) Stop(ctx context.Context) error {
	c.log.Info("Stopping Telegram client")
	c.cancel()
	c.stopReceivingUpdates()
	return nil
}

func (c *Client) stopReceivingUpdates() {
	if c.bot == nil {
		return
	}
	c.stopOnce.Do(func() {
		c.bot.StopReceivingUpdates()
	})
}

func (c *Client) requestTimeout() time.Duration {
	if c.cfg.Telegram.TimeoutSeconds > 0 {
		return time.Duration(c.cfg.Telegram.TimeoutSeconds) * time.Second
	}
	return 60 * time.Second
}

// handleUpdate routes one update. A panic in any handler is recovered,
// logged and answered with an apology; one broken dispatch must never take
// the process down.
func (c *Client) handleUpdate(update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout())
	defer cancel()

	chatID := updateChatID(&update)

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Recovered from panic while handling update",
				zap.Any("panic", r), zap.Int64("chat_id", chatID))
			if chatID != 0 {
				c.sender.SendText(ctx, chatID, c.cfg.Responses.ErrorMessage)
			}
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, &update)
	case update.Message != nil:
		c.handleMessage(ctx, &update)
	}
}

func updateChatID(update *tgbotapi.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}

// handleMessage routes a message: commands dispatch actions, other text
// feeds the chat's active conversation, anything else gets the default
// reply.
func (c *Client) handleMessage(ctx context.Context, update *tgbotapi.Update) {
	msg := update.Message

	if msg.IsCommand() {
		// A fresh command supersedes any conversation pending in the chat.
		c.endConversation(msg.Chat.ID)
		c.dispatchCommand(ctx, update)
		return
	}

	if conv := c.activeConversation(msg.Chat.ID); conv != nil {
		c.handleConversationReply(ctx, conv, update)
		return
	}

	if c.cfg.Responses.DefaultEnabled {
		c.log.Debug("Received message but no handler matched, so sending default response",
			zap.Int64("chat_id", msg.Chat.ID))
		c.sender.SendText(ctx, msg.Chat.ID, c.cfg.Responses.DefaultMessage)
	}
}

// handleCallback routes an inline button press: pagination navigation or a
// conversation's inline choice answer.
func (c *Client) handleCallback(ctx context.Context, update *tgbotapi.Update) {
	query := update.CallbackQuery

	if id, page, ok := parsePageCallback(query.Data); ok {
		if _, err := uuid.Parse(id); err == nil {
			c.handlePageCallback(ctx, query, id, page)
			return
		}
	}

	if query.Message != nil {
		if conv := c.activeConversation(query.Message.Chat.ID); conv != nil {
			c.handleConversationReply(ctx, conv, update)
			return
		}
	}

	// Stale button from a finished conversation; just acknowledge it.
	if _, err := c.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		c.log.Debug("Failed to answer stale callback query", zap.Error(err))
	}
}

// handlePageCallback edits the paginated message to the requested page, or
// to the expired notice when the record is gone.
func (c *Client) handlePageCallback(ctx context.Context, query *tgbotapi.CallbackQuery, id string, page int) {
	if _, err := c.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		c.log.Debug("Failed to answer page callback query", zap.Error(err))
	}
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	content, total, err := c.pages.Page(ctx, id, page)
	if err != nil {
		if err != ErrPagesExpired {
			c.log.Error("Failed to load page",
				zap.String("pages_id", id), zap.Int("page", page), zap.Error(err))
			return
		}
		c.log.Debug("Query refers to non-existing pages, possibly because they expired",
			zap.String("pages_id", id))
		edit := tgbotapi.NewEditMessageText(chatID, messageID, escape(expiredPagesText))
		edit.ParseMode = tgbotapi.ModeMarkdownV2
		if _, err := c.bot.Send(edit); err != nil {
			c.log.Error("Failed to edit expired pages message", zap.Error(err))
		}
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, content)
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	edit.ReplyMarkup = paginatorKeyboard(id, page, total)
	if _, err := c.bot.Send(edit); err != nil {
		c.log.Error("Failed to edit pages message", zap.Error(err))
	}
}

// dispatchCommand authorizes and runs the action matching a command.
func (c *Client) dispatchCommand(ctx context.Context, update *tgbotapi.Update) {
	msg := update.Message
	cmd := msg.Command()

	a, ok := c.actions[cmd]
	if !ok {
		c.log.Debug("Unknown command", zap.String("command", cmd))
		if c.cfg.Responses.DefaultEnabled {
			c.sender.SendText(ctx, msg.Chat.ID, c.cfg.Responses.DefaultMessage)
		}
		return
	}

	user, err := c.users.UserByTelegramID(ctx, msg.From.ID)
	if err != nil {
		c.log.Error("Failed to look up user", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		c.sender.SendText(ctx, msg.Chat.ID, c.cfg.Responses.ErrorMessage)
		return
	}

	authorized := false
	if user != nil {
		authorized, err = c.users.IsAuthorized(ctx, user, a.Name)
		if err != nil {
			c.log.Error("Authorization check failed", zap.String("action", a.Name), zap.Error(err))
			c.sender.SendText(ctx, msg.Chat.ID, c.cfg.Responses.ErrorMessage)
			return
		}
	}
	if !authorized {
		c.log.Warn("Unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("command", cmd))
		if c.cfg.Responses.DefaultEnabled {
			c.sender.SendText(ctx, msg.Chat.ID, c.cfg.Responses.DefaultMessage)
		}
		return
	}

	if a.Chain() != nil {
		c.startConversation(ctx, a, user, update)
		return
	}

	c.runAction(ctx, a, action.Env{Update: update, User: user}, msg.Chat.ID)
}

// runAction invokes the handler and sends its result.
func (c *Client) runAction(ctx context.Context, a *action.Action, env action.Env, chatID int64) {
	result, err := a.Invoke(ctx, env)
	if err != nil {
		a.Logger().Error("Action invocation failed", zap.Error(err))
		c.sender.SendText(ctx, chatID, c.cfg.Responses.ErrorMessage)
		return
	}

	if err := c.sender.Send(ctx, chatID, result); err != nil {
		a.Logger().Error("Failed to send action result", zap.Error(err))
		c.sender.SendText(ctx, chatID, c.cfg.Responses.ErrorMessage)
	}
}

// startConversation begins an action's question chain in the chat.
func (c *Client) startConversation(ctx context.Context, a *action.Action, user *users.User, update *tgbotapi.Update) {
	chatID := update.Message.Chat.ID

	conv := &conversation{
		action: a,
		conv:   question.NewConversation(),
		user:   user,
		update: update,
	}

	ex := c.exchange(chatID, conv)
	prompt, err := a.Chain().Ask(ctx, ex, conv.conv)
	if err != nil {
		a.Logger().Error("Failed to ask question", zap.Error(err))
		c.sender.SendText(ctx, chatID, c.cfg.Responses.ErrorMessage)
		return
	}

	c.mu.Lock()
	c.conversations[chatID] = conv
	c.mu.Unlock()

	c.sender.SendPrompt(ctx, chatID, prompt)
}

// handleConversationReply feeds one reply to the chat's question chain.
// Replies to the same conversation run one at a time.
func (c *Client) handleConversationReply(ctx context.Context, conv *conversation, update *tgbotapi.Update) {
	chatID := updateChatID(update)

	conv.mu.Lock()
	defer conv.mu.Unlock()

	// The conversation may have finished or been superseded while this
	// reply waited its turn.
	if c.activeConversation(chatID) != conv {
		return
	}

	ans := answerFromUpdate(update)
	ex := c.exchange(chatID, conv)

	res, err := conv.action.Chain().Answer(ctx, ex, conv.conv, ans)
	if err != nil {
		conv.action.Logger().Error("Conversation failed", zap.Error(err))
		c.endConversation(chatID)
		c.sender.SendText(ctx, chatID, c.cfg.Responses.ErrorMessage)
		return
	}

	if res.ErrorText != "" {
		c.sender.SendText(ctx, chatID, res.ErrorText)
	}
	if res.Prompt != nil {
		c.sender.SendPrompt(ctx, chatID, res.Prompt)
	}
	if !res.Done {
		return
	}

	c.endConversation(chatID)
	c.runAction(ctx, conv.action, action.Env{
		Update:  conv.update,
		User:    conv.user,
		Answers: conv.conv.Answers,
	}, chatID)
}

func (c *Client) activeConversation(chatID int64) *conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversations[chatID]
}

func (c *Client) endConversation(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conversations, chatID)
}

// answerFromUpdate normalizes an update into a question answer.
func answerFromUpdate(update *tgbotapi.Update) *question.Answer {
	ans := &question.Answer{}

	if update.CallbackQuery != nil {
		ans.CallbackID = update.CallbackQuery.ID
		ans.CallbackData = update.CallbackQuery.Data
		return ans
	}

	msg := update.Message
	ans.Text = msg.Text

	if msg.Document != nil {
		ans.Document = &question.Attachment{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MIMEType: msg.Document.MimeType,
			FileSize: int64(msg.Document.FileSize),
		}
	}
	if len(msg.Photo) > 0 {
		// Telegram sends multiple resolutions; the last is the largest.
		largest := msg.Photo[len(msg.Photo)-1]
		ans.Photo = &question.Attachment{
			FileID:   largest.FileID,
			FileSize: int64(largest.FileSize),
		}
	}
	return ans
}

// exchange builds the collaborator set handed to questions.
func (c *Client) exchange(chatID int64, conv *conversation) *question.Exchange {
	return &question.Exchange{
		ChatID:  chatID,
		Scratch: conv.conv.Scratch,
		Sources: c.sources,
		RemoveKeyboard: func(ctx context.Context) error {
			return c.removeKeyboard(chatID)
		},
		AnswerCallback: func(ctx context.Context, callbackID string) error {
			_, err := c.bot.Request(tgbotapi.NewCallback(callbackID, ""))
			return err
		},
		Download: c.downloadToTemp,
	}
}

// removeKeyboard clears a reply keyboard by sending a throwaway message with
// the remove markup and deleting it right away.
func (c *Client) removeKeyboard(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, c.cfg.Questions.RemoveKeyboardText)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)

	sent, err := c.bot.Send(msg)
	if err != nil {
		return fmt.Errorf("sending keyboard removal: %w", err)
	}
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, sent.MessageID)); err != nil {
		c.log.Debug("Failed to delete keyboard removal message", zap.Error(err))
	}
	return nil
}

// downloadToTemp fetches a Telegram file to a local temporary path.
func (c *Client) downloadToTemp(ctx context.Context, fileID string, maxSize int64) (string, error) {
	fileURL, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolving file URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("building download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "toribot-*")
	if err != nil {
		return "", fmt.Errorf("creating temporary file: %w", err)
	}
	defer tmp.Close()

	written, err := io.Copy(tmp, io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing file body: %w", err)
	}
	if written > maxSize {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("file exceeds the size limit of %d bytes", maxSize)
	}

	return tmp.Name(), nil
}

// syncCommandScopes publishes the command menu. The default scope is
// cleared; every known user gets a chat-scoped menu listing only the
// commands they are authorized to run.
func (c *Client) syncCommandScopes(ctx context.Context) {
	if _, err := c.bot.Request(tgbotapi.NewDeleteMyCommands()); err != nil {
		c.log.Warn("Failed to reset command scopes", zap.Error(err))
	}

	allUsers, err := c.users.Users(ctx)
	if err != nil {
		c.log.Warn("Failed to list users for command scopes", zap.Error(err))
		return
	}

	for _, user := range allUsers {
		cmds := c.commandsFor(ctx, user)
		if len(cmds) == 0 {
			continue
		}
		scope := tgbotapi.NewBotCommandScopeChat(user.TelegramID)
		if _, err := c.bot.Request(tgbotapi.NewSetMyCommandsWithScope(scope, cmds...)); err != nil {
			c.log.Warn("Failed to set command scope",
				zap.Int64("user_id", user.TelegramID), zap.Error(err))
			continue
		}
	}

	c.log.Info("Synced command scopes", zap.Int("users", len(allUsers)))
}

// commandsFor builds the sorted command menu for one user.
func (c *Client) commandsFor(ctx context.Context, user *users.User) []tgbotapi.BotCommand {
	var cmds []tgbotapi.BotCommand
	for _, a := range c.actionSet {
		authorized, err := c.users.IsAuthorized(ctx, user, a.Name)
		if err != nil || !authorized {
			continue
		}

		desc := a.Description
		if desc == "" {
			desc = a.Name
		}
		if len(desc) > 256 {
			desc = desc[:256]
		}
		for _, cmd := range a.Commands {
			cmds = append(cmds, tgbotapi.BotCommand{Command: cmd, Description: desc})
		}
	}

	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Command < cmds[j].Command })
	if len(cmds) > 100 {
		cmds = cmds[:100]
	}
	return cmds
}
