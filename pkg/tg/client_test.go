package tg

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"toribot/pkg/action"
	"toribot/pkg/config"
	"toribot/pkg/logger"
	"toribot/pkg/question"
	"toribot/pkg/state"
	"toribot/pkg/users"
)

func testAction(t *testing.T, log *logger.Logger, name string, commands ...string) *action.Action {
	t.Helper()
	a, err := action.New(log, action.Options{
		Name:     name,
		Commands: commands,
		Handler: func(ctx context.Context, inv *action.Invocation) (any, error) {
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("Failed to register action %s: %v", name, err)
	}
	return a
}

func testClientConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Telegram.Token = "12345:testtoken"
	return cfg
}

func TestNewClientRequiresToken(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := NewClient(testLogger(t), cfg, users.NewMemoryStore(), nil, nil, nil)
	if err == nil {
		t.Fatal("Expected error for missing token, got nil")
	}
}

func TestNewClientFirstCommandRegistrationWins(t *testing.T) {
	log := testLogger(t)
	first := testAction(t, log, "first", "shared", "one")
	second := testAction(t, log, "second", "shared", "two")

	c, err := NewClient(log, testClientConfig(), users.NewMemoryStore(), nil, nil,
		[]*action.Action{first, second})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if c.actions["shared"] != first {
		t.Error("Expected the first registration to keep the shared command")
	}
	if c.actions["one"] != first || c.actions["two"] != second {
		t.Error("Expected unique commands to route to their actions")
	}
}

func TestAnswerFromUpdateText(t *testing.T) {
	update := &tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello"}}
	ans := answerFromUpdate(update)
	if ans.Text != "hello" {
		t.Errorf("Expected text hello, got %q", ans.Text)
	}
	if ans.Document != nil || ans.Photo != nil || ans.CallbackID != "" {
		t.Errorf("Expected a bare text answer, got %+v", ans)
	}
}

func TestAnswerFromUpdateCallback(t *testing.T) {
	update := &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		Data: "color_red",
	}}
	ans := answerFromUpdate(update)
	if ans.CallbackID != "cb-1" || ans.CallbackData != "color_red" {
		t.Errorf("Expected callback fields, got %+v", ans)
	}
}

func TestAnswerFromUpdateAttachments(t *testing.T) {
	update := &tgbotapi.Update{Message: &tgbotapi.Message{
		Document: &tgbotapi.Document{
			FileID:   "doc-1",
			FileName: "report.pdf",
			MimeType: "application/pdf",
			FileSize: 123,
		},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", FileSize: 10},
			{FileID: "large", FileSize: 100},
		},
	}}

	ans := answerFromUpdate(update)
	if ans.Document == nil || ans.Document.FileName != "report.pdf" {
		t.Errorf("Expected the document attachment, got %+v", ans.Document)
	}
	if ans.Photo == nil || ans.Photo.FileID != "large" {
		t.Errorf("Expected the largest photo size, got %+v", ans.Photo)
	}
}

func TestCommandsForListsOnlyAuthorizedActions(t *testing.T) {
	log := testLogger(t)
	greet := testAction(t, log, "greet", "greet", "hello")
	secret := testAction(t, log, "secret")

	store := users.NewMemoryStore()
	alice := store.AddUser(100, "Alice", false)
	store.Grant(users.Permission{Action: "greet", Users: []int64{alice.ID}})

	c, err := NewClient(log, testClientConfig(), store, nil, nil,
		[]*action.Action{greet, secret})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	cmds := c.commandsFor(context.Background(), alice)
	if len(cmds) != 2 {
		t.Fatalf("Expected 2 commands, got %d", len(cmds))
	}
	if cmds[0].Command != "greet" || cmds[1].Command != "hello" {
		t.Errorf("Expected sorted greet commands, got %+v", cmds)
	}
	for _, cmd := range cmds {
		if cmd.Description != "greet" {
			t.Errorf("Expected the action name as fallback description, got %q", cmd.Description)
		}
	}
}

func TestConversationRepliesAreSerialized(t *testing.T) {
	log := testLogger(t)
	a, err := action.New(log, action.Options{
		Name: "survey",
		Params: []action.Param{
			{Name: "first", Question: question.NewString("First?")},
			{Name: "second", Question: question.NewString("Second?")},
		},
		Handler: func(ctx context.Context, inv *action.Invocation) (any, error) {
			return "done", nil
		},
	})
	if err != nil {
		t.Fatalf("Failed to register action: %v", err)
	}

	c, err := NewClient(log, testClientConfig(), users.NewMemoryStore(), nil, nil,
		[]*action.Action{a})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	pages := NewPageStore(log, state.NewMemoryStore(), time.Hour)
	c.sender = NewSender(log, &fakeAPI{}, pages, 5)

	update := &tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "an answer",
		Chat: &tgbotapi.Chat{ID: 42},
	}}
	conv := &conversation{action: a, conv: question.NewConversation(), update: update}
	c.conversations[42] = conv

	// A burst of replies to the same chat; each update is handled on its
	// own goroutine.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.handleConversationReply(context.Background(), conv, update)
		}()
	}
	wg.Wait()

	if got := len(conv.conv.Answers); got != 2 {
		t.Errorf("Expected exactly 2 answers, got %d", got)
	}
	if conv.conv.Step != 2 {
		t.Errorf("Expected the chain to end at step 2, got %d", conv.conv.Step)
	}
	if c.activeConversation(42) != nil {
		t.Error("Expected the conversation to be over after the final answer")
	}
}

func TestCommandsForAdminSeesEverything(t *testing.T) {
	log := testLogger(t)
	greet := testAction(t, log, "greet")
	secret := testAction(t, log, "secret")

	store := users.NewMemoryStore()
	admin := store.AddUser(200, "Root", true)

	c, err := NewClient(log, testClientConfig(), store, nil, nil,
		[]*action.Action{greet, secret})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	cmds := c.commandsFor(context.Background(), admin)
	if len(cmds) != 2 {
		t.Errorf("Expected every command for an admin, got %d", len(cmds))
	}
}
