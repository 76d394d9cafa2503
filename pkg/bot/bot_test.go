package bot

import (
	"context"
	"strings"
	"testing"

	"toribot/pkg/action"
	"toribot/pkg/config"
	"toribot/pkg/logger"
	"toribot/pkg/question"
	"toribot/pkg/state"
	"toribot/pkg/users"
)

func testBot(t *testing.T) *Bot {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: logger.LevelError})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return New(log, config.DefaultConfig(), nil, action.NewKVStore(state.NewMemoryStore()))
}

func okHandler(ctx context.Context, inv *action.Invocation) (any, error) {
	return "ok", nil
}

func TestRegisterAndList(t *testing.T) {
	b := testBot(t)

	if _, err := b.Register(action.Options{Name: "greet", Handler: okHandler}); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	actions := b.Actions()
	if len(actions) != 1 || actions[0].Name != "greet" {
		t.Errorf("Unexpected action set: %+v", actions)
	}
}

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	b := testBot(t)

	if _, err := b.Register(action.Options{Name: "greet", Handler: okHandler}); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	_, err := b.Register(action.Options{Name: "greet", Handler: okHandler})
	if err == nil {
		t.Fatal("Expected error for duplicate action name, got nil")
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestRegisterFillsQuestionDefaults(t *testing.T) {
	b := testBot(t)

	boolean := question.NewBool("Sure?")
	if _, err := b.Register(action.Options{
		Name:    "ask",
		Params:  []action.Param{{Name: "sure", Question: boolean}},
		Handler: okHandler,
	}); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	if boolean.ErrorText != b.cfg.Questions.BoolErrorText {
		t.Errorf("Expected the configured error text, got %q", boolean.ErrorText)
	}
	if len(boolean.TrueValues) == 0 {
		t.Error("Expected the configured true values to be applied")
	}
}

func TestStartPersistsAndPrunesDescriptors(t *testing.T) {
	store := action.NewKVStore(state.NewMemoryStore())
	ctx := context.Background()

	// A leftover from a previous deployment.
	if err := store.Upsert(ctx, action.Descriptor{Name: "ghost"}); err != nil {
		t.Fatalf("Failed to seed descriptor: %v", err)
	}

	log, err := logger.New(&logger.Config{Level: logger.LevelError})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	b := New(log, config.DefaultConfig(), nil, store)

	if _, err := b.Register(action.Options{Name: "greet", Handler: okHandler}); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}

	descriptors, err := store.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list descriptors: %v", err)
	}
	if len(descriptors) != 1 || descriptors[0].Name != "greet" {
		t.Errorf("Expected only greet to remain, got %+v", descriptors)
	}
}

func TestRegisterBuiltins(t *testing.T) {
	b := testBot(t)

	store := users.NewMemoryStore()
	alice := store.AddUser(100, "Alice", false)
	store.Grant(users.Permission{Action: "start", Users: []int64{alice.ID}})
	store.Grant(users.Permission{Action: "help", Users: []int64{alice.ID}})

	if err := b.registerBuiltins(store); err != nil {
		t.Fatalf("Failed to register builtins: %v", err)
	}

	actions := b.Actions()
	if len(actions) != 2 {
		t.Fatalf("Expected start and help, got %d actions", len(actions))
	}

	var start *action.Action
	for _, a := range actions {
		if a.Name == "start" {
			start = a
		}
	}
	if start == nil {
		t.Fatal("Expected a start action")
	}

	result, err := start.Invoke(context.Background(), action.Env{User: alice})
	if err != nil {
		t.Fatalf("Failed to invoke start: %v", err)
	}
	if result != "Hello, Alice!" {
		t.Errorf("Expected a greeting, got %v", result)
	}
}

func TestHelpListsAuthorizedCommands(t *testing.T) {
	b := testBot(t)

	store := users.NewMemoryStore()
	alice := store.AddUser(100, "Alice", false)
	store.Grant(users.Permission{Action: "help", Users: []int64{alice.ID}})
	store.Grant(users.Permission{Action: "greet", Users: []int64{alice.ID}})

	if err := b.registerBuiltins(store); err != nil {
		t.Fatalf("Failed to register builtins: %v", err)
	}
	if _, err := b.Register(action.Options{
		Name:        "greet",
		Description: "Say hello",
		Handler:     okHandler,
	}); err != nil {
		t.Fatalf("Failed to register greet: %v", err)
	}
	if _, err := b.Register(action.Options{Name: "secret", Handler: okHandler}); err != nil {
		t.Fatalf("Failed to register secret: %v", err)
	}

	var help *action.Action
	for _, a := range b.Actions() {
		if a.Name == "help" {
			help = a
		}
	}

	result, err := help.Invoke(context.Background(), action.Env{User: alice})
	if err != nil {
		t.Fatalf("Failed to invoke help: %v", err)
	}

	text, ok := result.(string)
	if !ok {
		t.Fatalf("Expected a string, got %T", result)
	}
	if !strings.Contains(text, "/greet - Say hello") {
		t.Errorf("Expected the greet command to be listed, got %q", text)
	}
	if strings.Contains(text, "secret") {
		t.Errorf("Expected unauthorized actions to be hidden, got %q", text)
	}
	if !strings.Contains(text, "/help") {
		t.Errorf("Expected help itself to be listed, got %q", text)
	}
}

func TestHelpWithNoPermissions(t *testing.T) {
	b := testBot(t)

	store := users.NewMemoryStore()
	nobody := store.AddUser(300, "Nobody", false)

	if err := b.registerBuiltins(store); err != nil {
		t.Fatalf("Failed to register builtins: %v", err)
	}

	var help *action.Action
	for _, a := range b.Actions() {
		if a.Name == "help" {
			help = a
		}
	}

	result, err := help.Invoke(context.Background(), action.Env{User: nobody})
	if err != nil {
		t.Fatalf("Failed to invoke help: %v", err)
	}
	if result != "No commands are available to you." {
		t.Errorf("Expected the empty-menu notice, got %v", result)
	}
}
