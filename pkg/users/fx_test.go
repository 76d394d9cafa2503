package users

import (
	"context"
	"testing"

	"toribot/pkg/config"
)

func TestProvideStoreSeedsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Users = []config.UserConfig{
		{TelegramID: 100, Name: "Alice", Roles: []string{"editors"}},
		{TelegramID: 200, Name: "Bob"},
		{TelegramID: 300, Name: "Root", Admin: true},
	}
	cfg.Permissions = []config.PermissionConfig{
		{Action: "greet", Telegrams: []int64{200}},
		{Action: "publish", Roles: []string{"editors"}},
	}

	store := ProvideStore(cfg)
	ctx := context.Background()

	alice, err := store.UserByTelegramID(ctx, 100)
	if err != nil || alice == nil {
		t.Fatalf("Expected Alice to be seeded: %v", err)
	}
	bob, _ := store.UserByTelegramID(ctx, 200)
	root, _ := store.UserByTelegramID(ctx, 300)

	if ok, _ := store.IsAuthorized(ctx, bob, "greet"); !ok {
		t.Error("Expected Bob's direct permission to be seeded")
	}
	if ok, _ := store.IsAuthorized(ctx, alice, "greet"); ok {
		t.Error("Expected Alice to be denied for greet")
	}
	if ok, _ := store.IsAuthorized(ctx, alice, "publish"); !ok {
		t.Error("Expected Alice's role permission to be seeded")
	}
	if ok, _ := store.IsAuthorized(ctx, root, "anything"); !ok {
		t.Error("Expected the seeded admin to pass every check")
	}
}
