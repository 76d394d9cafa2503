package action

import (
	"context"
	"testing"

	"toribot/pkg/state"
)

func TestKVStoreUpsertAndList(t *testing.T) {
	s := NewKVStore(state.NewMemoryStore())
	ctx := context.Background()

	if err := s.Upsert(ctx, Descriptor{Name: "greet", Commands: []string{"greet"}, Description: "Say hello"}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if err := s.Upsert(ctx, Descriptor{Name: "greet", Commands: []string{"greet", "hello"}, Description: "Say hello"}); err != nil {
		t.Fatalf("Failed to upsert again: %v", err)
	}

	descriptors, err := s.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(descriptors) != 1 {
		t.Fatalf("Expected 1 descriptor after re-upsert, got %d", len(descriptors))
	}
	if len(descriptors[0].Commands) != 2 {
		t.Errorf("Expected the second upsert to win, got %v", descriptors[0].Commands)
	}
}

func TestKVStoreUpsertRequiresName(t *testing.T) {
	s := NewKVStore(state.NewMemoryStore())
	if err := s.Upsert(context.Background(), Descriptor{}); err == nil {
		t.Fatal("Expected error for unnamed descriptor, got nil")
	}
}

func TestKVStorePrune(t *testing.T) {
	s := NewKVStore(state.NewMemoryStore())
	ctx := context.Background()

	for _, name := range []string{"greet", "farewell", "survey"} {
		if err := s.Upsert(ctx, Descriptor{Name: name}); err != nil {
			t.Fatalf("Failed to upsert %s: %v", name, err)
		}
	}

	if err := s.Prune(ctx, []string{"greet"}); err != nil {
		t.Fatalf("Failed to prune: %v", err)
	}

	descriptors, err := s.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(descriptors) != 1 || descriptors[0].Name != "greet" {
		t.Errorf("Expected only greet to survive, got %+v", descriptors)
	}
}
