package action

import (
	"context"
	"fmt"
	"strings"

	"toribot/pkg/state"
)

// descriptorPrefix namespaces descriptor keys in the state store.
const descriptorPrefix = "actions:"

// Descriptor is the persisted registration record for an action. It backs
// authorization lookups and the command menu across restarts.
type Descriptor struct {
	Name        string   `json:"name"`
	Commands    []string `json:"commands"`
	Description string   `json:"description"`
}

// Store persists action descriptors. Registration upserts by name so
// re-registering the same action across restarts is idempotent; Prune
// removes descriptors for actions no longer defined in code.
type Store interface {
	Upsert(ctx context.Context, d Descriptor) error
	Prune(ctx context.Context, keep []string) error
	List(ctx context.Context) ([]Descriptor, error)
}

// KVStore keeps descriptors in the shared state store, one entry per action.
type KVStore struct {
	store state.Store
}

// NewKVStore creates a descriptor store over the given state backend.
func NewKVStore(s state.Store) *KVStore {
	return &KVStore{store: s}
}

// Upsert writes the descriptor, replacing any previous record for the name.
func (s *KVStore) Upsert(ctx context.Context, d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("descriptor has no name")
	}
	return state.SetJSON(ctx, s.store, descriptorPrefix+d.Name, d)
}

// Prune deletes every stored descriptor whose name is not in keep.
func (s *KVStore) Prune(ctx context.Context, keep []string) error {
	keepSet := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		keepSet[name] = struct{}{}
	}

	keys, err := s.store.Keys(ctx, descriptorPrefix)
	if err != nil {
		return fmt.Errorf("listing descriptors: %w", err)
	}

	for _, key := range keys {
		name := strings.TrimPrefix(key, descriptorPrefix)
		if _, ok := keepSet[name]; ok {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("pruning descriptor %q: %w", name, err)
		}
	}
	return nil
}

// List returns every stored descriptor.
func (s *KVStore) List(ctx context.Context) ([]Descriptor, error) {
	keys, err := s.store.Keys(ctx, descriptorPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing descriptors: %w", err)
	}

	descriptors := make([]Descriptor, 0, len(keys))
	for _, key := range keys {
		var d Descriptor
		found, err := state.GetJSON(ctx, s.store, key, &d)
		if err != nil {
			return nil, fmt.Errorf("reading descriptor %q: %w", key, err)
		}
		if found {
			descriptors = append(descriptors, d)
		}
	}
	return descriptors, nil
}
