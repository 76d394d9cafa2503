// Package state provides the scratch key-value storage used by the
// registered-action descriptor store and the pages store. Backends: memory,
// file (JSON, atomic writes) and redis.
package state

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store is a small namespaced key-value store. Values are opaque bytes;
// callers that need structure use GetJSON/SetJSON.
type Store interface {
	// Get retrieves a value. The second return reports whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value, overwriting any previous one.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// GetJSON retrieves a value and unmarshals it into v.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("unmarshaling state key %s: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling state key %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
