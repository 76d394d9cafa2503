package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"toribot/pkg/fileutil"
	"toribot/pkg/logger"
)

// FileStore is a file-backed key-value store. The whole map is serialized
// to a single JSON file; writes go through a temp file and rename so a
// crash never leaves a truncated state file.
type FileStore struct {
	log      *logger.Logger
	filePath string
	data     map[string][]byte
	mu       sync.RWMutex
}

// NewFileStore creates a file-backed store, loading existing state if the
// file is present.
func NewFileStore(log *logger.Logger, filePath string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	s := &FileStore{
		log:      log,
		filePath: filePath,
		data:     make(map[string][]byte),
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading state: %w", err)
	}

	return s, nil
}

// Get retrieves a value from the store.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.data[key]
	if !exists {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Set stores a value and persists the file.
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return s.save()
}

// Delete removes a value and persists the file.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return s.save()
}

// Keys returns all keys with the given prefix.
func (s *FileStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Close persists any pending state.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// load reads the state file into memory. Caller must hold no lock.
func (s *FileStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshaling state file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range raw {
		s.data[k] = []byte(v)
	}
	return nil
}

// save writes the state file atomically. Caller must hold the write lock.
func (s *FileStore) save() error {
	raw := make(map[string]json.RawMessage, len(s.data))
	for k, v := range s.data {
		raw[k] = json.RawMessage(v)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	if err := fileutil.WriteFileAtomic(s.filePath, data, 0o600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}
