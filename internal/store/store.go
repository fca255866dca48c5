package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"storefront/internal/domain"

	"github.com/spf13/afero"
)

// Keys held in the session store.
const (
	KeyToken           = "token"
	KeyUser            = "user"
	KeyDeliveryAddress = "deliveryAddress"
)

const stateFile = "state.json"

// Store is a durable keyed string store backed by a single JSON file.
// Writes are last-writer-wins overwrites persisted immediately. A missing
// or corrupt state file loads as empty rather than failing.
type Store struct {
	fs   afero.Fs
	path string

	mu   sync.RWMutex
	data map[string]string
}

// Open loads (or initializes) the store under dir.
func Open(fs afero.Fs, dir string) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}

	s := &Store{
		fs:   fs,
		path: filepath.Join(dir, stateFile),
		data: make(map[string]string),
	}

	raw, err := afero.ReadFile(fs, s.path)
	if err != nil {
		// Missing file is a fresh session.
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		// Corrupt state is discarded, not fatal.
		s.data = make(map[string]string)
	}
	return s, nil
}

// Get returns the value for key and whether it is set.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	return value, ok
}

// Set stores key=value and persists.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.flush()
}

// Delete removes key and persists. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flush()
}

// Clear removes every key and persists.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]string)
	return s.flush()
}

// Token returns the cached bearer token, if any.
func (s *Store) Token() (string, bool) {
	return s.Get(KeyToken)
}

// SetToken caches the bearer token.
func (s *Store) SetToken(token string) error {
	return s.Set(KeyToken, token)
}

// PurgeCredentials drops the token and the cached profile. Called by the
// gateway on any unauthorized response.
func (s *Store) PurgeCredentials() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, KeyToken)
	delete(s.data, KeyUser)
	return s.flush()
}

// SaveUser caches the serialized profile.
func (s *Store) SaveUser(user *domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to serialize profile: %w", err)
	}
	return s.Set(KeyUser, string(raw))
}

// LoadUser returns the cached profile, or nil when absent or unreadable.
func (s *Store) LoadUser() *domain.User {
	raw, ok := s.Get(KeyUser)
	if !ok {
		return nil
	}
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return &user
}

// flush writes the current map to disk. Caller holds the write lock.
func (s *Store) flush() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
