package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// SettingsStore is an in-memory implementation of domain.SettingsStore.
type SettingsStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewSettingsStore creates an empty in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{data: make(map[string]string)}
}

// Get returns the value for the key.
func (s *SettingsStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[key]
	if !exists {
		return "", fmt.Errorf("memory: setting %s: %w", key, domain.ErrNotFound)
	}
	return v, nil
}

// Set stores or replaces the value for the key.
func (s *SettingsStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Delete removes the key. Deleting a missing key is not an error.
func (s *SettingsStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
