package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// SyncStateStore is an in-memory implementation of domain.SyncStateStore.
type SyncStateStore struct {
	mu   sync.RWMutex
	data map[string]domain.SyncCursor
}

// NewSyncStateStore creates an empty in-memory sync state store.
func NewSyncStateStore() *SyncStateStore {
	return &SyncStateStore{data: make(map[string]domain.SyncCursor)}
}

// GetCursor returns the stored cursor for the address.
func (s *SyncStateStore) GetCursor(_ context.Context, chain domain.Chain, address string) (domain.SyncCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[cursorKey(chain, address)]
	if !exists {
		return domain.SyncCursor{}, fmt.Errorf("memory: cursor %s/%s: %w", chain, address, domain.ErrNotFound)
	}
	return c, nil
}

// PutCursor stores or replaces the cursor.
func (s *SyncStateStore) PutCursor(_ context.Context, cursor domain.SyncCursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[cursorKey(cursor.Chain, cursor.Address)] = cursor
	return nil
}

func cursorKey(chain domain.Chain, address string) string {
	return string(chain) + "/" + address
}
