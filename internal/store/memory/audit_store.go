package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// AuditStore is an in-memory implementation of domain.AuditStore.
type AuditStore struct {
	mu   sync.RWMutex
	next int64
	data []domain.AuditEntry
}

// NewAuditStore creates an empty in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Log appends an audit row.
func (s *AuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.data = append(s.data, domain.AuditEntry{
		ID:        s.next,
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// List returns the most recent rows, newest first.
func (s *AuditStore) List(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.data)
	if limit <= 0 || limit > n {
		limit = n
	}
	result := make([]domain.AuditEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		result = append(result, s.data[i])
	}
	return result, nil
}
