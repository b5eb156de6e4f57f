// Package memory provides mutex-guarded in-memory implementations of the
// domain store interfaces. They back tests and DSN-less serve mode; the
// engine does not distinguish them from the postgres stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// LedgerStore is an in-memory implementation of domain.LedgerStore.
type LedgerStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LedgerEntry // keyed by id
}

// NewLedgerStore creates an empty in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{data: make(map[string]*domain.LedgerEntry)}
}

// List returns entries matching the filter, most recent first.
func (s *LedgerStore) List(_ context.Context, filter domain.EntryFilter) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.LedgerEntry
	for _, e := range s.data {
		if !matches(e, filter) {
			continue
		}
		result = append(result, *e)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].OccurredAt.After(result[j].OccurredAt)
		}
		return result[i].ID < result[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// InsertMany validates and stores the entries. Entries whose origin id is
// already present are skipped, matching the postgres conflict behavior.
func (s *LedgerStore) InsertMany(_ context.Context, entries []domain.LedgerEntry) error {
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return fmt.Errorf("memory: insert: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	origins := make(map[string]bool, len(s.data))
	for _, e := range s.data {
		if e.OriginID != nil {
			origins[*e.OriginID] = true
		}
	}

	for i := range entries {
		e := entries[i]
		if e.ID == "" {
			return fmt.Errorf("memory: insert: entry has no id: %w", domain.ErrInvariant)
		}
		if _, exists := s.data[e.ID]; exists {
			return fmt.Errorf("memory: insert %s: %w", e.ID, domain.ErrAlreadyExists)
		}
		if e.OriginID != nil && origins[*e.OriginID] {
			continue
		}
		if e.OriginID != nil {
			origins[*e.OriginID] = true
		}
		s.data[e.ID] = &e
	}
	return nil
}

// Patch applies the non-nil fields of the patch to the entry.
func (s *LedgerStore) Patch(_ context.Context, id string, patch domain.EntryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[id]
	if !exists {
		return fmt.Errorf("memory: patch %s: %w", id, domain.ErrNotFound)
	}

	applyPatch(e, patch)
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes the entry.
func (s *LedgerStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return fmt.Errorf("memory: delete %s: %w", id, domain.ErrNotFound)
	}
	delete(s.data, id)
	return nil
}

// GetByOriginID returns the entry traceable to the given transaction.
func (s *LedgerStore) GetByOriginID(_ context.Context, originID string) (domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.data {
		if e.OriginID != nil && *e.OriginID == originID {
			return *e, nil
		}
	}
	return domain.LedgerEntry{}, fmt.Errorf("memory: origin %s: %w", originID, domain.ErrNotFound)
}

// Count returns the total number of stored entries.
func (s *LedgerStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data)), nil
}

func matches(e *domain.LedgerEntry, f domain.EntryFilter) bool {
	if f.Chain != "" && e.Chain != f.Chain {
		return false
	}
	if f.AssetKey != "" && !strings.EqualFold(e.AssetKey(), f.AssetKey) {
		return false
	}
	if f.Direction != "" && e.Direction != f.Direction {
		return false
	}
	if f.Since != nil && e.OccurredAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !e.OccurredAt.Before(*f.Until) {
		return false
	}
	return true
}

func applyPatch(e *domain.LedgerEntry, p domain.EntryPatch) {
	if p.OriginID != nil {
		e.OriginID = p.OriginID
	}
	if p.Symbol != nil {
		e.Symbol = *p.Symbol
	}
	if p.ContractID != nil {
		e.ContractID = p.ContractID
	}
	if p.Name != nil {
		e.Name = p.Name
	}
	if p.ImageURL != nil {
		e.ImageURL = p.ImageURL
	}
	if p.Direction != nil {
		e.Direction = *p.Direction
	}
	if p.UnitPrice != nil {
		e.UnitPrice = *p.UnitPrice
	}
	if p.Quantity != nil {
		e.Quantity = *p.Quantity
	}
	if p.BaseSymbol != nil {
		e.BaseSymbol = *p.BaseSymbol
	}
	if p.BaseUsdPrice != nil {
		e.BaseUsdPrice = p.BaseUsdPrice
	}
	if p.TotalBase != nil {
		e.TotalBase = *p.TotalBase
	}
	if p.TotalUsd != nil {
		e.TotalUsd = p.TotalUsd
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Venue != nil {
		e.Venue = p.Venue
	}
}
