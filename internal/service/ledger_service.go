// Package service exposes read and mutation operations over the ledger to
// the HTTP layer, keeping stores and engine wiring out of the handlers.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// LedgerService provides filtered access to ledger entries and the manual
// corrections an operator can apply to them.
type LedgerService struct {
	entries domain.LedgerStore
	audit   domain.AuditStore
	logger  *slog.Logger
}

// NewLedgerService creates a LedgerService. audit may be nil when auditing
// is disabled.
func NewLedgerService(entries domain.LedgerStore, audit domain.AuditStore, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		entries: entries,
		audit:   audit,
		logger:  logger.With(slog.String("component", "ledger_service")),
	}
}

// List returns entries matching the filter, newest first.
func (s *LedgerService) List(ctx context.Context, filter domain.EntryFilter) ([]domain.LedgerEntry, error) {
	entries, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("ledger_service: list: %w", err)
	}
	return entries, nil
}

// Count returns the total number of entries in the ledger.
func (s *LedgerService) Count(ctx context.Context) (int64, error) {
	count, err := s.entries.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("ledger_service: count: %w", err)
	}
	return count, nil
}

// GetByOriginID returns the entry recorded for a transaction.
func (s *LedgerService) GetByOriginID(ctx context.Context, originID string) (domain.LedgerEntry, error) {
	entry, err := s.entries.GetByOriginID(ctx, originID)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("ledger_service: get by origin: %w", err)
	}
	return entry, nil
}

// Patch applies a manual correction to an entry and records it in the audit
// log. An empty patch is a no-op.
func (s *LedgerService) Patch(ctx context.Context, id string, patch domain.EntryPatch) error {
	if patch.IsZero() {
		return nil
	}
	if err := s.entries.Patch(ctx, id, patch); err != nil {
		return fmt.Errorf("ledger_service: patch %s: %w", id, err)
	}
	s.auditLog(ctx, "entry_patched", map[string]any{"entry_id": id})
	return nil
}

// Delete removes an entry from the ledger and records the deletion.
func (s *LedgerService) Delete(ctx context.Context, id string) error {
	if err := s.entries.Delete(ctx, id); err != nil {
		return fmt.Errorf("ledger_service: delete %s: %w", id, err)
	}
	s.auditLog(ctx, "entry_deleted", map[string]any{"entry_id": id})
	return nil
}

// AuditTrail returns the most recent audit rows, newest first.
func (s *LedgerService) AuditTrail(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if s.audit == nil {
		return nil, nil
	}
	rows, err := s.audit.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger_service: audit trail: %w", err)
	}
	return rows, nil
}

func (s *LedgerService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
