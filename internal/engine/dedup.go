package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// ReconcileResult summarizes one reconcile pass.
type ReconcileResult struct {
	Inserted   int
	Repaired   int
	Superseded int
	Suppressed int
}

// Deduplicator reconciles freshly classified candidate entries against the
// ledger. Origin id is the primary key: a match repairs the stored row in
// place, because a re-run with more complete data may correct an earlier
// mistake. Without an origin match a composite key (asset identity,
// direction, UTC date, rounded quantity) suppresses the candidate, except
// that an origin-carrying candidate supersedes a stored origin-less row.
//
// Repair and supersession overwrite financial records, so both paths are
// recorded in the audit log.
type Deduplicator struct {
	params *Params
	store  domain.LedgerStore
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewDeduplicator creates a Deduplicator. audit may be nil.
func NewDeduplicator(params *Params, store domain.LedgerStore, audit domain.AuditStore, logger *slog.Logger) *Deduplicator {
	params.normalize()
	return &Deduplicator{
		params: params,
		store:  store,
		audit:  audit,
		logger: logger.With(slog.String("component", "dedup")),
	}
}

// Reconcile processes candidates in order and returns counts. Failures on a
// single candidate are logged and skipped; the pass continues.
func (d *Deduplicator) Reconcile(ctx context.Context, candidates []domain.LedgerEntry) (ReconcileResult, error) {
	var res ReconcileResult
	var toInsert []domain.LedgerEntry
	seen := make(map[string]bool, len(candidates))

	for i := range candidates {
		cand := candidates[i]

		// Overlapping pages can surface the same transaction twice within
		// one batch.
		key := d.compositeKey(&cand)
		if cand.OriginID != nil {
			key = "origin:" + *cand.OriginID
		}
		if seen[key] {
			res.Suppressed++
			continue
		}
		seen[key] = true

		action, err := d.reconcileOne(ctx, &cand)
		if err != nil {
			d.logger.Warn("candidate skipped",
				slog.String("symbol", cand.Symbol),
				slog.Any("error", err),
			)
			continue
		}
		switch action {
		case actionInsert:
			toInsert = append(toInsert, cand)
		case actionRepaired:
			res.Repaired++
		case actionSuperseded:
			res.Superseded++
		case actionSuppressed:
			res.Suppressed++
		}
	}

	if len(toInsert) > 0 {
		if err := d.store.InsertMany(ctx, toInsert); err != nil {
			return res, fmt.Errorf("dedup: insert: %w", err)
		}
		res.Inserted = len(toInsert)
	}
	return res, nil
}

type reconcileAction int

const (
	actionInsert reconcileAction = iota
	actionRepaired
	actionSuperseded
	actionSuppressed
)

func (d *Deduplicator) reconcileOne(ctx context.Context, cand *domain.LedgerEntry) (reconcileAction, error) {
	if cand.OriginID != nil && *cand.OriginID != "" {
		existing, err := d.store.GetByOriginID(ctx, *cand.OriginID)
		switch {
		case err == nil:
			if err := d.repair(ctx, existing, cand); err != nil {
				return 0, err
			}
			return actionRepaired, nil
		case !errors.Is(err, domain.ErrNotFound):
			return 0, fmt.Errorf("dedup: lookup origin %s: %w", *cand.OriginID, err)
		}
	}

	match, err := d.findCompositeMatch(ctx, cand)
	if err != nil {
		return 0, err
	}
	if match == nil {
		return actionInsert, nil
	}

	// Origin-traceable data always wins over origin-less rows.
	if match.OriginID == nil && cand.OriginID != nil {
		if err := d.supersede(ctx, *match, cand); err != nil {
			return 0, err
		}
		return actionSuperseded, nil
	}
	return actionSuppressed, nil
}

// repair overwrites the stored row's classification-derived fields with the
// freshly computed values.
func (d *Deduplicator) repair(ctx context.Context, existing domain.LedgerEntry, cand *domain.LedgerEntry) error {
	patch := diffPatch(&existing, cand)
	if patch.IsZero() {
		return nil
	}
	if err := d.store.Patch(ctx, existing.ID, patch); err != nil {
		return fmt.Errorf("dedup: repair %s: %w", existing.ID, err)
	}
	d.logger.Info("entry repaired on origin match",
		slog.String("id", existing.ID),
		slog.String("origin_id", derefStr(cand.OriginID)),
		slog.String("symbol", cand.Symbol),
	)
	d.auditLog(ctx, "entry_repaired", map[string]any{
		"id":            existing.ID,
		"origin_id":     derefStr(cand.OriginID),
		"symbol":        cand.Symbol,
		"old_direction": string(existing.Direction),
		"new_direction": string(cand.Direction),
		"old_quantity":  existing.Quantity,
		"new_quantity":  cand.Quantity,
	})
	return nil
}

// supersede stamps an origin-less stored row with the candidate's origin id
// and values.
func (d *Deduplicator) supersede(ctx context.Context, existing domain.LedgerEntry, cand *domain.LedgerEntry) error {
	patch := diffPatch(&existing, cand)
	patch.OriginID = cand.OriginID
	if err := d.store.Patch(ctx, existing.ID, patch); err != nil {
		return fmt.Errorf("dedup: supersede %s: %w", existing.ID, err)
	}
	d.auditLog(ctx, "entry_superseded", map[string]any{
		"id":        existing.ID,
		"origin_id": derefStr(cand.OriginID),
		"symbol":    cand.Symbol,
	})
	return nil
}

func (d *Deduplicator) findCompositeMatch(ctx context.Context, cand *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	dayStart := cand.OccurredAt.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	existing, err := d.store.List(ctx, domain.EntryFilter{
		AssetKey:  cand.AssetKey(),
		Direction: cand.Direction,
		Since:     &dayStart,
		Until:     &dayEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("dedup: list for composite key: %w", err)
	}

	wantQty := d.roundQuantity(cand.Quantity)
	for i := range existing {
		if d.roundQuantity(existing[i].Quantity) == wantQty {
			return &existing[i], nil
		}
	}
	return nil, nil
}

func (d *Deduplicator) compositeKey(e *domain.LedgerEntry) string {
	return fmt.Sprintf("%s|%s|%s|%v",
		e.AssetKey(),
		e.Direction,
		e.OccurredAt.UTC().Format("2006-01-02"),
		d.roundQuantity(e.Quantity),
	)
}

func (d *Deduplicator) roundQuantity(q float64) float64 {
	pow := math.Pow10(d.params.QuantityPrecision)
	return math.Round(q*pow) / pow
}

func (d *Deduplicator) auditLog(ctx context.Context, event string, detail map[string]any) {
	if d.audit == nil {
		return
	}
	if err := d.audit.Log(ctx, event, detail); err != nil {
		d.logger.Warn("audit write failed", slog.String("event", event), slog.Any("error", err))
	}
}

// diffPatch builds a patch containing only the fields where the candidate
// differs from the stored row.
func diffPatch(existing, cand *domain.LedgerEntry) domain.EntryPatch {
	var p domain.EntryPatch
	if cand.Symbol != existing.Symbol {
		p.Symbol = &cand.Symbol
	}
	if !eqStrPtr(cand.ContractID, existing.ContractID) {
		p.ContractID = cand.ContractID
	}
	if !eqStrPtr(cand.Name, existing.Name) {
		p.Name = cand.Name
	}
	if cand.Direction != existing.Direction {
		p.Direction = &cand.Direction
	}
	if cand.UnitPrice != existing.UnitPrice {
		p.UnitPrice = &cand.UnitPrice
	}
	if cand.Quantity != existing.Quantity {
		p.Quantity = &cand.Quantity
	}
	if cand.BaseSymbol != existing.BaseSymbol {
		p.BaseSymbol = &cand.BaseSymbol
	}
	if !eqFloatPtr(cand.BaseUsdPrice, existing.BaseUsdPrice) {
		p.BaseUsdPrice = cand.BaseUsdPrice
	}
	if cand.TotalBase != existing.TotalBase {
		p.TotalBase = &cand.TotalBase
	}
	if !eqFloatPtr(cand.TotalUsd, existing.TotalUsd) {
		p.TotalUsd = cand.TotalUsd
	}
	if !eqStrPtr(cand.Venue, existing.Venue) {
		p.Venue = cand.Venue
	}
	return p
}

func eqStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
