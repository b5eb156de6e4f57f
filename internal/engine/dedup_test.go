package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/store/memory"
)

func newTestDedup(t *testing.T) (*Deduplicator, *memory.LedgerStore, *memory.AuditStore) {
	t.Helper()
	store := memory.NewLedgerStore()
	audit := memory.NewAuditStore()
	return NewDeduplicator(testParams(), store, audit, testLogger()), store, audit
}

func entryFixture(originID string, dir domain.Direction, qty, totalBase float64) domain.LedgerEntry {
	e := domain.LedgerEntry{
		ID:         uuid.NewString(),
		Chain:      domain.ChainSolana,
		Symbol:     "TOKX",
		Direction:  dir,
		Quantity:   qty,
		UnitPrice:  totalBase / qty,
		BaseSymbol: "SOL",
		TotalBase:  totalBase,
		OccurredAt: time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC),
		Status:     domain.EntryStatusOpen,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	contract := "mintTOKX"
	e.ContractID = &contract
	if originID != "" {
		e.OriginID = &originID
	}
	return e
}

func TestReconcileInsertsFreshEntries(t *testing.T) {
	d, store, _ := newTestDedup(t)
	ctx := context.Background()

	res, err := d.Reconcile(ctx, []domain.LedgerEntry{
		entryFixture("sig-a", domain.DirectionBuy, 1_000_000, 2.0),
		entryFixture("sig-b", domain.DirectionSell, 1_000_000, 3.0),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestReconcileIsIdempotent(t *testing.T) {
	d, store, _ := newTestDedup(t)
	ctx := context.Background()

	batch := []domain.LedgerEntry{
		entryFixture("sig-a", domain.DirectionBuy, 1_000_000, 2.0),
		entryFixture("sig-b", domain.DirectionSell, 1_000_000, 3.0),
	}

	_, err := d.Reconcile(ctx, batch)
	require.NoError(t, err)

	// Same feed again: dedup must fully absorb the second pass.
	again := []domain.LedgerEntry{
		entryFixture("sig-a", domain.DirectionBuy, 1_000_000, 2.0),
		entryFixture("sig-b", domain.DirectionSell, 1_000_000, 3.0),
	}
	res, err := d.Reconcile(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestReconcileRepairsOnOriginMatch(t *testing.T) {
	d, store, audit := newTestDedup(t)
	ctx := context.Background()

	_, err := d.Reconcile(ctx, []domain.LedgerEntry{
		entryFixture("sig-a", domain.DirectionBuy, 1_000_000, 2.0),
	})
	require.NoError(t, err)

	// Re-classification with better data flips the direction and corrects
	// the quantity; the stored row must be overwritten, not duplicated.
	corrected := entryFixture("sig-a", domain.DirectionSell, 900_000, 2.5)
	res, err := d.Reconcile(ctx, []domain.LedgerEntry{corrected})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Repaired)
	assert.Equal(t, 0, res.Inserted)

	stored, err := store.GetByOriginID(ctx, "sig-a")
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionSell, stored.Direction)
	assert.Equal(t, 900_000.0, stored.Quantity)
	assert.Equal(t, 2.5, stored.TotalBase)

	rows, err := audit.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "entry_repaired", rows[0].Event)
}

func TestReconcileSuppressesCompositeDuplicates(t *testing.T) {
	d, store, _ := newTestDedup(t)
	ctx := context.Background()

	legacy := entryFixture("", domain.DirectionBuy, 1_000_000, 2.0)
	require.NoError(t, store.InsertMany(ctx, []domain.LedgerEntry{legacy}))

	// Same asset, direction, day and rounded quantity from another
	// origin-less path: an exact duplicate, suppressed.
	dupe := entryFixture("", domain.DirectionBuy, 1_000_000.00004, 2.0)
	res, err := d.Reconcile(ctx, []domain.LedgerEntry{dupe})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Suppressed)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReconcileOriginSupersedesOriginless(t *testing.T) {
	d, store, audit := newTestDedup(t)
	ctx := context.Background()

	legacy := entryFixture("", domain.DirectionBuy, 1_000_000, 2.0)
	require.NoError(t, store.InsertMany(ctx, []domain.LedgerEntry{legacy}))

	traced := entryFixture("sig-a", domain.DirectionBuy, 1_000_000, 2.0)
	res, err := d.Reconcile(ctx, []domain.LedgerEntry{traced})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Superseded)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stored, err := store.GetByOriginID(ctx, "sig-a")
	require.NoError(t, err)
	assert.Equal(t, legacy.ID, stored.ID)

	rows, err := audit.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "entry_superseded", rows[0].Event)
}

func TestReconcileDifferentDayIsNotADuplicate(t *testing.T) {
	d, store, _ := newTestDedup(t)
	ctx := context.Background()

	first := entryFixture("", domain.DirectionBuy, 1_000_000, 2.0)
	require.NoError(t, store.InsertMany(ctx, []domain.LedgerEntry{first}))

	nextDay := entryFixture("", domain.DirectionBuy, 1_000_000, 2.0)
	nextDay.OccurredAt = first.OccurredAt.Add(24 * time.Hour)
	res, err := d.Reconcile(ctx, []domain.LedgerEntry{nextDay})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestReconcileDedupesWithinBatch(t *testing.T) {
	d, store, _ := newTestDedup(t)
	ctx := context.Background()

	// Overlapping pages can deliver the same transaction twice in one
	// batch.
	res, err := d.Reconcile(ctx, []domain.LedgerEntry{
		entryFixture("sig-a", domain.DirectionBuy, 1_000_000, 2.0),
		entryFixture("sig-a", domain.DirectionBuy, 1_000_000, 2.0),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Suppressed)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
