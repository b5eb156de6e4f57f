package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/platform/metadata"
	"github.com/JayIsLate/tradejournal-sub000/internal/store/memory"
)

// stubMetadata serves canned lookups and can fail the first N calls.
type stubMetadata struct {
	tokens   map[string]metadata.TokenMetadata
	failNext int
	calls    int
}

func (s *stubMetadata) FetchBatch(_ context.Context, contractIDs []string) (map[string]metadata.TokenMetadata, error) {
	s.calls++
	if s.failNext > 0 {
		s.failNext--
		return nil, errors.New("metadata api unavailable")
	}
	out := make(map[string]metadata.TokenMetadata, len(contractIDs))
	for _, cid := range contractIDs {
		if meta, ok := s.tokens[cid]; ok {
			out[cid] = meta
		}
	}
	return out, nil
}

func unknownEntry(t *testing.T, contractID string) domain.LedgerEntry {
	t.Helper()
	origin := "sig-" + uuid.NewString()
	e := domain.LedgerEntry{
		ID:         uuid.NewString(),
		OriginID:   &origin,
		Chain:      domain.ChainSolana,
		Symbol:     domain.UnknownSymbol,
		ContractID: &contractID,
		Direction:  domain.DirectionBuy,
		UnitPrice:  2,
		Quantity:   10,
		BaseSymbol: "USDC",
		TotalBase:  20,
		OccurredAt: time.Now().UTC(),
		Status:     domain.EntryStatusOpen,
	}
	require.NoError(t, e.Validate())
	return e
}

func TestEnricherRepairsUnknownSymbols(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLedgerStore()
	first := unknownEntry(t, "mint-aaa")
	second := unknownEntry(t, "mint-aaa")
	require.NoError(t, store.InsertMany(ctx, []domain.LedgerEntry{first, second}))

	source := &stubMetadata{tokens: map[string]metadata.TokenMetadata{
		"mint-aaa": {ContractID: "mint-aaa", Symbol: "TOKX", Name: "Token X"},
	}}
	enricher := NewEnricher(store, source, 100, 0, testLogger())

	patched, err := enricher.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, patched)

	got, err := store.GetByOriginID(ctx, *first.OriginID)
	require.NoError(t, err)
	assert.Equal(t, "TOKX", got.Symbol)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Token X", *got.Name)
}

func TestEnricherContinuesPastFailedBatch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLedgerStore()
	a := unknownEntry(t, "mint-aaa")
	b := unknownEntry(t, "mint-bbb")
	require.NoError(t, store.InsertMany(ctx, []domain.LedgerEntry{a, b}))

	source := &stubMetadata{
		failNext: 1,
		tokens: map[string]metadata.TokenMetadata{
			"mint-aaa": {ContractID: "mint-aaa", Symbol: "TOKA"},
			"mint-bbb": {ContractID: "mint-bbb", Symbol: "TOKB"},
		},
	}
	// batchSize 1 forces one batch per contract; the first one fails.
	enricher := NewEnricher(store, source, 1, 0, testLogger())

	patched, err := enricher.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, patched)
	assert.Equal(t, 2, source.calls)

	// Exactly one entry repaired, the other still pending for next pass.
	pending, err := store.List(ctx, domain.EntryFilter{})
	require.NoError(t, err)
	unknown := 0
	for _, e := range pending {
		if e.Symbol == domain.UnknownSymbol {
			unknown++
		}
	}
	assert.Equal(t, 1, unknown)
}

func TestEnricherStopsOnCancelledContext(t *testing.T) {
	store := memory.NewLedgerStore()
	a := unknownEntry(t, "mint-aaa")
	require.NoError(t, store.InsertMany(context.Background(), []domain.LedgerEntry{a}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &stubMetadata{failNext: 1}
	enricher := NewEnricher(store, source, 1, 0, testLogger())

	_, err := enricher.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
