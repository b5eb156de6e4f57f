package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

func newTestAggregator(t *testing.T) *PositionAggregator {
	t.Helper()
	return NewPositionAggregator(testLogger())
}

func usdEntry(dir domain.Direction, qty, totalBase, baseUsd float64, at time.Time) domain.LedgerEntry {
	e := domain.LedgerEntry{
		ID:         "id-" + at.Format(time.RFC3339Nano),
		Chain:      domain.ChainSolana,
		Symbol:     "TOKX",
		Direction:  dir,
		Quantity:   qty,
		UnitPrice:  totalBase / qty,
		BaseSymbol: "SOL",
		TotalBase:  totalBase,
		OccurredAt: at,
		Status:     domain.EntryStatusOpen,
	}
	contract := "mintTOKX"
	e.ContractID = &contract
	if baseUsd > 0 {
		rate := baseUsd
		usd := totalBase * baseUsd
		e.BaseUsdPrice = &rate
		e.TotalUsd = &usd
	}
	return e
}

func TestAggregateBuyThenSellRealizedPnl(t *testing.T) {
	a := newTestAggregator(t)
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Buy 1,000,000 TOKX for 2 SOL at $100/SOL, sell all for 3 SOL at the
	// same rate: invested $200, returned $300, realized $100.
	entries := []domain.LedgerEntry{
		usdEntry(domain.DirectionBuy, 1_000_000, 2.0, 100, t0),
		usdEntry(domain.DirectionSell, 1_000_000, 3.0, 100, t0.Add(time.Hour)),
	}

	positions := a.Aggregate(entries, nil)
	require.Len(t, positions, 1)
	pos := positions[0]

	assert.Equal(t, 1_000_000.0, pos.TotalBought)
	assert.Equal(t, 1_000_000.0, pos.TotalSold)
	assert.InDelta(t, 200.0, pos.InvestedUsd, 1e-9)
	assert.InDelta(t, 300.0, pos.ReturnedUsd, 1e-9)
	assert.InDelta(t, 100.0, pos.RealizedPnlUsd, 1e-9)
	assert.Equal(t, 0.0, pos.NetQuantity)
	assert.False(t, pos.HasOpenPosition)
	assert.Equal(t, 2, pos.EntryCount)
}

func TestAggregatePartialSellUsesCostBasisOfSold(t *testing.T) {
	a := newTestAggregator(t)
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Buy 1000 for $200 (avg $0.20), sell 400 for $120. Cost basis of the
	// sold portion is 0.20*400 = $80, realized $40.
	entries := []domain.LedgerEntry{
		usdEntry(domain.DirectionBuy, 1000, 2.0, 100, t0),
		usdEntry(domain.DirectionSell, 400, 1.2, 100, t0.Add(time.Hour)),
	}

	positions := a.Aggregate(entries, nil)
	require.Len(t, positions, 1)
	pos := positions[0]

	assert.InDelta(t, 0.2, pos.AvgBuyPrice, 1e-9)
	assert.InDelta(t, 40.0, pos.RealizedPnlUsd, 1e-9)
	assert.Equal(t, 600.0, pos.NetQuantity)
	assert.True(t, pos.HasOpenPosition)

	// The cost basis can never exceed avgBuyPrice * totalBought.
	costBasis := pos.ReturnedUsd - pos.RealizedPnlUsd
	assert.LessOrEqual(t, costBasis, pos.AvgBuyPrice*pos.TotalBought+1e-9)
}

func TestAggregateSoldExceedsBoughtFallsBack(t *testing.T) {
	a := newTestAggregator(t)
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Sell records without matching buy history: returned minus invested,
	// never an inflated cost basis.
	entries := []domain.LedgerEntry{
		usdEntry(domain.DirectionBuy, 100, 0.5, 100, t0),
		usdEntry(domain.DirectionSell, 500, 3.0, 100, t0.Add(time.Hour)),
	}

	positions := a.Aggregate(entries, nil)
	require.Len(t, positions, 1)
	pos := positions[0]

	assert.InDelta(t, 300.0-50.0, pos.RealizedPnlUsd, 1e-9)
}

func TestAggregateUnrealizedForOpenPositions(t *testing.T) {
	a := newTestAggregator(t)
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	entries := []domain.LedgerEntry{
		usdEntry(domain.DirectionBuy, 1000, 2.0, 100, t0), // avg $0.20
	}

	positions := a.Aggregate(entries, map[string]float64{"minttokx": 0.5})
	require.Len(t, positions, 1)
	pos := positions[0]

	require.NotNil(t, pos.UnrealizedPnlUsd)
	assert.InDelta(t, (0.5-0.2)*1000, *pos.UnrealizedPnlUsd, 1e-9)
}

func TestAggregateNoUnrealizedWithoutLivePrice(t *testing.T) {
	a := newTestAggregator(t)
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	positions := a.Aggregate([]domain.LedgerEntry{
		usdEntry(domain.DirectionBuy, 1000, 2.0, 100, t0),
	}, nil)
	require.Len(t, positions, 1)
	assert.Nil(t, positions[0].UnrealizedPnlUsd)
}

func TestAggregateGroupsBySymbolWhenNoContract(t *testing.T) {
	a := newTestAggregator(t)
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	e1 := usdEntry(domain.DirectionBuy, 100, 1.0, 100, t0)
	e1.ContractID = nil
	e2 := usdEntry(domain.DirectionBuy, 50, 0.5, 100, t0.Add(time.Minute))
	e2.ContractID = nil
	e2.Symbol = "tokx" // case-insensitive grouping

	positions := a.Aggregate([]domain.LedgerEntry{e1, e2}, nil)
	require.Len(t, positions, 1)
	assert.Equal(t, 150.0, positions[0].TotalBought)
}

func TestAggregateCountsUnresolvedEntries(t *testing.T) {
	a := newTestAggregator(t)
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	resolved := usdEntry(domain.DirectionBuy, 1000, 2.0, 100, t0)
	unresolved := usdEntry(domain.DirectionBuy, 500, 1.0, 0, t0.Add(time.Minute))

	positions := a.Aggregate([]domain.LedgerEntry{resolved, unresolved}, nil)
	require.Len(t, positions, 1)
	pos := positions[0]

	assert.Equal(t, 1, pos.UnresolvedEntries)
	// Unresolved entries contribute quantity but no USD value.
	assert.Equal(t, 1500.0, pos.TotalBought)
	assert.InDelta(t, 200.0, pos.InvestedUsd, 1e-9)
}

func TestAggregateMetadataFromLatestEntry(t *testing.T) {
	a := newTestAggregator(t)
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	older := usdEntry(domain.DirectionBuy, 100, 1.0, 100, t0)
	older.Symbol = "Unknown"
	newer := usdEntry(domain.DirectionBuy, 50, 0.5, 100, t0.Add(time.Hour))
	name := "Token X"
	newer.Name = &name

	positions := a.Aggregate([]domain.LedgerEntry{older, newer}, nil)
	require.Len(t, positions, 1)
	assert.Equal(t, "TOKX", positions[0].Symbol)
	assert.Equal(t, "Token X", positions[0].Name)
}
