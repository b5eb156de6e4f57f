package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

func newTestCurrency(t *testing.T) *CurrencyNormalizer {
	t.Helper()
	return NewCurrencyNormalizer(testParams(), testLogger())
}

func TestBuildEntryNativeBaseBuy(t *testing.T) {
	c := newTestCurrency(t)

	leg := legOf(
		domain.AssetAmount{Symbol: "SOL", Amount: 2},
		domain.AssetAmount{Symbol: "TOKX", ContractID: "mintTOKX", Amount: 1_000_000},
		"",
	)
	leg.Event.Source = "JUPITER"

	entry, err := c.Build(leg, domain.DirectionBuy, 100)
	require.NoError(t, err)

	assert.Equal(t, domain.DirectionBuy, entry.Direction)
	assert.Equal(t, "TOKX", entry.Symbol)
	assert.Equal(t, 1_000_000.0, entry.Quantity)
	assert.Equal(t, "SOL", entry.BaseSymbol)
	assert.Equal(t, 2.0, entry.TotalBase)
	require.NotNil(t, entry.BaseUsdPrice)
	assert.Equal(t, 100.0, *entry.BaseUsdPrice)
	require.NotNil(t, entry.TotalUsd)
	assert.Equal(t, 200.0, *entry.TotalUsd)
	require.NotNil(t, entry.Venue)
	assert.Equal(t, "JUPITER", *entry.Venue)
	require.NotNil(t, entry.OriginID)
	assert.Equal(t, leg.Event.ID, *entry.OriginID)
}

func TestBuildEntryStablecoinBaseIsOneToOne(t *testing.T) {
	c := newTestCurrency(t)

	leg := legOf(
		domain.AssetAmount{Symbol: "TOKX", ContractID: "mintTOKX", Amount: 400},
		domain.AssetAmount{Symbol: "USDC", Amount: 150},
		"",
	)

	// Spot price must be ignored for stablecoin bases.
	entry, err := c.Build(leg, domain.DirectionSell, 100)
	require.NoError(t, err)

	assert.Equal(t, "USDC", entry.BaseSymbol)
	require.NotNil(t, entry.BaseUsdPrice)
	assert.Equal(t, 1.0, *entry.BaseUsdPrice)
	require.NotNil(t, entry.TotalUsd)
	assert.Equal(t, 150.0, *entry.TotalUsd)
}

func TestBuildEntryWithoutPriceStaysUnresolved(t *testing.T) {
	c := newTestCurrency(t)

	leg := legOf(
		domain.AssetAmount{Symbol: "SOL", Amount: 2},
		domain.AssetAmount{Symbol: "TOKX", Amount: 1000},
		"",
	)

	entry, err := c.Build(leg, domain.DirectionBuy, 0)
	require.NoError(t, err)

	assert.Nil(t, entry.BaseUsdPrice)
	assert.Nil(t, entry.TotalUsd)
	_, resolved := entry.ValueUsd()
	assert.False(t, resolved)
}

func TestBuildEntrySatisfiesValueInvariant(t *testing.T) {
	c := newTestCurrency(t)

	leg := legOf(
		domain.AssetAmount{Symbol: "SOL", Amount: 1.7},
		domain.AssetAmount{Symbol: "TOKX", Amount: 333_333},
		"",
	)

	entry, err := c.Build(leg, domain.DirectionBuy, 92.4)
	require.NoError(t, err)
	require.NoError(t, entry.Validate())

	diff := math.Abs(entry.TotalBase - entry.UnitPrice*entry.Quantity)
	assert.Less(t, diff, domain.ValueEpsilon*math.Max(1, entry.TotalBase))
}

func TestBuildEntryRejectsZeroQuantity(t *testing.T) {
	c := newTestCurrency(t)

	leg := &domain.RawLeg{
		Event: &domain.RawEvent{Chain: domain.ChainSolana, ID: "sig-zero", Timestamp: time.Now()},
		Out:   domain.AssetAmount{Symbol: "SOL", Amount: 2},
		In:    domain.AssetAmount{Symbol: "TOKX", Amount: 0},
	}

	_, err := c.Build(leg, domain.DirectionBuy, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvariant)
}
