package engine

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

const (
	testWallet  = "WaLLet1111111111111111111111111111111111111"
	testAccount = "abstracted.account.near"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testParams() *Params {
	p := DefaultParams()
	p.StablecoinContracts = []string{"usdc.contract.near"}
	return &p
}

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	return NewNormalizer(testParams(), testLogger())
}

func swapEvent(id string) *domain.RawEvent {
	return &domain.RawEvent{
		Chain:     domain.ChainSolana,
		ID:        id,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNormalizeSwapSummaryNativeForToken(t *testing.T) {
	n := newTestNormalizer(t)

	ev := swapEvent("sig-1")
	ev.NativeInput = 2.0
	ev.TokenOutputs = []domain.AssetAmount{
		{Symbol: "TOKX", ContractID: "mintTOKX", Amount: 1_000_000},
	}

	leg, err := n.Normalize(ev, testWallet, &RunContext{})
	require.NoError(t, err)
	assert.Equal(t, "SOL", leg.Out.Symbol)
	assert.Equal(t, 2.0, leg.Out.Amount)
	assert.Equal(t, "TOKX", leg.In.Symbol)
	assert.Equal(t, 1_000_000.0, leg.In.Amount)
}

func TestNormalizeSwapSummaryMultiHopTakesEnds(t *testing.T) {
	n := newTestNormalizer(t)

	// USDC -> RAY -> TOKX route: the first input and last output are the
	// real source and destination.
	ev := swapEvent("sig-2")
	ev.TokenInputs = []domain.AssetAmount{
		{Symbol: "USDC", Amount: 500},
		{Symbol: "RAY", Amount: 120},
	}
	ev.TokenOutputs = []domain.AssetAmount{
		{Symbol: "RAY", Amount: 120},
		{Symbol: "TOKX", ContractID: "mintTOKX", Amount: 9000},
	}

	leg, err := n.Normalize(ev, testWallet, &RunContext{})
	require.NoError(t, err)
	assert.Equal(t, "USDC", leg.Out.Symbol)
	assert.Equal(t, "TOKX", leg.In.Symbol)
	assert.Equal(t, 9000.0, leg.In.Amount)
}

func TestNormalizeNativeLegWinsOverTokenList(t *testing.T) {
	n := newTestNormalizer(t)

	ev := swapEvent("sig-3")
	ev.NativeOutput = 3.5
	ev.TokenInputs = []domain.AssetAmount{
		{Symbol: "TOKX", ContractID: "mintTOKX", Amount: 1000},
	}
	ev.TokenOutputs = []domain.AssetAmount{
		{Symbol: "WSOL", Amount: 3.5},
	}

	leg, err := n.Normalize(ev, testWallet, &RunContext{})
	require.NoError(t, err)
	assert.Equal(t, "SOL", leg.In.Symbol)
	assert.Equal(t, 3.5, leg.In.Amount)
}

func TestNormalizeTwoTransferSynthesis(t *testing.T) {
	n := newTestNormalizer(t)

	ev := swapEvent("sig-4")
	ev.Transfers = []domain.TokenTransfer{
		{ContractID: "mintUSDC", Symbol: "USDC", Amount: 150, From: testWallet, To: "pool"},
		{ContractID: "mintTOKX", Symbol: "TOKX", Amount: 42_000, From: "pool", To: testWallet},
	}

	leg, err := n.Normalize(ev, testWallet, &RunContext{})
	require.NoError(t, err)
	assert.Equal(t, "USDC", leg.Out.Symbol)
	assert.Equal(t, "TOKX", leg.In.Symbol)
	require.NotNil(t, leg.OutTransfer)
	require.NotNil(t, leg.InTransfer)
	assert.False(t, leg.Discovered)
}

func TestNormalizeSameAssetBothWaysIsUnclassifiable(t *testing.T) {
	n := newTestNormalizer(t)

	ev := swapEvent("sig-5")
	ev.Transfers = []domain.TokenTransfer{
		{ContractID: "mintTOKX", Symbol: "TOKX", Amount: 10, From: testWallet, To: "other"},
		{ContractID: "mintTOKX", Symbol: "TOKX", Amount: 10, From: "other", To: testWallet},
	}

	_, err := n.Normalize(ev, testWallet, &RunContext{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnclassifiable))
}

func TestNormalizeRelayedDiscoveryViaLearnedAccount(t *testing.T) {
	n := newTestNormalizer(t)

	ev := swapEvent("tx-near-1")
	ev.Chain = domain.ChainNear
	ev.Transfers = []domain.TokenTransfer{
		{ContractID: "mintTOKX", Symbol: "TOKX", Amount: 5000, From: "solver", To: testWallet},
		{ContractID: "usdc.contract.near", Symbol: "USDC", Amount: 75, From: testAccount, To: "solver"},
		{ContractID: "mintOther", Symbol: "JUNK", Amount: 999, From: "a", To: "b"},
	}

	rc := &RunContext{AbstractedAccount: testAccount}
	leg, err := n.Normalize(ev, testWallet, rc)
	require.NoError(t, err)
	assert.True(t, leg.Discovered)
	assert.Equal(t, "TOKX", leg.In.Symbol)
	assert.Equal(t, "USDC", leg.Out.Symbol)
	assert.Equal(t, 75.0, leg.Out.Amount)
}

func TestNormalizeRelayedStablecoinContractFallback(t *testing.T) {
	n := newTestNormalizer(t)

	// No learned account yet: any positive stablecoin-contract transfer is
	// accepted as the counter-asset.
	ev := swapEvent("tx-near-2")
	ev.Chain = domain.ChainNear
	ev.Transfers = []domain.TokenTransfer{
		{ContractID: "mintTOKX", Symbol: "TOKX", Amount: 5000, From: "solver", To: testWallet},
		{ContractID: "usdc.contract.near", Amount: 80, From: "somewhere", To: "solver"},
	}

	leg, err := n.Normalize(ev, testWallet, &RunContext{})
	require.NoError(t, err)
	assert.True(t, leg.Discovered)
	assert.Equal(t, 80.0, leg.Out.Amount)
	assert.Equal(t, "usdc.contract.near", leg.Out.ContractID)
}

func TestNormalizeRelayedWrappedNativeFallbackPicksLargest(t *testing.T) {
	n := newTestNormalizer(t)

	ev := swapEvent("tx-near-3")
	ev.Chain = domain.ChainNear
	ev.Transfers = []domain.TokenTransfer{
		{ContractID: "mintTOKX", Symbol: "TOKX", Amount: 5000, From: testWallet, To: "solver"},
		{ContractID: "wsol.mint", Symbol: "WSOL", Amount: 0.4, From: "a", To: "b"},
		{ContractID: "wsol.mint", Symbol: "WSOL", Amount: 1.9, From: "c", To: "d"},
	}

	leg, err := n.Normalize(ev, testWallet, &RunContext{})
	require.NoError(t, err)
	assert.True(t, leg.Discovered)
	assert.Equal(t, "TOKX", leg.Out.Symbol)
	assert.Equal(t, "WSOL", leg.In.Symbol)
	assert.Equal(t, 1.9, leg.In.Amount)
}

func TestNormalizeRelayedNoCounterIsUnclassifiable(t *testing.T) {
	n := newTestNormalizer(t)

	ev := swapEvent("tx-near-4")
	ev.Chain = domain.ChainNear
	ev.Transfers = []domain.TokenTransfer{
		{ContractID: "mintTOKX", Symbol: "TOKX", Amount: 5000, From: "solver", To: testWallet},
	}

	_, err := n.Normalize(ev, testWallet, &RunContext{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnclassifiable))
}

func TestNormalizeUnknownUnknownAmountHeuristic(t *testing.T) {
	n := newTestNormalizer(t)

	ev := swapEvent("sig-6")
	ev.Transfers = []domain.TokenTransfer{
		{ContractID: "mintA", Amount: 2.5, From: testWallet, To: "pool"},
		{ContractID: "mintB", Amount: 800_000, From: "pool", To: testWallet},
	}

	leg, err := n.Normalize(ev, testWallet, &RunContext{})
	require.NoError(t, err)
	assert.Equal(t, "SOL", leg.Out.Symbol)
	assert.Equal(t, domain.UnknownSymbol, leg.In.Symbol)
}

func TestNormalizeSymbolFallsBackToUnknown(t *testing.T) {
	n := newTestNormalizer(t)

	ev := swapEvent("sig-7")
	ev.Transfers = []domain.TokenTransfer{
		{ContractID: "mintA", Amount: 500, From: testWallet, To: "pool"},
		{ContractID: "mintB", Amount: 800, From: "pool", To: testWallet},
	}

	leg, err := n.Normalize(ev, testWallet, &RunContext{})
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownSymbol, leg.In.Symbol)
	assert.Equal(t, domain.UnknownSymbol, leg.Out.Symbol)
}

func TestRunContextLearnsOnce(t *testing.T) {
	rc := &RunContext{}
	rc.Learn(testAccount)
	rc.Learn("someone.else.near")
	assert.Equal(t, testAccount, rc.AbstractedAccount)
}
