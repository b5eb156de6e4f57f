package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatchlistMergesStaticAndDynamic(t *testing.T) {
	static := []domain.WatchedAddress{
		{Address: "Wallet1", Chain: domain.ChainSolana, Label: "main"},
	}
	svc := NewWatchlistService(memory.NewSettingsStore(), static, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, domain.WatchedAddress{Address: "wallet.near", Chain: domain.ChainNear}))

	addrs, err := svc.Addresses(ctx)
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.Equal(t, "Wallet1", addrs[0].Address)
	assert.Equal(t, "wallet.near", addrs[1].Address)
}

func TestWatchlistAddDuplicateRejected(t *testing.T) {
	static := []domain.WatchedAddress{
		{Address: "Wallet1", Chain: domain.ChainSolana},
	}
	svc := NewWatchlistService(memory.NewSettingsStore(), static, testLogger())
	ctx := context.Background()

	err := svc.Add(ctx, domain.WatchedAddress{Address: "wallet1", Chain: domain.ChainSolana})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestWatchlistAddValidates(t *testing.T) {
	svc := NewWatchlistService(memory.NewSettingsStore(), nil, testLogger())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Add(ctx, domain.WatchedAddress{Chain: domain.ChainSolana}), domain.ErrInvariant)
	assert.ErrorIs(t, svc.Add(ctx, domain.WatchedAddress{Address: "x", Chain: "dogechain"}), domain.ErrInvariant)
}

func TestWatchlistRemove(t *testing.T) {
	svc := NewWatchlistService(memory.NewSettingsStore(), nil, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, domain.WatchedAddress{Address: "wallet.near", Chain: domain.ChainNear}))
	require.NoError(t, svc.Remove(ctx, "wallet.near"))

	addrs, err := svc.Addresses(ctx)
	require.NoError(t, err)
	assert.Empty(t, addrs)

	assert.ErrorIs(t, svc.Remove(ctx, "wallet.near"), domain.ErrNotFound)
}

func TestWatchlistCannotRemoveStatic(t *testing.T) {
	static := []domain.WatchedAddress{
		{Address: "Wallet1", Chain: domain.ChainSolana},
	}
	svc := NewWatchlistService(memory.NewSettingsStore(), static, testLogger())

	err := svc.Remove(context.Background(), "Wallet1")
	assert.ErrorIs(t, err, domain.ErrInvariant)
}

func TestWatchlistSurvivesReload(t *testing.T) {
	settings := memory.NewSettingsStore()
	ctx := context.Background()

	first := NewWatchlistService(settings, nil, testLogger())
	require.NoError(t, first.Add(ctx, domain.WatchedAddress{Address: "wallet.near", Chain: domain.ChainNear, Label: "nft"}))

	second := NewWatchlistService(settings, nil, testLogger())
	addrs, err := second.Addresses(ctx)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, "nft", addrs[0].Label)
}
