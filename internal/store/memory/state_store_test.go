package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSettingsStore()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCursorPerChainAndAddress(t *testing.T) {
	ctx := context.Background()
	s := NewSyncStateStore()

	_, err := s.GetCursor(ctx, domain.ChainSolana, "wallet-a")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.PutCursor(ctx, domain.SyncCursor{
		Address: "wallet-a", Chain: domain.ChainSolana, LastSeenOriginID: "sig-1",
	}))
	require.NoError(t, s.PutCursor(ctx, domain.SyncCursor{
		Address: "wallet-a", Chain: domain.ChainNear, LastSeenOriginID: "tx-9",
	}))

	c, err := s.GetCursor(ctx, domain.ChainSolana, "wallet-a")
	require.NoError(t, err)
	assert.Equal(t, "sig-1", c.LastSeenOriginID)

	c, err = s.GetCursor(ctx, domain.ChainNear, "wallet-a")
	require.NoError(t, err)
	assert.Equal(t, "tx-9", c.LastSeenOriginID)

	// Newer cursor replaces the old one.
	require.NoError(t, s.PutCursor(ctx, domain.SyncCursor{
		Address: "wallet-a", Chain: domain.ChainSolana, LastSeenOriginID: "sig-2",
	}))
	c, err = s.GetCursor(ctx, domain.ChainSolana, "wallet-a")
	require.NoError(t, err)
	assert.Equal(t, "sig-2", c.LastSeenOriginID)
}

func TestAuditNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewAuditStore()

	require.NoError(t, s.Log(ctx, "entry_inserted", map[string]any{"id": "a"}))
	require.NoError(t, s.Log(ctx, "entry_patched", map[string]any{"id": "a"}))
	require.NoError(t, s.Log(ctx, "entry_deleted", map[string]any{"id": "a"}))

	rows, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "entry_deleted", rows[0].Event)
	assert.Equal(t, "entry_patched", rows[1].Event)

	rows, err = s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
