package s3blob

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/store/memory"
)

type fakeUploader struct {
	objects map[string]string
	types   map[string]string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: map[string]string{}, types: map[string]string{}}
}

func (f *fakeUploader) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[path] = string(body)
	f.types[path] = contentType
	return nil
}

func (f *fakeUploader) PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, _ int64) error {
	return f.Put(ctx, path, data, contentType)
}

func archiveEntryFixture(t *testing.T, symbol string, at time.Time) domain.LedgerEntry {
	t.Helper()
	origin := "sig-" + uuid.NewString()
	venue := "JUPITER"
	e := domain.LedgerEntry{
		ID:         uuid.NewString(),
		OriginID:   &origin,
		Chain:      domain.ChainSolana,
		Symbol:     symbol,
		Direction:  domain.DirectionBuy,
		UnitPrice:  0.5,
		Quantity:   100,
		BaseSymbol: "SOL",
		TotalBase:  50,
		OccurredAt: at,
		Status:     domain.EntryStatusOpen,
		Venue:      &venue,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	require.NoError(t, e.Validate())
	return e
}

func TestArchiveEntriesUploadsJSONL(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLedgerStore()
	audit := memory.NewAuditStore()
	up := newFakeUploader()

	cutoff := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertMany(ctx, []domain.LedgerEntry{
		archiveEntryFixture(t, "TOKX", cutoff.AddDate(0, -2, 0)),
		archiveEntryFixture(t, "TOKY", cutoff.AddDate(0, -1, 0)),
		archiveEntryFixture(t, "TOKZ", cutoff.AddDate(0, 1, 0)), // after cutoff, stays
	}))

	arch := NewArchiver(up, store, audit)
	count, err := arch.ArchiveEntries(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	body, ok := up.objects["archive/entries/2025-07.jsonl"]
	require.True(t, ok)
	assert.Equal(t, "application/x-ndjson", up.types["archive/entries/2025-07.jsonl"])

	lines := strings.Split(strings.TrimSpace(body), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, body, `"symbol":"TOKX"`)
	assert.NotContains(t, body, "TOKZ")

	// The cutoff never deletes from the primary store.
	remaining, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), remaining)

	trail, err := audit.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "archive_entries", trail[0].Event)
}

func TestArchiveEntriesEmptyLedger(t *testing.T) {
	up := newFakeUploader()
	arch := NewArchiver(up, memory.NewLedgerStore(), nil)

	count, err := arch.ArchiveEntries(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, up.objects)
}

func TestArchiveAudit(t *testing.T) {
	ctx := context.Background()
	audit := memory.NewAuditStore()
	require.NoError(t, audit.Log(ctx, "entry_repaired", map[string]any{"entry_id": "x"}))
	require.NoError(t, audit.Log(ctx, "entry_superseded", map[string]any{"entry_id": "y"}))

	up := newFakeUploader()
	arch := NewArchiver(up, memory.NewLedgerStore(), audit)

	count, err := arch.ArchiveAudit(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	require.Len(t, up.objects, 1)
	for _, body := range up.objects {
		assert.Contains(t, body, "entry_repaired")
		assert.Contains(t, body, "entry_superseded")
	}
}

func TestSnapshotCSV(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLedgerStore()
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertMany(ctx, []domain.LedgerEntry{
		archiveEntryFixture(t, "TOKX", at),
		archiveEntryFixture(t, "TOKY", at.Add(time.Hour)),
	}))

	up := newFakeUploader()
	arch := NewArchiver(up, store, nil)

	count, err := arch.SnapshotCSV(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.Len(t, up.objects, 1)
	for path, body := range up.objects {
		assert.True(t, strings.HasPrefix(path, "snapshots/ledger-"))
		assert.Equal(t, "text/csv", up.types[path])
		lines := strings.Split(strings.TrimSpace(body), "\n")
		require.Len(t, lines, 3) // header + 2 rows
		assert.True(t, strings.HasPrefix(lines[0], "id,origin_id,chain"))
		assert.Contains(t, body, "TOKX")
		assert.Contains(t, body, "JUPITER")
	}
}
