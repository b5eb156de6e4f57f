package domain

import (
	"context"
	"time"
)

// EntryFilter narrows List queries on the ledger. Zero values mean "no
// constraint".
type EntryFilter struct {
	Chain     Chain
	AssetKey  string
	Direction Direction
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}

// LedgerStore persists ledger entries. The engine is agnostic to the backing
// implementation: a relational table and an in-memory map are equally valid.
// InsertMany must reject entries that fail LedgerEntry.Validate.
type LedgerStore interface {
	List(ctx context.Context, filter EntryFilter) ([]LedgerEntry, error)
	InsertMany(ctx context.Context, entries []LedgerEntry) error
	Patch(ctx context.Context, id string, patch EntryPatch) error
	Delete(ctx context.Context, id string) error
	GetByOriginID(ctx context.Context, originID string) (LedgerEntry, error)
	Count(ctx context.Context) (int64, error)
}

// SyncStateStore retains per-address pagination cursors between passes.
type SyncStateStore interface {
	GetCursor(ctx context.Context, chain Chain, address string) (SyncCursor, error)
	PutCursor(ctx context.Context, cursor SyncCursor) error
}

// SettingsStore is a generic key-value settings interface. Watched-address
// configuration is read and written through it; the engine does not care how
// it is backed.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log. Repair-on-origin-match
// overwrites and archive runs are recorded here.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, limit int) ([]AuditEntry, error)
}
