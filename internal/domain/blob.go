package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads objects to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports ledger data to object storage. Archival never deletes
// from the primary store; that is a separate, explicit step.
type Archiver interface {
	// ArchiveEntries uploads all ledger entries recorded before the cutoff
	// as JSONL and returns the number archived.
	ArchiveEntries(ctx context.Context, before time.Time) (int64, error)
	// ArchiveAudit uploads audit log rows as JSONL.
	ArchiveAudit(ctx context.Context, limit int) (int64, error)
	// SnapshotCSV uploads a CSV snapshot of the full ledger.
	SnapshotCSV(ctx context.Context) (int64, error)
}
