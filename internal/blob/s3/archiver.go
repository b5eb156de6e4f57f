package s3blob

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// uploader is the slice of Writer the archiver needs. Tests substitute an
// in-memory implementation.
type uploader interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error
}

// Archiver implements domain.Archiver: it exports ledger data to object
// storage as JSONL and CSV. It never deletes from the primary store.
type Archiver struct {
	writer  uploader
	entries domain.LedgerStore
	audit   domain.AuditStore
}

// NewArchiver creates an Archiver. audit may be nil.
func NewArchiver(writer uploader, entries domain.LedgerStore, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer:  writer,
		entries: entries,
		audit:   audit,
	}
}

// archivedEntry is the export shape of a ledger entry. The domain struct
// carries no serialization tags, so the archive format is pinned here.
type archivedEntry struct {
	ID           string   `json:"id"`
	OriginID     *string  `json:"origin_id,omitempty"`
	Chain        string   `json:"chain"`
	Symbol       string   `json:"symbol"`
	ContractID   *string  `json:"contract_id,omitempty"`
	Name         *string  `json:"name,omitempty"`
	Direction    string   `json:"direction"`
	UnitPrice    float64  `json:"unit_price"`
	Quantity     float64  `json:"quantity"`
	BaseSymbol   string   `json:"base_symbol"`
	BaseUsdPrice *float64 `json:"base_usd_price,omitempty"`
	TotalBase    float64  `json:"total_base"`
	TotalUsd     *float64 `json:"total_usd,omitempty"`
	OccurredAt   string   `json:"occurred_at"`
	Status       string   `json:"status"`
	Venue        *string  `json:"venue,omitempty"`
}

func toArchived(e domain.LedgerEntry) archivedEntry {
	return archivedEntry{
		ID:           e.ID,
		OriginID:     e.OriginID,
		Chain:        string(e.Chain),
		Symbol:       e.Symbol,
		ContractID:   e.ContractID,
		Name:         e.Name,
		Direction:    string(e.Direction),
		UnitPrice:    e.UnitPrice,
		Quantity:     e.Quantity,
		BaseSymbol:   e.BaseSymbol,
		BaseUsdPrice: e.BaseUsdPrice,
		TotalBase:    e.TotalBase,
		TotalUsd:     e.TotalUsd,
		OccurredAt:   e.OccurredAt.UTC().Format(time.RFC3339),
		Status:       string(e.Status),
		Venue:        e.Venue,
	}
}

// ArchiveEntries uploads all entries recorded before the cutoff as JSONL at
// archive/entries/YYYY-MM.jsonl and returns the count.
func (a *Archiver) ArchiveEntries(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.listBefore(ctx, before)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	records := make([]archivedEntry, len(entries))
	for i, e := range entries {
		records[i] = toArchived(e)
	}
	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive entries marshal: %w", err)
	}

	path := archivePath("entries", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive entries upload: %w", err)
	}

	count := int64(len(entries))
	a.auditLog(ctx, "archive_entries", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	})
	return count, nil
}

// ArchiveAudit uploads the most recent audit rows as JSONL at
// archive/audit/<timestamp>.jsonl and returns the count.
func (a *Archiver) ArchiveAudit(ctx context.Context, limit int) (int64, error) {
	if a.audit == nil {
		return 0, nil
	}
	rows, err := a.audit.List(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(rows)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}

	path := fmt.Sprintf("archive/audit/%s.jsonl", time.Now().UTC().Format("2006-01-02T15-04-05"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit upload: %w", err)
	}
	return int64(len(rows)), nil
}

// SnapshotCSV uploads a CSV snapshot of the full ledger at
// snapshots/ledger-<timestamp>.csv and returns the number of rows written.
// The upload goes through the multipart path since a full ledger snapshot
// has no useful size bound.
func (a *Archiver) SnapshotCSV(ctx context.Context) (int64, error) {
	entries, err := a.listBefore(ctx, time.Time{})
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{
		"id", "origin_id", "chain", "symbol", "contract_id", "direction",
		"unit_price", "quantity", "base_symbol", "base_usd_price",
		"total_base", "total_usd", "occurred_at", "status", "venue",
	}
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("s3blob: snapshot header: %w", err)
	}
	for i := range entries {
		if err := w.Write(csvRow(&entries[i])); err != nil {
			return 0, fmt.Errorf("s3blob: snapshot row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("s3blob: snapshot flush: %w", err)
	}

	path := fmt.Sprintf("snapshots/ledger-%s.csv", time.Now().UTC().Format("2006-01-02T15-04-05"))
	if err := a.writer.PutMultipart(ctx, path, &buf, "text/csv", 0); err != nil {
		return 0, fmt.Errorf("s3blob: snapshot upload: %w", err)
	}

	count := int64(len(entries))
	a.auditLog(ctx, "snapshot_csv", map[string]any{
		"path":  path,
		"count": count,
	})
	return count, nil
}

// listBefore pages through the ledger; a zero cutoff means everything.
func (a *Archiver) listBefore(ctx context.Context, before time.Time) ([]domain.LedgerEntry, error) {
	const pageSize = 1000
	filter := domain.EntryFilter{Limit: pageSize}
	if !before.IsZero() {
		filter.Until = &before
	}

	var all []domain.LedgerEntry
	for offset := 0; ; offset += pageSize {
		filter.Offset = offset
		page, err := a.entries.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list entries: %w", err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
	}
	return all, nil
}

func (a *Archiver) auditLog(ctx context.Context, event string, detail map[string]any) {
	if a.audit == nil {
		return
	}
	// Archive uploads already succeeded; a failed audit write is not worth
	// failing the operation over.
	_ = a.audit.Log(ctx, event, detail)
}

func csvRow(e *domain.LedgerEntry) []string {
	return []string{
		e.ID,
		strDeref(e.OriginID),
		string(e.Chain),
		e.Symbol,
		strDeref(e.ContractID),
		string(e.Direction),
		formatFloat(e.UnitPrice),
		formatFloat(e.Quantity),
		e.BaseSymbol,
		floatDeref(e.BaseUsdPrice),
		formatFloat(e.TotalBase),
		floatDeref(e.TotalUsd),
		e.OccurredAt.UTC().Format(time.RFC3339),
		string(e.Status),
		strDeref(e.Venue),
	}
}

// archivePath partitions archive files by the year-month of the cutoff.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serializes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatDeref(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Compile-time interface checks.
var (
	_ domain.Archiver   = (*Archiver)(nil)
	_ domain.BlobWriter = (*Writer)(nil)
)
