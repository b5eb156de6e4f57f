package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/platform/metadata"
)

// MetadataSource resolves token metadata for a batch of contract ids.
type MetadataSource interface {
	FetchBatch(ctx context.Context, contractIDs []string) (map[string]metadata.TokenMetadata, error)
}

// Enricher backfills symbol, name and image for ledger entries whose token
// metadata was missing at ingest time. It runs after a sync pass rather
// than inline so a slow metadata API never delays the ledger itself.
type Enricher struct {
	store      domain.LedgerStore
	source     MetadataSource
	batchSize  int
	batchDelay time.Duration
	logger     *slog.Logger
}

// NewEnricher creates an Enricher. batchSize caps the ids per metadata
// request; batchDelay spaces consecutive requests.
func NewEnricher(store domain.LedgerStore, source MetadataSource, batchSize int, batchDelay time.Duration, logger *slog.Logger) *Enricher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Enricher{
		store:      store,
		source:     source,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		logger:     logger.With(slog.String("component", "enricher")),
	}
}

// Run resolves metadata for every entry still carrying the unknown symbol
// and patches the rows in place. It returns the number of entries patched.
func (e *Enricher) Run(ctx context.Context) (int, error) {
	pending, err := e.pendingEntries(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	// Collapse to unique contract ids; multiple entries can share a token.
	byContract := make(map[string][]string)
	for _, entry := range pending {
		cid := *entry.ContractID
		byContract[cid] = append(byContract[cid], entry.ID)
	}
	ids := make([]string, 0, len(byContract))
	for cid := range byContract {
		ids = append(ids, cid)
	}

	patched := 0
	for start := 0; start < len(ids); start += e.batchSize {
		if start > 0 && e.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return patched, ctx.Err()
			case <-time.After(e.batchDelay):
			}
		}

		end := min(start+e.batchSize, len(ids))
		resolved, err := e.source.FetchBatch(ctx, ids[start:end])
		if err != nil {
			if ctx.Err() != nil {
				return patched, ctx.Err()
			}
			// One bad batch must not starve the rest; the entries stay
			// unknown and the next pass retries them.
			e.logger.Warn("metadata batch failed",
				slog.Int("contracts", end-start),
				slog.String("error", err.Error()),
			)
			continue
		}

		for cid, meta := range resolved {
			if meta.Symbol == "" {
				continue
			}
			patch := domain.EntryPatch{Symbol: &meta.Symbol}
			if meta.Name != "" {
				patch.Name = &meta.Name
			}
			if meta.ImageURL != "" {
				patch.ImageURL = &meta.ImageURL
			}
			for _, entryID := range byContract[cid] {
				if err := e.store.Patch(ctx, entryID, patch); err != nil {
					e.logger.Warn("metadata patch failed",
						slog.String("entry_id", entryID),
						slog.String("error", err.Error()),
					)
					continue
				}
				patched++
			}
		}
	}

	if patched > 0 {
		e.logger.Info("metadata backfill complete",
			slog.Int("entries_patched", patched),
			slog.Int("contracts", len(ids)),
		)
	}
	return patched, nil
}

// pendingEntries pages through the ledger and collects entries that still
// carry the unknown symbol and have a contract id to look up.
func (e *Enricher) pendingEntries(ctx context.Context) ([]domain.LedgerEntry, error) {
	const pageSize = 500
	var pending []domain.LedgerEntry

	for offset := 0; ; offset += pageSize {
		page, err := e.store.List(ctx, domain.EntryFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("pipeline: list entries for enrichment: %w", err)
		}
		for _, entry := range page {
			if entry.Symbol == domain.UnknownSymbol && entry.ContractID != nil && *entry.ContractID != "" {
				pending = append(pending, entry)
			}
		}
		if len(page) < pageSize {
			break
		}
	}
	return pending, nil
}
