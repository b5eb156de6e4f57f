package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// LedgerStore implements domain.LedgerStore using PostgreSQL.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a new LedgerStore backed by the given connection
// pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

const entrySelectCols = `id, origin_id, chain, symbol, contract_id, name, image_url,
	direction, unit_price, quantity, base_symbol, base_usd_price,
	total_base, total_usd, occurred_at, status, venue, created_at, updated_at`

func scanEntryRows(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := row.Scan(
		&e.ID, &e.OriginID, &e.Chain, &e.Symbol, &e.ContractID, &e.Name, &e.ImageURL,
		&e.Direction, &e.UnitPrice, &e.Quantity, &e.BaseSymbol, &e.BaseUsdPrice,
		&e.TotalBase, &e.TotalUsd, &e.OccurredAt, &e.Status, &e.Venue,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// List returns entries matching the filter, most recent first.
func (s *LedgerStore) List(ctx context.Context, filter domain.EntryFilter) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entrySelectCols + ` FROM ledger_entries WHERE 1=1`
	args := []any{}
	argIdx := 1

	if filter.Chain != "" {
		query += fmt.Sprintf(" AND chain = $%d", argIdx)
		args = append(args, string(filter.Chain))
		argIdx++
	}
	if filter.AssetKey != "" {
		query += fmt.Sprintf(" AND LOWER(COALESCE(contract_id, symbol)) = LOWER($%d)", argIdx)
		args = append(args, filter.AssetKey)
		argIdx++
	}
	if filter.Direction != "" {
		query += fmt.Sprintf(" AND direction = $%d", argIdx)
		args = append(args, string(filter.Direction))
		argIdx++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(" AND occurred_at >= $%d", argIdx)
		args = append(args, *filter.Since)
		argIdx++
	}
	if filter.Until != nil {
		query += fmt.Sprintf(" AND occurred_at < $%d", argIdx)
		args = append(args, *filter.Until)
		argIdx++
	}

	query += " ORDER BY occurred_at DESC, id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntryRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan entries: %w", err)
	}
	return entries, nil
}

// InsertMany validates and inserts the entries using a pgx batch. Entries
// whose origin_id is already present are silently skipped via ON CONFLICT DO
// NOTHING; the deduplicator remains the semantic dedup layer, this is a
// last-resort race guard.
func (s *LedgerStore) InsertMany(ctx context.Context, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return fmt.Errorf("postgres: insert: %w", err)
		}
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO ledger_entries (
			id, origin_id, chain, symbol, contract_id, name, image_url,
			direction, unit_price, quantity, base_symbol, base_usd_price,
			total_base, total_usd, occurred_at, status, venue,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19
		) ON CONFLICT (origin_id) WHERE origin_id IS NOT NULL DO NOTHING`

	for _, e := range entries {
		batch.Queue(query,
			e.ID, e.OriginID, string(e.Chain), e.Symbol, e.ContractID, e.Name, e.ImageURL,
			string(e.Direction), e.UnitPrice, e.Quantity, e.BaseSymbol, e.BaseUsdPrice,
			e.TotalBase, e.TotalUsd, e.OccurredAt, string(e.Status), e.Venue,
			e.CreatedAt, e.UpdatedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert entry %d/%d: %w", i+1, len(entries), err)
		}
	}
	return nil
}

// Patch applies the non-nil fields of the patch to the entry.
func (s *LedgerStore) Patch(ctx context.Context, id string, patch domain.EntryPatch) error {
	sets := []string{"updated_at = NOW()"}
	args := []any{}
	argIdx := 1

	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if patch.OriginID != nil {
		add("origin_id", *patch.OriginID)
	}
	if patch.Symbol != nil {
		add("symbol", *patch.Symbol)
	}
	if patch.ContractID != nil {
		add("contract_id", *patch.ContractID)
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}
	if patch.Direction != nil {
		add("direction", string(*patch.Direction))
	}
	if patch.UnitPrice != nil {
		add("unit_price", *patch.UnitPrice)
	}
	if patch.Quantity != nil {
		add("quantity", *patch.Quantity)
	}
	if patch.BaseSymbol != nil {
		add("base_symbol", *patch.BaseSymbol)
	}
	if patch.BaseUsdPrice != nil {
		add("base_usd_price", *patch.BaseUsdPrice)
	}
	if patch.TotalBase != nil {
		add("total_base", *patch.TotalBase)
	}
	if patch.TotalUsd != nil {
		add("total_usd", *patch.TotalUsd)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Venue != nil {
		add("venue", *patch.Venue)
	}

	query := fmt.Sprintf("UPDATE ledger_entries SET %s WHERE id = $%d",
		strings.Join(sets, ", "), argIdx)
	args = append(args, id)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: patch entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: patch entry %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes the entry.
func (s *LedgerStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM ledger_entries WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres: delete entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete entry %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetByOriginID returns the entry traceable to the given transaction.
func (s *LedgerStore) GetByOriginID(ctx context.Context, originID string) (domain.LedgerEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+entrySelectCols+` FROM ledger_entries WHERE origin_id = $1`,
		originID,
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LedgerEntry{}, fmt.Errorf("postgres: origin %s: %w", originID, domain.ErrNotFound)
		}
		return domain.LedgerEntry{}, fmt.Errorf("postgres: get by origin %s: %w", originID, err)
	}
	return e, nil
}

// Count returns the total number of stored entries.
func (s *LedgerStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count entries: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.LedgerStore = (*LedgerStore)(nil)
