package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// SyncStateStore implements domain.SyncStateStore using PostgreSQL.
type SyncStateStore struct {
	pool *pgxpool.Pool
}

// NewSyncStateStore creates a new SyncStateStore backed by the given
// connection pool.
func NewSyncStateStore(pool *pgxpool.Pool) *SyncStateStore {
	return &SyncStateStore{pool: pool}
}

// GetCursor returns the stored pagination cursor for the address.
func (s *SyncStateStore) GetCursor(ctx context.Context, chain domain.Chain, address string) (domain.SyncCursor, error) {
	var cursor domain.SyncCursor
	var lastSeen *string

	err := s.pool.QueryRow(ctx,
		`SELECT chain, address, last_seen_origin_id FROM sync_cursors WHERE chain = $1 AND address = $2`,
		string(chain), address,
	).Scan(&cursor.Chain, &cursor.Address, &lastSeen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SyncCursor{}, fmt.Errorf("postgres: cursor %s/%s: %w", chain, address, domain.ErrNotFound)
		}
		return domain.SyncCursor{}, fmt.Errorf("postgres: get cursor %s/%s: %w", chain, address, err)
	}
	if lastSeen != nil {
		cursor.LastSeenOriginID = *lastSeen
	}
	return cursor, nil
}

// PutCursor stores or replaces the cursor.
func (s *SyncStateStore) PutCursor(ctx context.Context, cursor domain.SyncCursor) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_cursors (chain, address, last_seen_origin_id, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (chain, address) DO UPDATE
		 SET last_seen_origin_id = EXCLUDED.last_seen_origin_id, updated_at = NOW()`,
		string(cursor.Chain), cursor.Address, nullableStr(cursor.LastSeenOriginID),
	)
	if err != nil {
		return fmt.Errorf("postgres: put cursor %s/%s: %w", cursor.Chain, cursor.Address, err)
	}
	return nil
}

func nullableStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time interface check.
var _ domain.SyncStateStore = (*SyncStateStore)(nil)
