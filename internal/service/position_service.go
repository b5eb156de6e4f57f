package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/engine"
)

// PositionService derives the position view from the current ledger. It
// never persists anything; positions are recomputed on every read.
type PositionService struct {
	entries    domain.LedgerStore
	aggregator *engine.PositionAggregator
	prices     domain.PriceCache
	logger     *slog.Logger
}

// NewPositionService creates a PositionService. prices may be nil, in which
// case unrealized P&L is left unset on every position.
func NewPositionService(entries domain.LedgerStore, aggregator *engine.PositionAggregator, prices domain.PriceCache, logger *slog.Logger) *PositionService {
	return &PositionService{
		entries:    entries,
		aggregator: aggregator,
		prices:     prices,
		logger:     logger.With(slog.String("component", "position_service")),
	}
}

// Positions aggregates the full ledger into per-asset positions, most
// recently traded first.
func (s *PositionService) Positions(ctx context.Context) ([]domain.Position, error) {
	entries, err := s.allEntries(ctx)
	if err != nil {
		return nil, err
	}
	return s.aggregator.Aggregate(entries, s.livePrices(ctx, entries)), nil
}

// Position returns the aggregate for a single asset key.
func (s *PositionService) Position(ctx context.Context, assetKey string) (domain.Position, error) {
	entries, err := s.entries.List(ctx, domain.EntryFilter{AssetKey: assetKey})
	if err != nil {
		return domain.Position{}, fmt.Errorf("position_service: list entries: %w", err)
	}
	if len(entries) == 0 {
		return domain.Position{}, fmt.Errorf("position_service: asset %s: %w", assetKey, domain.ErrNotFound)
	}
	positions := s.aggregator.Aggregate(entries, s.livePrices(ctx, entries))
	return positions[0], nil
}

func (s *PositionService) allEntries(ctx context.Context) ([]domain.LedgerEntry, error) {
	const pageSize = 1000
	var all []domain.LedgerEntry
	for offset := 0; ; offset += pageSize {
		page, err := s.entries.List(ctx, domain.EntryFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("position_service: list entries: %w", err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
	}
	return all, nil
}

// livePrices looks up a cached spot price for every distinct asset in the
// entry set. Cache misses simply leave the position without unrealized P&L.
func (s *PositionService) livePrices(ctx context.Context, entries []domain.LedgerEntry) map[string]float64 {
	if s.prices == nil {
		return nil
	}
	live := make(map[string]float64)
	for i := range entries {
		key := strings.ToLower(entries[i].AssetKey())
		if _, seen := live[key]; seen {
			continue
		}
		price, _, err := s.prices.GetPrice(ctx, key)
		if err != nil || price <= 0 {
			continue
		}
		live[key] = price
	}
	return live
}
