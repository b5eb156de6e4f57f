package engine

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// PositionAggregator folds ledger entries into per-asset positions. It is a
// pure function of the entry set plus an optional live-price map; positions
// are recomputed on every read and never stored.
type PositionAggregator struct {
	logger *slog.Logger
}

// NewPositionAggregator creates a PositionAggregator.
func NewPositionAggregator(logger *slog.Logger) *PositionAggregator {
	return &PositionAggregator{
		logger: logger.With(slog.String("component", "aggregator")),
	}
}

// Aggregate groups entries by asset identity (contract id preferred, symbol
// fallback, case-insensitive) and computes totals, averages and P&L.
// livePrices maps asset keys to current USD prices; it may be nil, in which
// case no unrealized P&L is reported.
func (a *PositionAggregator) Aggregate(entries []domain.LedgerEntry, livePrices map[string]float64) []domain.Position {
	groups := make(map[string][]*domain.LedgerEntry)
	for i := range entries {
		key := strings.ToLower(entries[i].AssetKey())
		groups[key] = append(groups[key], &entries[i])
	}

	positions := make([]domain.Position, 0, len(groups))
	for key, group := range groups {
		pos := a.fold(key, group)
		if live, ok := livePrices[key]; ok && pos.HasOpenPosition {
			u := (live - pos.AvgBuyPrice) * pos.NetQuantity
			pos.UnrealizedPnlUsd = &u
		}
		positions = append(positions, pos)
	}

	sort.Slice(positions, func(i, j int) bool {
		if !positions[i].LastTradeAt.Equal(positions[j].LastTradeAt) {
			return positions[i].LastTradeAt.After(positions[j].LastTradeAt)
		}
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions
}

func (a *PositionAggregator) fold(key string, group []*domain.LedgerEntry) domain.Position {
	pos := domain.Position{AssetKey: key}
	allClosed := true

	for _, e := range group {
		pos.EntryCount++
		if e.OccurredAt.After(pos.LastTradeAt) {
			pos.LastTradeAt = e.OccurredAt
			pos.Symbol = e.Symbol
			if e.ContractID != nil {
				pos.ContractID = *e.ContractID
			}
			if e.Name != nil {
				pos.Name = *e.Name
			}
		}
		if e.Status != domain.EntryStatusClosed {
			allClosed = false
		}

		usd, resolved := e.ValueUsd()
		if !resolved {
			pos.UnresolvedEntries++
		}

		switch e.Direction {
		case domain.DirectionBuy:
			pos.TotalBought += e.Quantity
			pos.InvestedUsd += usd
		case domain.DirectionSell:
			pos.TotalSold += e.Quantity
			pos.ReturnedUsd += usd
		}
	}

	if pos.TotalBought > 0 {
		pos.AvgBuyPrice = pos.InvestedUsd / pos.TotalBought
	}
	if pos.TotalSold > 0 {
		pos.AvgSellPrice = pos.ReturnedUsd / pos.TotalSold
	}
	pos.NetQuantity = pos.TotalBought - pos.TotalSold
	pos.HasOpenPosition = pos.NetQuantity > 0 && !allClosed
	pos.RealizedPnlUsd = a.realized(&pos)
	return pos
}

// realized computes cost-basis-of-sold P&L. When the ledger shows more sold
// than bought the buy history is incomplete, so the calculation falls back
// to returned minus invested; that case is flagged because it can equally
// mask a classification bug.
func (a *PositionAggregator) realized(pos *domain.Position) float64 {
	if pos.TotalSold <= 0 {
		return 0
	}
	if pos.TotalSold > pos.TotalBought {
		a.logger.Warn("sold exceeds bought, using returned-minus-invested fallback",
			slog.String("asset", pos.AssetKey),
			slog.Float64("sold", pos.TotalSold),
			slog.Float64("bought", pos.TotalBought),
		)
		return pos.ReturnedUsd - pos.InvestedUsd
	}
	costBasis := pos.AvgBuyPrice * math.Min(pos.TotalSold, pos.TotalBought)
	return pos.ReturnedUsd - costBasis
}
