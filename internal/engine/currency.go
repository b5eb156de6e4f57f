package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// CurrencyNormalizer turns a classified leg into a ledger entry, splitting
// the flow into a base side (money) and an asset side (the tracked token)
// and resolving the base currency to USD.
//
// Stablecoins convert 1:1. The native coin and wrapped variants convert at
// the spot price supplied for this sync pass; that rate is persisted on the
// entry so later price moves never revalue history. With no price available
// the USD fields stay nil and aggregation reports the entry as unresolved.
type CurrencyNormalizer struct {
	params *Params
	logger *slog.Logger
}

// NewCurrencyNormalizer creates a CurrencyNormalizer.
func NewCurrencyNormalizer(params *Params, logger *slog.Logger) *CurrencyNormalizer {
	params.normalize()
	return &CurrencyNormalizer{
		params: params,
		logger: logger.With(slog.String("component", "currency")),
	}
}

// Build constructs a validated entry from a classified leg. nativeUsd is the
// spot USD price of the native coin for this pass; zero means unavailable.
func (c *CurrencyNormalizer) Build(leg *domain.RawLeg, dir domain.Direction, nativeUsd float64) (domain.LedgerEntry, error) {
	var base, asset domain.AssetAmount
	if dir == domain.DirectionBuy {
		base, asset = leg.Out, leg.In
	} else {
		base, asset = leg.In, leg.Out
	}

	if asset.Amount <= 0 {
		return domain.LedgerEntry{}, fmt.Errorf("currency: event %s: zero asset quantity: %w",
			leg.Event.ID, domain.ErrInvariant)
	}

	now := time.Now().UTC()
	originID := leg.Event.ID

	entry := domain.LedgerEntry{
		ID:         uuid.NewString(),
		OriginID:   &originID,
		Chain:      leg.Event.Chain,
		Symbol:     asset.Symbol,
		Direction:  dir,
		Quantity:   asset.Amount,
		BaseSymbol: base.Symbol,
		TotalBase:  base.Amount,
		UnitPrice:  base.Amount / asset.Amount,
		OccurredAt: leg.Event.Timestamp.UTC(),
		Status:     domain.EntryStatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if asset.ContractID != "" {
		entry.ContractID = &asset.ContractID
	}
	if asset.Name != "" {
		entry.Name = &asset.Name
	}
	if leg.Event.Source != "" {
		entry.Venue = &leg.Event.Source
	}

	switch {
	case c.params.IsStablecoin(base.Symbol):
		one := 1.0
		usd := entry.TotalBase
		entry.BaseUsdPrice = &one
		entry.TotalUsd = &usd
	case nativeUsd > 0:
		rate := nativeUsd
		usd := entry.TotalBase * rate
		entry.BaseUsdPrice = &rate
		entry.TotalUsd = &usd
	default:
		c.logger.Warn("no native price for this pass, entry stays unresolved",
			slog.String("event", leg.Event.ID),
			slog.String("base", base.Symbol),
		)
	}

	if err := entry.Validate(); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("currency: event %s: %w", leg.Event.ID, err)
	}
	return entry, nil
}
