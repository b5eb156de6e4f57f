package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Direction is the side of a ledger entry from the wallet's perspective.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// EntryStatus tracks whether an entry still counts toward an open position.
type EntryStatus string

const (
	EntryStatusOpen   EntryStatus = "open"
	EntryStatusClosed EntryStatus = "closed"
)

// ValueEpsilon is the relative tolerance for the value invariant
// |TotalBase - UnitPrice*Quantity| on ledger entries.
const ValueEpsilon = 1e-6

// LedgerEntry is the one durable entity the engine owns: a directional trade
// record in a single base currency, optionally USD-normalized.
type LedgerEntry struct {
	ID       string
	OriginID *string // transaction signature/hash; nil for manual or legacy rows
	Chain    Chain

	Symbol     string
	ContractID *string
	Name       *string
	ImageURL   *string

	Direction Direction
	UnitPrice float64 // base units per one unit of the asset
	Quantity  float64

	BaseSymbol   string
	BaseUsdPrice *float64 // USD per base unit at classification time; 1 for stablecoins
	TotalBase    float64
	TotalUsd     *float64

	OccurredAt time.Time
	Status     EntryStatus
	Venue      *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AssetKey returns the identity used for grouping and deduplication:
// contract id when present, lowercased symbol otherwise.
func (e *LedgerEntry) AssetKey() string {
	if e.ContractID != nil && *e.ContractID != "" {
		return *e.ContractID
	}
	return strings.ToLower(e.Symbol)
}

// ValueUsd returns the USD value of the entry and whether the conversion is
// resolved. Stablecoin-based entries always resolve; native-based entries
// resolve only when a spot price was recorded at classification time.
func (e *LedgerEntry) ValueUsd() (float64, bool) {
	if e.TotalUsd != nil {
		return *e.TotalUsd, true
	}
	return 0, false
}

// Validate checks the entry's internal consistency. Entries that fail are
// rejected at insert time; downstream aggregation has no tolerance for
// negative or nonsensical values.
func (e *LedgerEntry) Validate() error {
	if e.Symbol == "" {
		return fmt.Errorf("%w: entry has no asset symbol", ErrInvariant)
	}
	if e.Direction != DirectionBuy && e.Direction != DirectionSell {
		return fmt.Errorf("%w: direction %q", ErrInvariant, e.Direction)
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("%w: quantity %v", ErrInvariant, e.Quantity)
	}
	if e.UnitPrice < 0 || e.TotalBase < 0 {
		return fmt.Errorf("%w: negative value (unit=%v total=%v)", ErrInvariant, e.UnitPrice, e.TotalBase)
	}

	tolerance := ValueEpsilon * math.Max(1, math.Abs(e.TotalBase))
	if diff := math.Abs(e.TotalBase - e.UnitPrice*e.Quantity); diff > tolerance {
		return fmt.Errorf("%w: total_base %v != unit_price %v * quantity %v",
			ErrInvariant, e.TotalBase, e.UnitPrice, e.Quantity)
	}

	if e.TotalUsd != nil && e.BaseUsdPrice != nil {
		want := e.TotalBase * *e.BaseUsdPrice
		tolerance := ValueEpsilon * math.Max(1, math.Abs(want))
		if diff := math.Abs(*e.TotalUsd - want); diff > tolerance {
			return fmt.Errorf("%w: total_usd %v != total_base %v * base_usd_price %v",
				ErrInvariant, *e.TotalUsd, e.TotalBase, *e.BaseUsdPrice)
		}
	}

	return nil
}

// EntryPatch holds the mutable fields of a ledger entry. Nil fields are left
// untouched. Re-running classification with more complete data may correct
// earlier rows, so everything derived from classification is patchable; the
// id, chain, and occurredAt are not.
type EntryPatch struct {
	OriginID     *string
	Symbol       *string
	ContractID   *string
	Name         *string
	ImageURL     *string
	Direction    *Direction
	UnitPrice    *float64
	Quantity     *float64
	BaseSymbol   *string
	BaseUsdPrice *float64
	TotalBase    *float64
	TotalUsd     *float64
	Status       *EntryStatus
	Venue        *string
}

// IsZero reports whether the patch would change nothing.
func (p EntryPatch) IsZero() bool {
	return p == EntryPatch{}
}
