package domain

import "time"

// Position aggregates all ledger entries sharing an asset identity. It is
// derived on every read from the current entry set and never persisted or
// mutated in place.
type Position struct {
	AssetKey   string
	Symbol     string
	ContractID string
	Name       string

	TotalBought float64 // quantity sum of buys
	TotalSold   float64 // quantity sum of sells

	InvestedUsd float64 // USD sum of buys
	ReturnedUsd float64 // USD sum of sells

	AvgBuyPrice  float64 // USD per unit
	AvgSellPrice float64

	NetQuantity    float64
	RealizedPnlUsd float64

	// UnrealizedPnlUsd is set only when a live price was supplied and the
	// position is open.
	UnrealizedPnlUsd *float64

	HasOpenPosition bool
	EntryCount      int
	LastTradeAt     time.Time

	// UnresolvedEntries counts entries whose USD conversion is still
	// pending (native base with no recorded spot price). They contribute
	// quantity but no USD value.
	UnresolvedEntries int
}
