package domain

import "strings"

// UnknownSymbol is the placeholder used when neither the swap summary nor the
// transfer carries a symbol. Metadata enrichment repairs it later, keyed by
// contract id.
const UnknownSymbol = "Unknown"

// AssetAmount is a quantity of one asset, decimal-adjusted and non-negative.
type AssetAmount struct {
	Symbol     string
	Name       string
	ContractID string
	Decimals   int
	Amount     float64
}

// Key returns the asset identity used for grouping and deduplication:
// contract id when present, lowercased symbol otherwise.
func (a AssetAmount) Key() string {
	if a.ContractID != "" {
		return a.ContractID
	}
	return strings.ToLower(a.Symbol)
}

// IsUnknown reports whether the symbol is the unresolved placeholder.
func (a AssetAmount) IsUnknown() bool {
	return a.Symbol == "" || strings.EqualFold(a.Symbol, UnknownSymbol)
}
