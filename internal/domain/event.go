package domain

import "time"

// RawEvent is one decoded indexer record: a single transaction seen from the
// perspective of an enriched-transaction feed. Amounts are already adjusted
// for decimals. RawEvents are transient per-sync values; they are never
// persisted.
type RawEvent struct {
	Chain       Chain
	ID          string // transaction signature / hash
	Timestamp   time.Time
	Description string // optional natural-language summary from the indexer
	Source      string // venue label reported by the indexer, e.g. "JUPITER"

	// Explicit swap summary, when the indexer decoded one. Inputs are what
	// the wallet put into the swap, outputs what it received. Multi-hop
	// routes list intermediate assets; the first input and the last output
	// are the true source and destination.
	NativeInput  float64
	NativeOutput float64
	TokenInputs  []AssetAmount
	TokenOutputs []AssetAmount

	// All token transfers in the transaction, wallet-touching or not. The
	// relayer-chain counter-asset discovery inspects the full set.
	Transfers []TokenTransfer
}

// HasSwapSummary reports whether the indexer provided an explicit two-sided
// swap decode for this event.
func (e *RawEvent) HasSwapSummary() bool {
	return e.NativeInput > 0 || e.NativeOutput > 0 ||
		len(e.TokenInputs) > 0 || len(e.TokenOutputs) > 0
}

// TokenTransfer is a single token movement inside a transaction.
type TokenTransfer struct {
	ContractID string
	Symbol     string
	Name       string
	Decimals   int
	Amount     float64 // decimal-adjusted, non-negative
	From       string
	To         string
}

// Asset converts the transfer into an AssetAmount.
func (t TokenTransfer) Asset() AssetAmount {
	return AssetAmount{
		Symbol:     t.Symbol,
		Name:       t.Name,
		ContractID: t.ContractID,
		Decimals:   t.Decimals,
		Amount:     t.Amount,
	}
}
