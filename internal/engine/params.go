// Package engine implements the transaction classification and
// reconciliation core: turning raw indexer events into directional ledger
// entries, deduplicating them across overlapping sync runs, normalizing base
// currencies to USD, and folding trade history into position aggregates.
package engine

import "strings"

// Params carries the classification rule sets and thresholds. All symbol
// sets are matched case-insensitively.
type Params struct {
	// NativeSymbol is the chain's native coin symbol, e.g. "SOL".
	NativeSymbol string

	// BaseCurrencies are assets treated as "money" rather than tracked
	// positions: the native coin, stablecoins, and wrapped variants.
	BaseCurrencies []string

	// Stablecoins is the USD-pegged subset of BaseCurrencies.
	Stablecoins []string

	// WrappedNative are wrapped variants of the native coin; they convert
	// to USD at the native spot price.
	WrappedNative []string

	// StablecoinContracts are contract ids accepted as dollar-denominated
	// counter-assets during relayer-chain discovery, where symbols are
	// often missing.
	StablecoinContracts []string

	// RoutingTokens are intermediate assets seen only as hops in
	// multi-step swaps. Legs touching them are an incomplete view of a
	// larger swap and are never recorded.
	RoutingTokens []string

	// DustFloor: native amounts below this are network fees, not trades.
	DustFloor float64

	// FeeBandCenter/FeeBandWidth describe a narrow value band around a
	// known fixed platform fee; legs landing inside it are non-trade
	// noise. A zero center disables the check.
	FeeBandCenter float64
	FeeBandWidth  float64

	// NativeAmountCeiling drives the Unknown/Unknown heuristic: when both
	// legs are unresolved and one amount sits below this ceiling while the
	// other sits above it, the small one is assumed to be the native coin.
	NativeAmountCeiling float64

	// QuantityPrecision is the number of decimals quantities are rounded
	// to when building the composite dedup key.
	QuantityPrecision int

	base    map[string]bool
	stable  map[string]bool
	wrapped map[string]bool
	routing map[string]bool
	stableC map[string]bool
}

// DefaultParams returns the rule sets for a SOL-denominated wallet. The
// values mirror the common mainnet setup; operators override them in config.
func DefaultParams() Params {
	p := Params{
		NativeSymbol:        "SOL",
		BaseCurrencies:      []string{"SOL", "WSOL", "USDC", "USDT", "USD"},
		Stablecoins:         []string{"USDC", "USDT", "USD"},
		WrappedNative:       []string{"WSOL"},
		RoutingTokens:       []string{"RAY", "JLP"},
		DustFloor:           0.02,
		NativeAmountCeiling: 50,
		QuantityPrecision:   4,
	}
	p.normalize()
	return p
}

// normalize rebuilds the lookup maps from the exported fields. It must run
// before the lookup methods are used and again after any field mutation;
// DefaultParams and every stage constructor call it, so by the time the
// sync fan-out shares a Params across goroutines the maps are read-only.
func (p *Params) normalize() {
	p.base = symbolSet(p.BaseCurrencies)
	p.stable = symbolSet(p.Stablecoins)
	p.wrapped = symbolSet(p.WrappedNative)
	p.routing = symbolSet(p.RoutingTokens)
	p.stableC = make(map[string]bool, len(p.StablecoinContracts))
	for _, c := range p.StablecoinContracts {
		p.stableC[c] = true
	}
	// The native coin is always money.
	if p.NativeSymbol != "" {
		p.base[strings.ToUpper(p.NativeSymbol)] = true
	}
}

// IsBase reports whether the symbol belongs to the base-currency set.
func (p *Params) IsBase(symbol string) bool {
	return p.base[strings.ToUpper(symbol)]
}

// IsStablecoin reports whether the symbol is a USD-pegged base currency.
func (p *Params) IsStablecoin(symbol string) bool {
	return p.stable[strings.ToUpper(symbol)]
}

// IsWrappedNative reports whether the symbol is a wrapped native variant.
func (p *Params) IsWrappedNative(symbol string) bool {
	return p.wrapped[strings.ToUpper(symbol)]
}

// IsNativeLike reports whether the symbol is the native coin or a wrapped
// variant of it.
func (p *Params) IsNativeLike(symbol string) bool {
	return strings.EqualFold(symbol, p.NativeSymbol) || p.IsWrappedNative(symbol)
}

// IsRoutingToken reports whether the symbol is an intermediate hop asset.
func (p *Params) IsRoutingToken(symbol string) bool {
	return p.routing[strings.ToUpper(symbol)]
}

// IsStablecoinContract reports whether the contract id is a known
// dollar-denominated asset.
func (p *Params) IsStablecoinContract(contractID string) bool {
	return p.stableC[contractID]
}

func symbolSet(symbols []string) map[string]bool {
	m := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if s = strings.TrimSpace(s); s != "" {
			m[strings.ToUpper(s)] = true
		}
	}
	return m
}
