package domain

// RawLeg is the two-sided asset flow of one swap from the wallet's
// perspective: Out is what left the wallet, In is what arrived. An event with
// no resolvable two-sided flow produces no leg.
type RawLeg struct {
	Event *RawEvent

	In  AssetAmount
	Out AssetAmount

	// The transfers each side was resolved from, when the leg came from
	// transfer inspection rather than a swap summary. Used by the
	// counterparty-address classification rule and by abstracted-account
	// learning on relayer chains. Nil for swap-summary legs.
	InTransfer  *TokenTransfer
	OutTransfer *TokenTransfer

	// Discovered marks legs whose counter-asset side was reconstructed from
	// the transaction's internal transfers (relayer chains) rather than
	// observed directly on the wallet.
	Discovered bool
}
