package domain

// Chain identifies a supported chain family. The engine understands two
// families: an account-model chain where both sides of a swap are visible as
// native/token transfers ("solana"), and an intent/relayer-style chain where
// the signer's counter-asset settles through a separate smart-account address
// that has to be discovered heuristically ("near").
type Chain string

const (
	ChainSolana Chain = "solana"
	ChainNear   Chain = "near"
)

// Relayed reports whether swaps on this chain settle through a relayer, i.e.
// the watched wallet usually shows only one side of the flow.
func (c Chain) Relayed() bool {
	return c == ChainNear
}

// Valid reports whether the chain is one of the supported families.
func (c Chain) Valid() bool {
	switch c {
	case ChainSolana, ChainNear:
		return true
	}
	return false
}
