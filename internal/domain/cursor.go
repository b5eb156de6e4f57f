package domain

// SyncCursor is per-watched-address pagination state. It is only used during
// a sync pass; persisting it is an optimization that makes resumption cheap,
// not a correctness requirement.
type SyncCursor struct {
	Address          string
	Chain            Chain
	LastSeenOriginID string // newest origin id from the last completed pass
}

// WatchedAddress is one wallet the sync loop tracks. The set lives behind the
// generic settings store, outside the engine's concern.
type WatchedAddress struct {
	Address string `json:"address"`
	Chain   Chain  `json:"chain"`
	Label   string `json:"label,omitempty"`
}
