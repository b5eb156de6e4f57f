package domain

import (
	"context"
	"time"
)

// PriceCache stores spot USD prices between sync passes so the live price
// used for unrealized P&L does not require a fetch on every read.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, symbol string) (float64, time.Time, error)
}

// LockManager provides a cross-process mutual-exclusion guard. The sync
// loop's in-process single-flight latch handles the common case; the lock
// manager covers a second process pointed at the same ledger.
type LockManager interface {
	// Acquire returns an unlock function on success, or ErrLockHeld when
	// another holder owns the key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter throttles outbound calls to third-party APIs.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// SignalBus is a lightweight publish/subscribe channel used to fan sync
// summaries and position updates out to the WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
