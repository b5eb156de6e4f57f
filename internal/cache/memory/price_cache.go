// Package memory provides in-process implementations of the cache
// interfaces, used when Redis is not configured. They cover a single
// process only; multi-process deployments need the Redis versions.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

type pricePoint struct {
	price float64
	ts    time.Time
	seen  time.Time
}

// PriceCache is a map-backed domain.PriceCache with an optional TTL.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]pricePoint
	ttl    time.Duration
}

// NewPriceCache creates a PriceCache. A non-positive ttl keeps entries
// forever.
func NewPriceCache(ttl time.Duration) *PriceCache {
	return &PriceCache{
		prices: make(map[string]pricePoint),
		ttl:    ttl,
	}
}

// SetPrice stores the latest USD price and timestamp for a symbol.
func (pc *PriceCache) SetPrice(_ context.Context, symbol string, price float64, ts time.Time) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.prices[symbol] = pricePoint{price: price, ts: ts, seen: time.Now()}
	return nil
}

// GetPrice retrieves the latest USD price and timestamp for a symbol. It
// returns domain.ErrNotFound on a miss or when the entry has expired.
func (pc *PriceCache) GetPrice(_ context.Context, symbol string) (float64, time.Time, error) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	p, ok := pc.prices[symbol]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	if pc.ttl > 0 && time.Since(p.seen) > pc.ttl {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p.price, p.ts, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
