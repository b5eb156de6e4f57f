package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/engine"
)

// ErrSyncRunning is returned when a sync pass is requested while another
// pass is still in flight.
var ErrSyncRunning = errors.New("pipeline: sync already running")

// EventSource pages through the raw transaction history of an address,
// newest first.
type EventSource interface {
	FetchPage(ctx context.Context, chain domain.Chain, address, before string) ([]domain.RawEvent, error)
	PageSize() int
}

// PriceSource returns the spot USD price for an asset id.
type PriceSource interface {
	SpotPrice(ctx context.Context, id string) (float64, error)
}

// AddressProvider returns the current set of watched addresses. The set can
// change between passes when addresses are added over the API.
type AddressProvider interface {
	Addresses(ctx context.Context) ([]domain.WatchedAddress, error)
}

// Notifier forwards operational events to external channels.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config holds the sync loop tuning knobs.
type Config struct {
	Interval     time.Duration
	InitialDelay time.Duration
	MaxPages     int
	Parallelism  int
	LockTTL      time.Duration
	NativeID     string
	RateLimit    int
	RateWindow   time.Duration
}

// SyncSummary describes the outcome of one full sync pass across all
// watched addresses.
type SyncSummary struct {
	Addresses  int           `json:"addresses"`
	Events     int           `json:"events"`
	Candidates int           `json:"candidates"`
	Inserted   int           `json:"inserted"`
	Repaired   int           `json:"repaired"`
	Superseded int           `json:"superseded"`
	Suppressed int           `json:"suppressed"`
	NativeUsd  float64       `json:"native_usd"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Coordinator drives the ingestion pipeline: it pages new events for every
// watched address, runs them through the classification engine, and hands
// the resulting candidates to the deduplicator. One pass per tick; overlap
// is prevented both in-process and, when a lock manager is configured,
// across processes.
type Coordinator struct {
	cfg       Config
	addresses AddressProvider
	events    EventSource
	prices    PriceSource

	normalizer *engine.Normalizer
	filter     *engine.RoutingFilter
	classifier *engine.DirectionClassifier
	currency   *engine.CurrencyNormalizer
	dedup      *engine.Deduplicator

	syncState  domain.SyncStateStore
	priceCache domain.PriceCache
	locks      domain.LockManager
	limiter    domain.RateLimiter
	bus        domain.SignalBus
	notifier   Notifier
	logger     *slog.Logger

	running atomic.Bool
	recMu   sync.Mutex

	ctxMu   sync.Mutex
	runCtxs map[string]*engine.RunContext
}

// CoordinatorDeps bundles the collaborators of a Coordinator. PriceCache,
// Locks, Limiter, Bus and Notifier may be nil; the coordinator degrades to
// in-process behavior without them.
type CoordinatorDeps struct {
	Addresses  AddressProvider
	Events     EventSource
	Prices     PriceSource
	Normalizer *engine.Normalizer
	Filter     *engine.RoutingFilter
	Classifier *engine.DirectionClassifier
	Currency   *engine.CurrencyNormalizer
	Dedup      *engine.Deduplicator
	SyncState  domain.SyncStateStore
	PriceCache domain.PriceCache
	Locks      domain.LockManager
	Limiter    domain.RateLimiter
	Bus        domain.SignalBus
	Notifier   Notifier
}

// NewCoordinator creates a Coordinator from its dependencies.
func NewCoordinator(cfg Config, deps CoordinatorDeps, logger *slog.Logger) *Coordinator {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	return &Coordinator{
		cfg:        cfg,
		addresses:  deps.Addresses,
		events:     deps.Events,
		prices:     deps.Prices,
		normalizer: deps.Normalizer,
		filter:     deps.Filter,
		classifier: deps.Classifier,
		currency:   deps.Currency,
		dedup:      deps.Dedup,
		syncState:  deps.SyncState,
		priceCache: deps.PriceCache,
		locks:      deps.Locks,
		limiter:    deps.Limiter,
		bus:        deps.Bus,
		notifier:   deps.Notifier,
		logger:     logger.With(slog.String("component", "coordinator")),
		runCtxs:    make(map[string]*engine.RunContext),
	}
}

// Run executes sync passes on a repeating interval until the context is
// cancelled. The first pass waits for the initial delay so dependencies can
// finish starting.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.cfg.InitialDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.InitialDelay):
		}
	}

	if _, err := c.SyncOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("sync pass failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("sync loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.SyncOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("sync pass failed", slog.String("error", err.Error()))
				c.notify(ctx, "error", "Sync failed", err.Error())
			}
		}
	}
}

// SyncOnce runs a single pass over every watched address. It returns
// ErrSyncRunning when a pass is already in flight, and domain.ErrLockHeld
// when another process holds the sync lock.
func (c *Coordinator) SyncOnce(ctx context.Context) (SyncSummary, error) {
	if !c.running.CompareAndSwap(false, true) {
		return SyncSummary{}, ErrSyncRunning
	}
	defer c.running.Store(false)

	if c.locks != nil {
		unlock, err := c.locks.Acquire(ctx, "sync", c.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				c.logger.Info("sync lock held elsewhere, skipping pass")
			}
			return SyncSummary{}, err
		}
		defer unlock()
	}

	started := time.Now()

	nativeUsd := c.nativePrice(ctx)

	addrs, err := c.addresses.Addresses(ctx)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("pipeline: list addresses: %w", err)
	}

	summary := SyncSummary{Addresses: len(addrs), NativeUsd: nativeUsd}
	var sumMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Parallelism)

	for _, addr := range addrs {
		g.Go(func() error {
			res, err := c.syncAddress(gctx, addr, nativeUsd)
			if err != nil {
				// One bad address must not poison the pass.
				if errors.Is(err, context.Canceled) {
					return err
				}
				c.logger.Error("address sync failed",
					slog.String("address", addr.Address),
					slog.String("chain", string(addr.Chain)),
					slog.String("error", err.Error()),
				)
				return nil
			}
			sumMu.Lock()
			summary.Events += res.events
			summary.Candidates += res.candidates
			summary.Inserted += res.result.Inserted
			summary.Repaired += res.result.Repaired
			summary.Superseded += res.result.Superseded
			summary.Suppressed += res.result.Suppressed
			sumMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	summary.Duration = time.Since(started)
	summary.FinishedAt = time.Now().UTC()

	c.logger.Info("sync pass complete",
		slog.Int("addresses", summary.Addresses),
		slog.Int("events", summary.Events),
		slog.Int("inserted", summary.Inserted),
		slog.Int("repaired", summary.Repaired),
		slog.Int("superseded", summary.Superseded),
		slog.Int("suppressed", summary.Suppressed),
		slog.Duration("duration", summary.Duration),
	)

	c.publish(ctx, "sync", summary)
	if summary.Inserted > 0 || summary.Repaired > 0 {
		c.notify(ctx, "sync_completed", "Sync completed",
			fmt.Sprintf("%d new entries, %d repaired across %d addresses",
				summary.Inserted, summary.Repaired, summary.Addresses))
	}
	if summary.Repaired > 0 {
		c.notify(ctx, "entry_repaired", "Entries repaired",
			fmt.Sprintf("%d ledger entries were repaired in place", summary.Repaired))
	}

	return summary, nil
}

type addressResult struct {
	events     int
	candidates int
	result     engine.ReconcileResult
}

// syncAddress fetches the unseen slice of the address history and feeds it
// through the engine. Events are processed oldest first so the relayer
// account learned from an early confident trade benefits later ones.
func (c *Coordinator) syncAddress(ctx context.Context, addr domain.WatchedAddress, nativeUsd float64) (addressResult, error) {
	events, newestID, err := c.fetchNewEvents(ctx, addr)
	if err != nil {
		return addressResult{}, err
	}
	if len(events) == 0 {
		return addressResult{}, nil
	}

	// Reverse into chronological order.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}

	rc := c.runContext(addr.Address)
	candidates := make([]domain.LedgerEntry, 0, len(events))

	for i := range events {
		ev := &events[i]

		leg, err := c.normalizer.Normalize(ev, addr.Address, rc)
		if err != nil {
			if errors.Is(err, domain.ErrUnclassifiable) {
				c.logger.Debug("event unclassifiable",
					slog.String("origin_id", ev.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			return addressResult{}, fmt.Errorf("pipeline: normalize %s: %w", ev.ID, err)
		}

		if !c.filter.Keep(leg) {
			continue
		}

		det := c.classifier.Classify(leg, addr.Address)
		if det.Outcome != engine.OutcomeDetermined {
			continue
		}

		// A confident buy on a relayed chain reveals the abstracted
		// settlement account on the base side of the trade.
		if addr.Chain.Relayed() && !leg.Discovered && det.Direction == domain.DirectionBuy {
			rc.Learn(engine.BaseCounterparty(leg, det.Direction, addr.Address))
		}

		entry, err := c.currency.Build(leg, det.Direction, nativeUsd)
		if err != nil {
			c.logger.Warn("candidate rejected",
				slog.String("origin_id", ev.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		candidates = append(candidates, entry)
	}

	res := addressResult{events: len(events), candidates: len(candidates)}

	if len(candidates) > 0 {
		// Reconciliation reads and writes the shared ledger; serialize it
		// across the per-address goroutines.
		c.recMu.Lock()
		result, err := c.dedup.Reconcile(ctx, candidates)
		c.recMu.Unlock()
		if err != nil {
			return addressResult{}, fmt.Errorf("pipeline: reconcile %s: %w", addr.Address, err)
		}
		res.result = result
	}

	if newestID != "" {
		cursor := domain.SyncCursor{Chain: addr.Chain, Address: addr.Address, LastSeenOriginID: newestID}
		if err := c.syncState.PutCursor(ctx, cursor); err != nil {
			return res, fmt.Errorf("pipeline: put cursor %s: %w", addr.Address, err)
		}
	}

	return res, nil
}

// fetchNewEvents pages backwards through the address history until it
// reaches the last seen transaction, runs out of pages, or hits the page
// cap. It returns events newest first plus the id to store as the new
// cursor.
func (c *Coordinator) fetchNewEvents(ctx context.Context, addr domain.WatchedAddress) ([]domain.RawEvent, string, error) {
	var lastSeen string
	cursor, err := c.syncState.GetCursor(ctx, addr.Chain, addr.Address)
	switch {
	case err == nil:
		lastSeen = cursor.LastSeenOriginID
	case errors.Is(err, domain.ErrNotFound):
		// First pass for this address.
	default:
		return nil, "", fmt.Errorf("pipeline: get cursor %s: %w", addr.Address, err)
	}

	var (
		events   []domain.RawEvent
		newestID string
		before   string
	)

	for page := 0; page < c.cfg.MaxPages; page++ {
		if err := c.throttle(ctx, "indexer"); err != nil {
			return nil, "", err
		}

		batch, err := c.events.FetchPage(ctx, addr.Chain, addr.Address, before)
		if err != nil {
			return nil, "", fmt.Errorf("pipeline: fetch page %d for %s: %w", page, addr.Address, err)
		}
		if len(batch) == 0 {
			break
		}

		if newestID == "" {
			newestID = batch[0].ID
		}

		reachedCursor := false
		for i := range batch {
			if lastSeen != "" && batch[i].ID == lastSeen {
				reachedCursor = true
				break
			}
			events = append(events, batch[i])
		}
		if reachedCursor {
			break
		}

		if len(batch) < c.events.PageSize() {
			break
		}
		before = batch[len(batch)-1].ID
	}

	return events, newestID, nil
}

// nativePrice fetches the native spot price, falling back to the cached
// value when the price source is down. A zero return means the pass stores
// unresolved USD fields for native-quoted trades.
func (c *Coordinator) nativePrice(ctx context.Context) float64 {
	if err := c.throttle(ctx, "prices"); err != nil {
		return 0
	}

	price, err := c.prices.SpotPrice(ctx, c.cfg.NativeID)
	if err == nil && price > 0 {
		if c.priceCache != nil {
			if cerr := c.priceCache.SetPrice(ctx, c.cfg.NativeID, price, time.Now().UTC()); cerr != nil {
				c.logger.Warn("price cache write failed", slog.String("error", cerr.Error()))
			}
		}
		return price
	}

	c.logger.Warn("native price fetch failed",
		slog.String("id", c.cfg.NativeID),
		slog.String("error", errString(err)),
	)

	if c.priceCache != nil {
		cached, ts, cerr := c.priceCache.GetPrice(ctx, c.cfg.NativeID)
		if cerr == nil {
			c.logger.Info("using cached native price",
				slog.Float64("price", cached),
				slog.Time("as_of", ts),
			)
			return cached
		}
	}
	return 0
}

// runContext returns the per-address run context, creating it on first use.
// Contexts survive across passes so a learned relayer account sticks.
func (c *Coordinator) runContext(address string) *engine.RunContext {
	c.ctxMu.Lock()
	defer c.ctxMu.Unlock()
	rc, ok := c.runCtxs[address]
	if !ok {
		rc = &engine.RunContext{}
		c.runCtxs[address] = rc
	}
	return rc
}

func (c *Coordinator) throttle(ctx context.Context, key string) error {
	if c.limiter == nil || c.cfg.RateLimit <= 0 {
		return nil
	}
	for {
		allowed, err := c.limiter.Allow(ctx, key, c.cfg.RateLimit, c.cfg.RateWindow)
		if err != nil {
			// A broken limiter should not stall ingestion.
			c.logger.Warn("rate limiter error", slog.String("error", err.Error()))
			return nil
		}
		if allowed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func (c *Coordinator) publish(ctx context.Context, channel string, v any) {
	if c.bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.bus.Publish(ctx, channel, payload); err != nil {
		c.logger.Warn("publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Coordinator) notify(ctx context.Context, event, title, message string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, event, title, message); err != nil {
		c.logger.Warn("notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func errString(err error) string {
	if err == nil {
		return "price not available"
	}
	return err.Error()
}
