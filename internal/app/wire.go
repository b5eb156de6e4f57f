package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/JayIsLate/tradejournal-sub000/internal/blob/s3"
	cachemem "github.com/JayIsLate/tradejournal-sub000/internal/cache/memory"
	cacheredis "github.com/JayIsLate/tradejournal-sub000/internal/cache/redis"
	"github.com/JayIsLate/tradejournal-sub000/internal/config"
	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/engine"
	"github.com/JayIsLate/tradejournal-sub000/internal/notify"
	"github.com/JayIsLate/tradejournal-sub000/internal/pipeline"
	"github.com/JayIsLate/tradejournal-sub000/internal/platform/indexer"
	"github.com/JayIsLate/tradejournal-sub000/internal/platform/metadata"
	"github.com/JayIsLate/tradejournal-sub000/internal/platform/prices"
	"github.com/JayIsLate/tradejournal-sub000/internal/server"
	"github.com/JayIsLate/tradejournal-sub000/internal/server/handler"
	"github.com/JayIsLate/tradejournal-sub000/internal/server/ws"
	"github.com/JayIsLate/tradejournal-sub000/internal/service"
	"github.com/JayIsLate/tradejournal-sub000/internal/store/memory"
	"github.com/JayIsLate/tradejournal-sub000/internal/store/postgres"
)

// Dependencies holds every wired collaborator. Fields are nil when the
// configured mode does not need them.
type Dependencies struct {
	Ledger    domain.LedgerStore
	SyncState domain.SyncStateStore
	Settings  domain.SettingsStore
	Audit     domain.AuditStore

	PriceCache domain.PriceCache
	Limiter    domain.RateLimiter
	Bus        domain.SignalBus

	Archiver domain.Archiver

	Coordinator *pipeline.Coordinator
	Enricher    *pipeline.Enricher

	Hub    *ws.Hub
	Server *server.Server
}

func needsSync(mode string) bool {
	return mode == "sync" || mode == "full"
}

func needsServer(mode string, cfg *config.Config) bool {
	return (mode == "serve" || mode == "full") && cfg.Server.Enabled
}

func needsS3(mode string, cfg *config.Config) bool {
	return cfg.S3.Enabled || mode == "export"
}

// Wire constructs the dependency graph for the configured mode. The
// returned cleanup function closes everything in reverse construction
// order; callers must invoke it even when Wire fails partway, in which
// case it covers what was built so far.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	mode := strings.ToLower(cfg.Mode)
	deps := &Dependencies{}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Stores. An unconfigured database selects the in-memory suite, which
	// is enough for a single-process run without durability.
	if cfg.Database.InMemory() {
		logger.Warn("no database configured, ledger is in-memory only")
		deps.Ledger = memory.NewLedgerStore()
		deps.SyncState = memory.NewSyncStateStore()
		deps.Settings = memory.NewSettingsStore()
		deps.Audit = memory.NewAuditStore()
	} else {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("app: postgres: %w", err)
		}
		closers = append(closers, pg.Close)

		if cfg.Database.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return nil, cleanup, fmt.Errorf("app: migrations: %w", err)
			}
		}

		pool := pg.Pool()
		deps.Ledger = postgres.NewLedgerStore(pool)
		deps.SyncState = postgres.NewSyncStateStore(pool)
		deps.Settings = postgres.NewSettingsStore(pool)
		deps.Audit = postgres.NewAuditStore(pool)
	}

	// Cache layer. Redis when configured, in-process otherwise. The lock
	// manager has no in-process fallback: a single process is already
	// serialized by the coordinator's own latch.
	var locks domain.LockManager
	if cfg.Redis.Enabled {
		rc, err := cacheredis.New(ctx, cacheredis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("app: redis: %w", err)
		}
		closers = append(closers, func() { _ = rc.Close() })

		deps.PriceCache = cacheredis.NewPriceCache(rc)
		deps.Limiter = cacheredis.NewRateLimiter(rc)
		deps.Bus = cacheredis.NewSignalBus(rc)
		locks = cacheredis.NewLockManager(rc)
	} else {
		deps.PriceCache = cachemem.NewPriceCache(cfg.Prices.CacheTTL.Duration)
		deps.Bus = cachemem.NewSignalBus()
	}

	// Object storage for exports.
	if needsS3(mode, cfg) {
		s3c, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("app: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3c), deps.Ledger, deps.Audit)
	}

	// Notification channels, each enabled by its credentials.
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	var notifier pipeline.Notifier
	if len(senders) > 0 {
		notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	// Services.
	watchlist := service.NewWatchlistService(deps.Settings, cfg.WatchedAddresses(), logger)
	ledgerSvc := service.NewLedgerService(deps.Ledger, deps.Audit, logger)
	positionSvc := service.NewPositionService(
		deps.Ledger,
		engine.NewPositionAggregator(logger),
		deps.PriceCache,
		logger,
	)

	// Classification engine and sync pipeline.
	if needsSync(mode) {
		params := engineParams(cfg.Engine)

		events := indexer.NewClient(
			cfg.Indexer.SolanaBaseURL,
			cfg.Indexer.NearBaseURL,
			cfg.Indexer.ApiKey,
			cfg.Indexer.PageSize,
			cfg.Indexer.Timeout.Duration,
		)
		spot := prices.NewClient(cfg.Prices.BaseURL, cfg.Prices.ApiKey, cfg.Prices.Timeout.Duration)

		deps.Coordinator = pipeline.NewCoordinator(
			pipeline.Config{
				Interval:     cfg.Sync.Interval.Duration,
				InitialDelay: cfg.Sync.InitialDelay.Duration,
				MaxPages:     cfg.Sync.MaxPages,
				Parallelism:  cfg.Sync.Parallelism,
				LockTTL:      cfg.Sync.LockTTL.Duration,
				NativeID:     cfg.Prices.NativeID,
				RateLimit:    cfg.Indexer.RateLimit,
				RateWindow:   cfg.Indexer.RateWindow.Duration,
			},
			pipeline.CoordinatorDeps{
				Addresses:  watchlist,
				Events:     events,
				Prices:     spot,
				Normalizer: engine.NewNormalizer(&params, logger),
				Filter:     engine.NewRoutingFilter(&params, logger),
				Classifier: engine.NewDirectionClassifier(&params, logger),
				Currency:   engine.NewCurrencyNormalizer(&params, logger),
				Dedup:      engine.NewDeduplicator(&params, deps.Ledger, deps.Audit, logger),
				SyncState:  deps.SyncState,
				PriceCache: deps.PriceCache,
				Locks:      locks,
				Limiter:    deps.Limiter,
				Bus:        deps.Bus,
				Notifier:   notifier,
			},
			logger,
		)

		meta := metadata.NewClient(cfg.Metadata.BaseURL, cfg.Metadata.ApiKey, cfg.Metadata.Timeout.Duration)
		deps.Enricher = pipeline.NewEnricher(
			deps.Ledger,
			meta,
			cfg.Metadata.BatchSize,
			cfg.Metadata.BatchDelay.Duration,
			logger,
		)
	}

	// HTTP and WebSocket API.
	if needsServer(mode, cfg) {
		deps.Hub = ws.NewHub(deps.Bus, logger)
		deps.Server = server.New(
			server.Config{
				Port:        cfg.Server.Port,
				CORSOrigins: cfg.Server.CORSOrigins,
				APIKey:      cfg.Server.ApiKey,
				RateLimit:   cfg.Indexer.RateLimit,
				RateWindow:  cfg.Indexer.RateWindow.Duration,
			},
			server.Handlers{
				Health:    handler.NewHealthHandler(deps.Ledger, logger),
				Entries:   handler.NewEntryHandler(ledgerSvc, logger),
				Positions: handler.NewPositionHandler(positionSvc, logger),
				Addresses: handler.NewAddressHandler(watchlist, logger),
				Sync:      handler.NewSyncHandler(deps.Coordinator, logger),
				Export:    handler.NewExportHandler(deps.Archiver, logger),
			},
			deps.Hub,
			deps.Limiter,
			logger,
		)
	}

	return deps, cleanup, nil
}

// engineParams maps the engine section of the configuration onto the
// classifier parameter set, falling back to the defaults for empty rule
// sets so a sparse config file still classifies sensibly.
func engineParams(ec config.EngineConfig) engine.Params {
	p := engine.DefaultParams()
	if ec.NativeSymbol != "" {
		p.NativeSymbol = ec.NativeSymbol
	}
	if len(ec.BaseCurrencies) > 0 {
		p.BaseCurrencies = ec.BaseCurrencies
	}
	if len(ec.Stablecoins) > 0 {
		p.Stablecoins = ec.Stablecoins
	}
	if len(ec.WrappedNative) > 0 {
		p.WrappedNative = ec.WrappedNative
	}
	if len(ec.RoutingTokens) > 0 {
		p.RoutingTokens = ec.RoutingTokens
	}
	p.StablecoinContracts = ec.StablecoinContracts
	if ec.DustFloor > 0 {
		p.DustFloor = ec.DustFloor
	}
	p.FeeBandCenter = ec.FeeBandCenter
	p.FeeBandWidth = ec.FeeBandWidth
	if ec.NativeAmountCeiling > 0 {
		p.NativeAmountCeiling = ec.NativeAmountCeiling
	}
	if ec.QuantityPrecision > 0 {
		p.QuantityPrecision = ec.QuantityPrecision
	}
	return p
}
