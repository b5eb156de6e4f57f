package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// runSync runs the ingestion loop and the metadata enricher until shutdown.
func (a *App) runSync(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.deps.Coordinator.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		a.runEnricherLoop(ctx)
		return nil
	})

	return g.Wait()
}

// runServe runs the HTTP API and the WebSocket hub until shutdown. No sync
// loop: the manual trigger endpoint reports 503 in this mode.
func (a *App) runServe(ctx context.Context) error {
	if a.deps.Server == nil {
		return fmt.Errorf("app: serve mode requires server.enabled")
	}
	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g)
	return g.Wait()
}

// runExport uploads a CSV snapshot of the full ledger and exits.
func (a *App) runExport(ctx context.Context) error {
	if a.deps.Archiver == nil {
		return fmt.Errorf("app: export mode requires object storage")
	}

	rows, err := a.deps.Archiver.SnapshotCSV(ctx)
	if err != nil {
		return fmt.Errorf("app: snapshot: %w", err)
	}
	a.logger.Info("snapshot uploaded", slog.Int64("rows", rows))

	audited, err := a.deps.Archiver.ArchiveAudit(ctx, 0)
	if err != nil {
		return fmt.Errorf("app: audit export: %w", err)
	}
	a.logger.Info("audit trail uploaded", slog.Int64("rows", audited))
	return nil
}

// runFull runs the sync loop, the enricher and the API together.
func (a *App) runFull(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.deps.Coordinator.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		a.runEnricherLoop(ctx)
		return nil
	})
	a.startServer(ctx, g)

	return g.Wait()
}

// startServer adds the HTTP listener, its shutdown watcher and the hub to
// the group. It is a no-op when the server is disabled in config.
func (a *App) startServer(ctx context.Context, g *errgroup.Group) {
	if a.deps.Server == nil {
		return
	}

	if a.deps.Hub != nil {
		g.Go(func() error {
			err := a.deps.Hub.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		err := a.deps.Server.Start()
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.deps.Server.Shutdown(shutCtx)
	})
}

// runEnricherLoop periodically repairs Unknown symbols left behind by
// relayer-chain discovery, trailing the sync cadence so freshly inserted
// rows get picked up on the next tick.
func (a *App) runEnricherLoop(ctx context.Context) {
	if a.deps.Enricher == nil {
		return
	}

	interval := a.cfg.Sync.Interval.Duration
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			repaired, err := a.deps.Enricher.Run(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				a.logger.Error("metadata enrichment failed", slog.String("error", err.Error()))
				continue
			}
			if repaired > 0 {
				a.logger.Info("metadata repaired", slog.Int("entries", repaired))
			}
		}
	}
}
