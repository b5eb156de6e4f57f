// Package app assembles the configured subsystems and runs the process in
// one of four modes: sync (ingestion loop only), serve (API only), export
// (one-shot snapshot) or full (everything).
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JayIsLate/tradejournal-sub000/internal/config"
)

// App is the running application.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	deps    *Dependencies
	cleanup func()
}

// New wires the dependency graph for cfg and returns the application ready
// to Run.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, cleanup, err := Wire(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, err
	}
	return &App{cfg: cfg, logger: logger, deps: deps, cleanup: cleanup}, nil
}

// Run blocks until the context is cancelled or the mode finishes. Export
// mode is one-shot; the other modes run until shutdown.
func (a *App) Run(ctx context.Context) error {
	mode := strings.ToLower(a.cfg.Mode)
	a.logger.Info("starting", slog.String("mode", mode))

	switch mode {
	case "sync":
		return a.runSync(ctx)
	case "serve":
		return a.runServe(ctx)
	case "export":
		return a.runExport(ctx)
	case "full":
		return a.runFull(ctx)
	default:
		return fmt.Errorf("app: unknown mode %q", a.cfg.Mode)
	}
}

// Close tears down everything Wire built, in reverse order.
func (a *App) Close() {
	a.cleanup()
}
