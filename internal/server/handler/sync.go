package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/pipeline"
)

// SyncHandler serves the manual sync trigger.
type SyncHandler struct {
	coordinator *pipeline.Coordinator
	logger      *slog.Logger
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(coordinator *pipeline.Coordinator, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{coordinator: coordinator, logger: logger}
}

// TriggerSync starts a sync pass in the background. 409 when one is
// already running, 423 when another process holds the lock.
// POST /api/sync/trigger
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.coordinator == nil {
		writeError(w, http.StatusServiceUnavailable, "sync loop not running in this mode")
		return
	}

	done := make(chan error, 1)
	go func() {
		// Detached from the request; the pass outlives the HTTP call.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		_, err := h.coordinator.SyncOnce(ctx)
		done <- err
	}()

	// Give the pass a moment so that lock conflicts surface as an HTTP
	// status instead of disappearing into the logs.
	select {
	case err := <-done:
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
		case errors.Is(err, pipeline.ErrSyncRunning):
			writeError(w, http.StatusConflict, "sync already running")
		case errors.Is(err, domain.ErrLockHeld):
			writeError(w, http.StatusLocked, "sync lock held by another process")
		default:
			h.logger.ErrorContext(r.Context(), "manual sync failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "sync failed")
		}
	case <-time.After(500 * time.Millisecond):
		go func() {
			if err := <-done; err != nil {
				h.logger.Error("manual sync failed", slog.String("error", err.Error()))
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}
