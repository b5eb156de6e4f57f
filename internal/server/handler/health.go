package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	entries domain.LedgerStore
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. entries may be nil; the count
// is then omitted from the response.
func NewHealthHandler(entries domain.LedgerStore, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{entries: entries, logger: logger}
}

// HealthCheck responds with server status and the current ledger size.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.entries != nil {
		count, err := h.entries.Count(r.Context())
		if err != nil {
			h.logger.WarnContext(r.Context(), "health: ledger count failed",
				slog.String("error", err.Error()),
			)
			body["status"] = "degraded"
		} else {
			body["entries"] = count
		}
	}
	writeJSON(w, http.StatusOK, body)
}
