package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/service"
)

// PositionHandler serves the derived position endpoints.
type PositionHandler struct {
	positions *service.PositionService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positions *service.PositionService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{positions: positions, logger: logger}
}

// ListPositions returns every position, most recently traded first.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.positions.Positions(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list positions failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	out := make([]positionJSON, len(positions))
	for i, p := range positions {
		out[i] = toPositionJSON(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"positions": out,
		"count":     len(out),
	})
}

// GetPosition returns the aggregate for one asset key.
// GET /api/positions/{key}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	pos, err := h.positions.Position(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "position not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get position failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get position")
		return
	}
	writeJSON(w, http.StatusOK, toPositionJSON(pos))
}
