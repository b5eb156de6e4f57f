package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/service"
)

// EntryHandler serves the ledger entry endpoints.
type EntryHandler struct {
	ledger *service.LedgerService
	logger *slog.Logger
}

// NewEntryHandler creates an EntryHandler.
func NewEntryHandler(ledger *service.LedgerService, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{ledger: ledger, logger: logger}
}

// ListEntries returns entries matching the query filters, newest first.
// GET /api/entries?chain=&asset=&direction=&since=&until=&limit=&offset=
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEntryFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.ledger.List(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list entries failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}

	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		out[i] = toEntryJSON(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": out,
		"count":   len(out),
	})
}

// GetByOrigin returns the entry recorded for a transaction signature.
// GET /api/entries/origin/{id}
func (h *EntryHandler) GetByOrigin(w http.ResponseWriter, r *http.Request) {
	originID := r.PathValue("id")
	entry, err := h.ledger.GetByOriginID(r.Context(), originID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get entry failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get entry")
		return
	}
	writeJSON(w, http.StatusOK, toEntryJSON(entry))
}

// patchRequest is the manual-correction payload. Absent fields stay
// untouched.
type patchRequest struct {
	Symbol   *string  `json:"symbol"`
	Name     *string  `json:"name"`
	ImageURL *string  `json:"image_url"`
	Status   *string  `json:"status"`
	Venue    *string  `json:"venue"`
	TotalUsd *float64 `json:"total_usd"`
}

// PatchEntry applies a manual correction to an entry.
// PATCH /api/entries/{id}
func (h *EntryHandler) PatchEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := domain.EntryPatch{
		Symbol:   req.Symbol,
		Name:     req.Name,
		ImageURL: req.ImageURL,
		Venue:    req.Venue,
		TotalUsd: req.TotalUsd,
	}
	if req.Status != nil {
		status := domain.EntryStatus(*req.Status)
		if status != domain.EntryStatusOpen && status != domain.EntryStatusClosed {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		patch.Status = &status
	}

	if err := h.ledger.Patch(r.Context(), id, patch); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "patch entry failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to patch entry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "patched"})
}

// DeleteEntry removes an entry from the ledger.
// DELETE /api/entries/{id}
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.ledger.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "delete entry failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AuditTrail returns the most recent audit rows.
// GET /api/audit?limit=
func (h *EntryHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEntryFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.ledger.AuditTrail(r.Context(), filter.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit trail failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list audit trail")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"audit": rows,
		"count": len(rows),
	})
}
