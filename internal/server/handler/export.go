package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// ExportHandler serves the object-storage export endpoints.
type ExportHandler struct {
	archiver domain.Archiver
	logger   *slog.Logger
}

// NewExportHandler creates an ExportHandler. archiver may be nil when
// object storage is not configured.
func NewExportHandler(archiver domain.Archiver, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{archiver: archiver, logger: logger}
}

// Snapshot uploads a CSV snapshot of the full ledger.
// POST /api/export/snapshot
func (h *ExportHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage not configured")
		return
	}

	count, err := h.archiver.SnapshotCSV(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "snapshot failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "uploaded",
		"rows":   count,
	})
}

// archiveRequest selects the cutoff for an archive run. Entries strictly
// before the cutoff are exported.
type archiveRequest struct {
	Before string `json:"before"` // RFC3339; defaults to 90 days ago
}

// Archive uploads entries older than the cutoff as JSONL.
// POST /api/export/archive
func (h *ExportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage not configured")
		return
	}

	before := time.Now().UTC().AddDate(0, 0, -90)
	var req archiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Before != "" {
		parsed, perr := time.Parse(time.RFC3339, req.Before)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid before timestamp")
			return
		}
		before = parsed
	}

	count, err := h.archiver.ArchiveEntries(r.Context(), before)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "archive failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "archive failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "uploaded",
		"rows":   count,
		"before": before.Format(time.RFC3339),
	})
}
