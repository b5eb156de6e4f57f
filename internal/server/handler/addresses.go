package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
	"github.com/JayIsLate/tradejournal-sub000/internal/service"
)

// AddressHandler serves the watchlist endpoints.
type AddressHandler struct {
	watchlist *service.WatchlistService
	logger    *slog.Logger
}

// NewAddressHandler creates an AddressHandler.
func NewAddressHandler(watchlist *service.WatchlistService, logger *slog.Logger) *AddressHandler {
	return &AddressHandler{watchlist: watchlist, logger: logger}
}

// ListAddresses returns the merged watchlist.
// GET /api/addresses
func (h *AddressHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.watchlist.Addresses(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list addresses failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list addresses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"addresses": addrs,
		"count":     len(addrs),
	})
}

// AddAddress adds a wallet to the runtime watchlist. It takes effect on the
// next sync pass.
// POST /api/addresses
func (h *AddressHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	var addr domain.WatchedAddress
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.watchlist.Add(r.Context(), addr); err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "address already watched")
		case errors.Is(err, domain.ErrInvariant):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "add address failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to add address")
		}
		return
	}
	writeJSON(w, http.StatusCreated, addr)
}

// RemoveAddress drops a wallet from the runtime watchlist.
// DELETE /api/addresses/{address}
func (h *AddressHandler) RemoveAddress(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if err := h.watchlist.Remove(r.Context(), address); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "address not watched")
		case errors.Is(err, domain.ErrInvariant):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "remove address failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to remove address")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
