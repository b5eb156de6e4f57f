package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// watchlistKey is the settings row holding the runtime-managed addresses.
const watchlistKey = "watched_addresses"

// WatchlistService manages the set of watched addresses. Addresses from the
// config file are fixed; addresses added over the API live in the settings
// store and survive restarts. Both feed the sync loop.
type WatchlistService struct {
	settings domain.SettingsStore
	static   []domain.WatchedAddress
	logger   *slog.Logger
}

// NewWatchlistService creates a WatchlistService seeded with the static
// addresses from the configuration.
func NewWatchlistService(settings domain.SettingsStore, static []domain.WatchedAddress, logger *slog.Logger) *WatchlistService {
	return &WatchlistService{
		settings: settings,
		static:   static,
		logger:   logger.With(slog.String("component", "watchlist_service")),
	}
}

// Addresses returns the merged watchlist: config addresses first, then
// runtime additions, with duplicates removed.
func (s *WatchlistService) Addresses(ctx context.Context) ([]domain.WatchedAddress, error) {
	dynamic, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(s.static)+len(dynamic))
	merged := make([]domain.WatchedAddress, 0, len(s.static)+len(dynamic))
	for _, addr := range s.static {
		if key := addrKey(addr); !seen[key] {
			seen[key] = true
			merged = append(merged, addr)
		}
	}
	for _, addr := range dynamic {
		if key := addrKey(addr); !seen[key] {
			seen[key] = true
			merged = append(merged, addr)
		}
	}
	return merged, nil
}

// Add appends an address to the runtime watchlist. Adding an address that
// is already watched returns ErrAlreadyExists.
func (s *WatchlistService) Add(ctx context.Context, addr domain.WatchedAddress) error {
	if addr.Address == "" {
		return fmt.Errorf("watchlist_service: %w: empty address", domain.ErrInvariant)
	}
	if !addr.Chain.Valid() {
		return fmt.Errorf("watchlist_service: %w: chain %q", domain.ErrInvariant, addr.Chain)
	}

	existing, err := s.Addresses(ctx)
	if err != nil {
		return err
	}
	for _, cur := range existing {
		if addrKey(cur) == addrKey(addr) {
			return fmt.Errorf("watchlist_service: %s: %w", addr.Address, domain.ErrAlreadyExists)
		}
	}

	dynamic, err := s.load(ctx)
	if err != nil {
		return err
	}
	dynamic = append(dynamic, addr)
	if err := s.save(ctx, dynamic); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "address added to watchlist",
		slog.String("address", addr.Address),
		slog.String("chain", string(addr.Chain)),
	)
	return nil
}

// Remove deletes an address from the runtime watchlist. Config addresses
// cannot be removed at runtime.
func (s *WatchlistService) Remove(ctx context.Context, address string) error {
	for _, cur := range s.static {
		if strings.EqualFold(cur.Address, address) {
			return fmt.Errorf("watchlist_service: %s is configured statically: %w", address, domain.ErrInvariant)
		}
	}

	dynamic, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := dynamic[:0]
	removed := false
	for _, cur := range dynamic {
		if strings.EqualFold(cur.Address, address) {
			removed = true
			continue
		}
		kept = append(kept, cur)
	}
	if !removed {
		return fmt.Errorf("watchlist_service: %s: %w", address, domain.ErrNotFound)
	}
	if err := s.save(ctx, kept); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "address removed from watchlist",
		slog.String("address", address),
	)
	return nil
}

func (s *WatchlistService) load(ctx context.Context) ([]domain.WatchedAddress, error) {
	raw, err := s.settings.Get(ctx, watchlistKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("watchlist_service: load: %w", err)
	}
	var addrs []domain.WatchedAddress
	if err := json.Unmarshal([]byte(raw), &addrs); err != nil {
		return nil, fmt.Errorf("watchlist_service: decode watchlist: %w", err)
	}
	return addrs, nil
}

func (s *WatchlistService) save(ctx context.Context, addrs []domain.WatchedAddress) error {
	raw, err := json.Marshal(addrs)
	if err != nil {
		return fmt.Errorf("watchlist_service: encode watchlist: %w", err)
	}
	if err := s.settings.Set(ctx, watchlistKey, string(raw)); err != nil {
		return fmt.Errorf("watchlist_service: save: %w", err)
	}
	return nil
}

func addrKey(a domain.WatchedAddress) string {
	return string(a.Chain) + "/" + strings.ToLower(a.Address)
}
