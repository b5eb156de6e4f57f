package engine

import (
	"log/slog"
	"math"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// RoutingFilter drops legs that are not real trades: intermediate hops
// through routing tokens, dust-sized native movements, and values sitting in
// the platform-fee band.
type RoutingFilter struct {
	params *Params
	logger *slog.Logger
}

// NewRoutingFilter creates a RoutingFilter with the given rule sets.
func NewRoutingFilter(params *Params, logger *slog.Logger) *RoutingFilter {
	params.normalize()
	return &RoutingFilter{
		params: params,
		logger: logger.With(slog.String("component", "routing_filter")),
	}
}

// Keep reports whether the leg should continue down the pipeline. Dropped
// legs are logged at debug level with the reason; they are diagnostics, not
// errors.
func (f *RoutingFilter) Keep(leg *domain.RawLeg) bool {
	if reason := f.dropReason(leg); reason != "" {
		f.logger.Debug("leg dropped",
			slog.String("reason", reason),
			slog.String("event", leg.Event.ID),
			slog.String("in", leg.In.Symbol),
			slog.String("out", leg.Out.Symbol),
		)
		return false
	}
	return true
}

func (f *RoutingFilter) dropReason(leg *domain.RawLeg) string {
	// A routing token on either side means this leg is a partial view of a
	// larger multi-hop swap.
	if f.params.IsRoutingToken(leg.In.Symbol) || f.params.IsRoutingToken(leg.Out.Symbol) {
		return "routing_token"
	}

	// Tiny native movements are network fees, not trades.
	if f.params.DustFloor > 0 {
		if f.isDust(leg.In) || f.isDust(leg.Out) {
			return "dust"
		}
	}

	// Values in the narrow band around a known fixed platform fee are
	// fee settlements, not trades.
	if f.params.FeeBandCenter > 0 {
		if f.inFeeBand(leg.In) || f.inFeeBand(leg.Out) {
			return "platform_fee"
		}
	}

	return ""
}

func (f *RoutingFilter) isDust(a domain.AssetAmount) bool {
	return f.params.IsNativeLike(a.Symbol) && a.Amount < f.params.DustFloor
}

func (f *RoutingFilter) inFeeBand(a domain.AssetAmount) bool {
	if !f.params.IsNativeLike(a.Symbol) && !f.params.IsStablecoin(a.Symbol) {
		return false
	}
	return math.Abs(a.Amount-f.params.FeeBandCenter) <= f.params.FeeBandWidth
}
