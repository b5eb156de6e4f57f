package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// writeJSON marshals v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseEntryFilter extracts ledger query parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseEntryFilter(r *http.Request) (domain.EntryFilter, error) {
	q := r.URL.Query()
	filter := domain.EntryFilter{Limit: 50}

	if v := q.Get("chain"); v != "" {
		chain := domain.Chain(v)
		if !chain.Valid() {
			return filter, errBadParam("chain", v)
		}
		filter.Chain = chain
	}
	if v := q.Get("asset"); v != "" {
		filter.AssetKey = v
	}
	if v := q.Get("direction"); v != "" {
		dir := domain.Direction(v)
		if dir != domain.DirectionBuy && dir != domain.DirectionSell {
			return filter, errBadParam("direction", v)
		}
		filter.Direction = dir
	}
	if v := q.Get("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errBadParam("since", v)
		}
		filter.Since = &ts
	}
	if v := q.Get("until"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errBadParam("until", v)
		}
		filter.Until = &ts
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	return filter, nil
}

type paramError struct {
	name, value string
}

func (e paramError) Error() string {
	return "invalid " + e.name + " parameter: " + e.value
}

func errBadParam(name, value string) error {
	return paramError{name: name, value: value}
}

// entryJSON is the wire shape of a ledger entry.
type entryJSON struct {
	ID           string   `json:"id"`
	OriginID     *string  `json:"origin_id,omitempty"`
	Chain        string   `json:"chain"`
	Symbol       string   `json:"symbol"`
	ContractID   *string  `json:"contract_id,omitempty"`
	Name         *string  `json:"name,omitempty"`
	ImageURL     *string  `json:"image_url,omitempty"`
	Direction    string   `json:"direction"`
	UnitPrice    float64  `json:"unit_price"`
	Quantity     float64  `json:"quantity"`
	BaseSymbol   string   `json:"base_symbol"`
	BaseUsdPrice *float64 `json:"base_usd_price,omitempty"`
	TotalBase    float64  `json:"total_base"`
	TotalUsd     *float64 `json:"total_usd,omitempty"`
	OccurredAt   string   `json:"occurred_at"`
	Status       string   `json:"status"`
	Venue        *string  `json:"venue,omitempty"`
}

func toEntryJSON(e domain.LedgerEntry) entryJSON {
	return entryJSON{
		ID:           e.ID,
		OriginID:     e.OriginID,
		Chain:        string(e.Chain),
		Symbol:       e.Symbol,
		ContractID:   e.ContractID,
		Name:         e.Name,
		ImageURL:     e.ImageURL,
		Direction:    string(e.Direction),
		UnitPrice:    e.UnitPrice,
		Quantity:     e.Quantity,
		BaseSymbol:   e.BaseSymbol,
		BaseUsdPrice: e.BaseUsdPrice,
		TotalBase:    e.TotalBase,
		TotalUsd:     e.TotalUsd,
		OccurredAt:   e.OccurredAt.UTC().Format(time.RFC3339),
		Status:       string(e.Status),
		Venue:        e.Venue,
	}
}

// positionJSON is the wire shape of a derived position.
type positionJSON struct {
	AssetKey          string   `json:"asset_key"`
	Symbol            string   `json:"symbol"`
	ContractID        string   `json:"contract_id,omitempty"`
	Name              string   `json:"name,omitempty"`
	TotalBought       float64  `json:"total_bought"`
	TotalSold         float64  `json:"total_sold"`
	InvestedUsd       float64  `json:"invested_usd"`
	ReturnedUsd       float64  `json:"returned_usd"`
	AvgBuyPrice       float64  `json:"avg_buy_price"`
	AvgSellPrice      float64  `json:"avg_sell_price"`
	NetQuantity       float64  `json:"net_quantity"`
	RealizedPnlUsd    float64  `json:"realized_pnl_usd"`
	UnrealizedPnlUsd  *float64 `json:"unrealized_pnl_usd,omitempty"`
	HasOpenPosition   bool     `json:"has_open_position"`
	EntryCount        int      `json:"entry_count"`
	LastTradeAt       string   `json:"last_trade_at"`
	UnresolvedEntries int      `json:"unresolved_entries,omitempty"`
}

func toPositionJSON(p domain.Position) positionJSON {
	return positionJSON{
		AssetKey:          p.AssetKey,
		Symbol:            p.Symbol,
		ContractID:        p.ContractID,
		Name:              p.Name,
		TotalBought:       p.TotalBought,
		TotalSold:         p.TotalSold,
		InvestedUsd:       p.InvestedUsd,
		ReturnedUsd:       p.ReturnedUsd,
		AvgBuyPrice:       p.AvgBuyPrice,
		AvgSellPrice:      p.AvgSellPrice,
		NetQuantity:       p.NetQuantity,
		RealizedPnlUsd:    p.RealizedPnlUsd,
		UnrealizedPnlUsd:  p.UnrealizedPnlUsd,
		HasOpenPosition:   p.HasOpenPosition,
		EntryCount:        p.EntryCount,
		LastTradeAt:       p.LastTradeAt.UTC().Format(time.RFC3339),
		UnresolvedEntries: p.UnresolvedEntries,
	}
}
