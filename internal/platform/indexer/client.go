// Package indexer is the HTTP client for the enriched-transaction feed: a
// Helius-style API serving decoded transactions for an address, newest first,
// with a "before signature" pagination parameter.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// Client fetches enriched transactions. One client covers both chain
// families; the base URL is selected per chain.
type Client struct {
	baseURLs   map[domain.Chain]string
	apiKey     string
	pageSize   int
	httpClient *http.Client
}

// NewClient creates an indexer client. Chains with an empty base URL are not
// syncable; FetchPage returns an error for them.
func NewClient(solanaBaseURL, nearBaseURL, apiKey string, pageSize int, timeout time.Duration) *Client {
	if pageSize <= 0 {
		pageSize = 100
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURLs: map[domain.Chain]string{
			domain.ChainSolana: strings.TrimRight(solanaBaseURL, "/"),
			domain.ChainNear:   strings.TrimRight(nearBaseURL, "/"),
		},
		apiKey:     strings.TrimSpace(apiKey),
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PageSize returns the configured page size.
func (c *Client) PageSize() int {
	return c.pageSize
}

// FetchPage returns one page of events for the address, newest first. before
// is the pagination cursor: when non-empty only transactions older than that
// signature are returned.
func (c *Client) FetchPage(ctx context.Context, chain domain.Chain, address, before string) ([]domain.RawEvent, error) {
	base := c.baseURLs[chain]
	if base == "" {
		return nil, fmt.Errorf("indexer: no base url configured for chain %s", chain)
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageSize))
	if before != "" {
		q.Set("before", before)
	}
	if c.apiKey != "" {
		q.Set("api-key", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s/v0/addresses/%s/transactions?%s", base, url.PathEscape(address), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("indexer: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer: fetch %s page: %w", chain, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("indexer: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer: HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var txs []enrichedTransaction
	if err := json.Unmarshal(body, &txs); err != nil {
		return nil, fmt.Errorf("indexer: decode page: %w", err)
	}

	events := make([]domain.RawEvent, 0, len(txs))
	for i := range txs {
		if txs[i].failed() {
			continue
		}
		events = append(events, txs[i].toDomain(chain))
	}
	return events, nil
}

func (t *enrichedTransaction) failed() bool {
	return t.TransactionError != nil && string(*t.TransactionError) != "null"
}

func (t *enrichedTransaction) toDomain(chain domain.Chain) domain.RawEvent {
	ev := domain.RawEvent{
		Chain:       chain,
		ID:          t.Signature,
		Timestamp:   time.Unix(t.Timestamp, 0).UTC(),
		Description: t.Description,
		Source:      t.Source,
	}

	for _, tt := range t.TokenTransfers {
		ev.Transfers = append(ev.Transfers, domain.TokenTransfer{
			ContractID: tt.Mint,
			Symbol:     tt.TokenSymbol,
			Name:       tt.TokenName,
			Decimals:   tt.Decimals,
			Amount:     tt.TokenAmount,
			From:       tt.FromUserAccount,
			To:         tt.ToUserAccount,
		})
	}

	if swap := t.Events.Swap; swap != nil {
		if swap.NativeInput != nil {
			ev.NativeInput = parseNative(swap.NativeInput.Amount)
		}
		if swap.NativeOutput != nil {
			ev.NativeOutput = parseNative(swap.NativeOutput.Amount)
		}
		for _, leg := range swap.TokenInputs {
			ev.TokenInputs = append(ev.TokenInputs, legToAsset(leg))
		}
		for _, leg := range swap.TokenOutputs {
			ev.TokenOutputs = append(ev.TokenOutputs, legToAsset(leg))
		}
	}

	return ev
}

func legToAsset(leg swapLeg) domain.AssetAmount {
	raw, _ := leg.RawTokenAmount.TokenAmount.Float64()
	return domain.AssetAmount{
		Symbol:     leg.TokenSymbol,
		ContractID: leg.Mint,
		Decimals:   leg.RawTokenAmount.Decimals,
		Amount:     raw / math.Pow10(leg.RawTokenAmount.Decimals),
	}
}

func parseNative(amount json.Number) float64 {
	v, err := amount.Float64()
	if err != nil {
		return 0
	}
	return v / lamportsPerNative
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
