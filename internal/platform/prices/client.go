// Package prices is the spot USD price client, a coingecko-style simple
// price API. The sync loop refreshes the native price once per pass and
// persists the rate on each entry it writes.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client fetches spot USD prices.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a price client. baseURL is the API root, e.g.
// "https://api.coingecko.com/api/v3".
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SpotPrice returns the current USD price for one asset id (e.g. "solana").
func (c *Client) SpotPrice(ctx context.Context, id string) (float64, error) {
	prices, err := c.SpotPrices(ctx, []string{id})
	if err != nil {
		return 0, err
	}
	p, ok := prices[id]
	if !ok {
		return 0, fmt.Errorf("prices: no usd quote for %q", id)
	}
	return p, nil
}

// SpotPrices returns current USD prices for several asset ids at once.
func (c *Client) SpotPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	reqURL := c.baseURL + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("prices: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-pro-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prices: fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("prices: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prices: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var decoded map[string]map[string]float64
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("prices: decode: %w", err)
	}

	out := make(map[string]float64, len(decoded))
	for id, quotes := range decoded {
		if usd, ok := quotes["usd"]; ok {
			out[id] = usd
		}
	}
	return out, nil
}
