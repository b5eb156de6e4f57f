// Package metadata is the batch token metadata client, used to repair
// "Unknown" placeholder symbols on ledger rows after classification, keyed
// by contract id.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TokenMetadata is one resolved token.
type TokenMetadata struct {
	ContractID string
	Symbol     string
	Name       string
	ImageURL   string
}

// Client fetches token metadata in batches.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a metadata client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type metadataRequest struct {
	MintAccounts []string `json:"mintAccounts"`
}

type metadataResponse struct {
	Account           string `json:"account"`
	OnChainMetadata   *onChainMetadata   `json:"onChainMetadata"`
	OffChainMetadata  *offChainMetadata  `json:"offChainMetadata"`
	LegacyMetadata    *legacyMetadata    `json:"legacyMetadata"`
}

type onChainMetadata struct {
	Metadata struct {
		Data struct {
			Symbol string `json:"symbol"`
			Name   string `json:"name"`
		} `json:"data"`
	} `json:"metadata"`
}

type offChainMetadata struct {
	Metadata struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
		Image  string `json:"image"`
	} `json:"metadata"`
}

type legacyMetadata struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	LogoURI string `json:"logoURI"`
}

// FetchBatch resolves metadata for up to a batch of contract ids. Callers
// chunk to the configured batch size; this method sends one request.
func (c *Client) FetchBatch(ctx context.Context, contractIDs []string) (map[string]TokenMetadata, error) {
	if len(contractIDs) == 0 {
		return map[string]TokenMetadata{}, nil
	}

	jsonBody, err := json.Marshal(metadataRequest{MintAccounts: contractIDs})
	if err != nil {
		return nil, fmt.Errorf("metadata: marshal request: %w", err)
	}

	reqURL := c.baseURL + "/v0/token-metadata"
	if c.apiKey != "" {
		reqURL += "?api-key=" + c.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("metadata: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata: fetch batch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("metadata: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var decoded []metadataResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("metadata: decode: %w", err)
	}

	out := make(map[string]TokenMetadata, len(decoded))
	for _, m := range decoded {
		meta := m.flatten()
		if meta.Symbol == "" && meta.Name == "" {
			continue
		}
		out[m.Account] = meta
	}
	return out, nil
}

// flatten picks the best available fields across the three metadata layers:
// on-chain first, then off-chain, then the legacy token list.
func (m *metadataResponse) flatten() TokenMetadata {
	meta := TokenMetadata{ContractID: m.Account}

	if m.OnChainMetadata != nil {
		meta.Symbol = strings.TrimRight(m.OnChainMetadata.Metadata.Data.Symbol, "\x00")
		meta.Name = strings.TrimRight(m.OnChainMetadata.Metadata.Data.Name, "\x00")
	}
	if m.OffChainMetadata != nil {
		if meta.Symbol == "" {
			meta.Symbol = m.OffChainMetadata.Metadata.Symbol
		}
		if meta.Name == "" {
			meta.Name = m.OffChainMetadata.Metadata.Name
		}
		meta.ImageURL = m.OffChainMetadata.Metadata.Image
	}
	if m.LegacyMetadata != nil {
		if meta.Symbol == "" {
			meta.Symbol = m.LegacyMetadata.Symbol
		}
		if meta.Name == "" {
			meta.Name = m.LegacyMetadata.Name
		}
		if meta.ImageURL == "" {
			meta.ImageURL = m.LegacyMetadata.LogoURI
		}
	}
	return meta
}
