// Package tokenapi is an HTTP client for the Raydium v3 token metadata API.
package tokenapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"solana-pool-resolver/internal/domain"
	"solana-pool-resolver/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api-v3.raydium.io"
	DefaultTimeout = 10 * time.Second

	// MaxBatch bounds the number of mints per /mint/ids request.
	MaxBatch = 100
)

const (
	endpointMintList = "/mint/list"
	endpointMintIDs  = "/mint/ids"
)

// ErrUnsuccessful is returned when the API envelope reports success=false.
var ErrUnsuccessful = errors.New("token api reported failure")

// Client implements lookups against the token metadata API.
type Client struct {
	baseURL string
	client  *http.Client
	metrics *observability.Metrics
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithMetrics sets the metrics sink for call latency.
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a token API client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		metrics: observability.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs a single GET and returns the envelope's data member.
// Single attempt; callers own retries.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (gjson.Result, error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordAPILatency(endpoint, time.Since(start).Seconds())
	}()

	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid json from %s", endpoint)
	}

	envelope := gjson.ParseBytes(body)
	if ok := envelope.Get("success"); ok.Exists() && !ok.Bool() {
		msg := envelope.Get("msg").String()
		return gjson.Result{}, fmt.Errorf("%s: %w: %s", endpoint, ErrUnsuccessful, msg)
	}

	return envelope.Get("data"), nil
}

// TokenList fetches the full external token list.
func (c *Client) TokenList(ctx context.Context) (domain.TokenList, error) {
	data, err := c.get(ctx, endpointMintList, nil)
	if err != nil {
		return domain.TokenList{}, err
	}

	var list domain.TokenList
	if raw := data.Get("mintList"); raw.Exists() {
		if err := json.Unmarshal([]byte(raw.Raw), &list.Tokens); err != nil {
			return domain.TokenList{}, fmt.Errorf("decode mint list: %w", err)
		}
	}
	for _, addr := range data.Get("blacklist").Array() {
		if s := addr.String(); s != "" {
			list.Blacklist = append(list.Blacklist, s)
		}
	}
	return list, nil
}

// TokenInfo fetches metadata for the given mints. Unknown mints are omitted
// from the result; result order is not tied to input order.
func (c *Client) TokenInfo(ctx context.Context, mints []string) ([]domain.TokenRecord, error) {
	var out []domain.TokenRecord
	for start := 0; start < len(mints); start += MaxBatch {
		end := start + MaxBatch
		if end > len(mints) {
			end = len(mints)
		}

		query := url.Values{}
		query.Set("mints", strings.Join(mints[start:end], ","))

		data, err := c.get(ctx, endpointMintIDs, query)
		if err != nil {
			return nil, err
		}

		for _, item := range data.Array() {
			if item.Type == gjson.Null {
				continue
			}
			var rec domain.TokenRecord
			if err := json.Unmarshal([]byte(item.Raw), &rec); err != nil {
				return nil, fmt.Errorf("decode token info: %w", err)
			}
			out = append(out, rec)
		}
	}
	return out, nil
}
