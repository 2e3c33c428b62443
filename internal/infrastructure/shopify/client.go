package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/shopsync/backend/internal/domain/upstream"
)

// ErrConfigInvalid indicates a misconfigured Shopify client
var ErrConfigInvalid = errors.New("shopify: invalid client configuration")

// Config holds Shopify Admin API client configuration
type Config struct {
	// APIVersion is the Admin API version segment, e.g. "2026-01"
	APIVersion string
	// RequestTimeout bounds a single API call
	RequestTimeout time.Duration
	// MaxResponseBytes bounds how much of a response body is read
	MaxResponseBytes int64
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.APIVersion == "" {
		return fmt.Errorf("%w: api version is required", ErrConfigInvalid)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrConfigInvalid)
	}
	if c.MaxResponseBytes <= 0 {
		return fmt.Errorf("%w: max response size must be positive", ErrConfigInvalid)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		APIVersion:       "2026-01",
		RequestTimeout:   30 * time.Second,
		MaxResponseBytes: 8 * 1024 * 1024,
	}
}

// Client implements upstream.OrderFetcher against the Shopify Admin REST API.
// Credentials are passed per call; the client itself holds no merchant state.
type Client struct {
	config     Config
	httpClient *http.Client

	// baseURL overrides the per-shop https://{domain} scheme when set.
	// Used by tests to point the client at a local server.
	baseURL string
}

// NewClient creates a Shopify API client
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}, nil
}

// NewClientWithBaseURL creates a client that sends every request to baseURL
// instead of the shop domain. For testing against httptest servers
func NewClientWithBaseURL(config Config, baseURL string) (*Client, error) {
	client, err := NewClient(config)
	if err != nil {
		return nil, err
	}
	client.baseURL = baseURL
	return client, nil
}

// ordersEnvelope is the wire shape of GET /orders.json
type ordersEnvelope struct {
	Orders []upstream.RawOrder `json:"orders"`
}

// FetchOrders returns orders created at or after createdAtMin for the shop
// identified by creds. Auth failures map to ErrAuthRejected; rate limiting,
// 5xx responses and transport errors map to ErrUpstreamUnavailable so the
// caller can distinguish permanent from transient failure.
func (c *Client) FetchOrders(ctx context.Context, merchantID uuid.UUID, creds upstream.Credentials, createdAtMin time.Time) ([]upstream.RawOrder, error) {
	if creds.ShopDomain == "" || creds.AccessToken == "" {
		return nil, upstream.ErrNoCredentials
	}

	endpoint := c.ordersURL(creds.ShopDomain, createdAtMin)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", creds.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", upstream.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, upstream.ErrAuthRejected
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", upstream.ErrUpstreamUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d", upstream.ErrInvalidResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", upstream.ErrUpstreamUnavailable, err)
	}

	var envelope ordersEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", upstream.ErrInvalidResponse, err)
	}

	return envelope.Orders, nil
}

// ordersURL builds the Admin API orders endpoint for a shop
func (c *Client) ordersURL(shopDomain string, createdAtMin time.Time) string {
	base := c.baseURL
	if base == "" {
		base = "https://" + shopDomain
	}

	query := url.Values{}
	query.Set("status", "any")
	query.Set("created_at_min", createdAtMin.UTC().Format(time.RFC3339))

	return fmt.Sprintf("%s/admin/api/%s/orders.json?%s", base, c.config.APIVersion, query.Encode())
}

// Ensure Client implements OrderFetcher
var _ upstream.OrderFetcher = (*Client)(nil)
