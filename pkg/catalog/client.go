package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client talks to the shop backend REST API. It is safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// ClientOption is a functional option for configuring a [Client].
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Useful in tests and
// for callers that need custom transports.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpc = c
	}
}

// WithTimeout sets the per-request timeout. Default is 10 seconds.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		cl.httpc.Timeout = d
	}
}

// NewClient creates a backend client rooted at baseURL
// (e.g., "http://192.168.1.10:5000").
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("catalog: invalid base URL %q: %w", baseURL, err)
	}
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Products fetches the full product list.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.getJSON(ctx, "/api/products", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Partners fetches the full partner list.
func (c *Client) Partners(ctx context.Context) ([]Partner, error) {
	var out []Partner
	if err := c.getJSON(ctx, "/api/partners", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VoiceAliases fetches the authoritative voice alias list. This is the
// aliascache.Source used in HTTP deployments.
func (c *Client) VoiceAliases(ctx context.Context) ([]Alias, error) {
	var out []Alias
	if err := c.getJSON(ctx, "/api/voice-aliases", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OrderLine is one detail row of a submitted order.
type OrderLine struct {
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is the payload for SubmitOrder. PartnerID of zero means a walk-in
// cash sale.
type Order struct {
	PartnerID     int64       `json:"partner_id,omitempty"`
	Type          string      `json:"type"`
	PaymentMethod string      `json:"payment_method"`
	AmountPaid    float64     `json:"amount_paid"`
	TotalAmount   float64     `json:"total_amount"`
	Details       []OrderLine `json:"details"`
}

// SubmitOrder posts a completed sale to the backend.
func (c *Client) SubmitOrder(ctx context.Context, o Order) error {
	body, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("catalog: marshal order: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("catalog: build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: submit order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("catalog: submit order: backend returned %s: %s", resp.Status, snippet)
	}
	return nil
}

// getJSON issues a GET request against path and decodes the JSON response
// into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("catalog: build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("catalog: get %s: backend returned %s: %s", path, resp.Status, snippet)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("catalog: decode %s response: %w", path, err)
	}
	return nil
}
