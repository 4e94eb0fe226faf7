package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"plugscan/internal/services"
	"plugscan/internal/store"
)

const defaultHTTPTimeout = 30 * time.Second

// Config captures the product catalog settings.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// Match is the outcome of one catalog lookup. Found is false when the
// catalog has no product for the query, which is a valid result rather
// than a failure.
type Match struct {
	Found     bool    `json:"found"`
	Link      string  `json:"link"`
	ProductID string  `json:"product_id"`
	Price     float64 `json:"price"`
	Category  string  `json:"category"`
}

// Client looks up extracted product names against the commerce catalog to
// decide whether an endorsement is monetizable.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	budget      services.Budget
	retryPolicy services.RetryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBudget attaches the daily commerce call budget.
func WithBudget(budget services.Budget) Option {
	return func(c *Client) {
		c.budget = budget
	}
}

// WithRetryPolicy overrides the retry policy used for lookup calls.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// NewClient constructs a commerce client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Search queries the catalog for the product name. A miss returns a Match
// with Found set to false and a nil error.
func (c *Client) Search(ctx context.Context, query string) (Match, error) {
	const op = "commerce.search"

	if c.cfg.BaseURL == "" {
		return Match{}, services.Wrap(services.ErrConfiguration, "", op, "commerce base URL is not configured", nil)
	}
	if c.cfg.APIKey == "" {
		return Match{}, services.Wrap(services.ErrConfiguration, "", op, "commerce API key is not configured", nil)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return Match{}, services.Wrap(services.ErrValidation, "", op, "query must not be empty", nil)
	}

	var match Match
	err := services.Guard(ctx, c.budget, store.ServiceCommerce, func(ctx context.Context) error {
		return services.Invoke(ctx, c.retryPolicy, func(ctx context.Context) error {
			result, err := c.searchOnce(ctx, query)
			if err != nil {
				return err
			}
			match = result
			return nil
		})
	})
	if err != nil {
		return Match{}, err
	}
	return match, nil
}

func (c *Client) searchOnce(ctx context.Context, query string) (Match, error) {
	const op = "commerce.search"

	target := c.cfg.BaseURL + "/v1/products/search?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Match{}, services.Wrap(services.ErrPermanentInput, "", op, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Match{}, services.Wrap(services.ErrTransient, "", op, "commerce service unreachable", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Match{}, services.Wrap(services.ErrTransient, "", op, "read response", err)
	}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return Match{}, services.Wrap(services.ErrTransient, "", op, fmt.Sprintf("commerce service returned %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Match{}, services.Wrap(services.ErrConfiguration, "", op, fmt.Sprintf("commerce service rejected credentials with %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return Match{}, services.Wrap(services.ErrTransient, "", op, "commerce service throttled the request", nil)
	case resp.StatusCode >= http.StatusBadRequest:
		return Match{}, services.Wrap(services.ErrPermanentInput, "", op, fmt.Sprintf("commerce service rejected query with %d", resp.StatusCode), nil)
	}

	var match Match
	if err := json.Unmarshal(payload, &match); err != nil {
		return Match{}, services.Wrap(services.ErrTransient, "", op, "decode response", err)
	}
	if !match.Found {
		return Match{Found: false}, nil
	}
	return match, nil
}

// HealthCheck probes the commerce service without consuming budget.
func (c *Client) HealthCheck(ctx context.Context) error {
	const op = "commerce.health"

	if c.cfg.BaseURL == "" {
		return services.Wrap(services.ErrConfiguration, "", op, "commerce base URL is not configured", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return services.Wrap(services.ErrPermanentInput, "", op, "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "", op, "commerce service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "", op, fmt.Sprintf("commerce service returned %d", resp.StatusCode), nil)
	}
	return nil
}
