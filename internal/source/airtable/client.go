// Package airtable implements source.Source on top of the Airtable REST API.
package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jobboard/jobboard/internal/source"
)

const (
	// DefaultBaseURL is the base URL of the Airtable API.
	DefaultBaseURL = "https://api.airtable.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is Airtable's documented per-base limit (requests per second).
	DefaultRateLimit = 5

	pageSize       = 100
	maxErrorBody   = 512
	maxPagesPerRun = 10000
)

// ErrMissingCredentials is returned by NewClient when the base id or API key is empty.
var ErrMissingCredentials = errors.New("airtable: base id and API key are required")

// APIError is a non-200 response from the API.
type APIError struct {
	StatusCode int
	Table      string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("airtable %s: HTTP %d: %s", e.Table, e.StatusCode, e.Body)
}

// Client fetches whole tables from one Airtable base.
type Client struct {
	baseURL    string
	baseID     string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRateLimit sets a custom rate limit. Values below 1 keep the default.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// NewClient creates a client for base baseID authenticated with apiKey.
func NewClient(baseID, apiKey string, opts ...ClientOption) (*Client, error) {
	if baseID == "" || apiKey == "" {
		return nil, ErrMissingCredentials
	}

	c := &Client{
		baseURL: DefaultBaseURL,
		baseID:  baseID,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  log.New(os.Stderr, "[airtable] ", log.LstdFlags),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// listResponse is one page of GET /v0/{base}/{table}.
type listResponse struct {
	Records []source.Record `json:"records"`
	Offset  string          `json:"offset"`
}

// FetchAll implements source.Source. It follows the offset cursor until the
// API stops returning one.
func (c *Client) FetchAll(ctx context.Context, entity source.Entity) ([]source.Record, error) {
	var (
		records []source.Record
		offset  string
	)

	for page := 0; page < maxPagesPerRun; page++ {
		resp, err := c.list(ctx, string(entity), offset)
		if err != nil {
			return nil, err
		}
		records = append(records, resp.Records...)

		if resp.Offset == "" {
			c.logger.Printf("Fetched %d %s records in %d page(s)", len(records), entity, page+1)
			return records, nil
		}
		if resp.Offset == offset {
			return nil, fmt.Errorf("airtable %s: offset cursor did not advance", entity)
		}
		offset = resp.Offset
	}

	return nil, fmt.Errorf("airtable %s: more than %d pages", entity, maxPagesPerRun)
}

// list performs a single page request.
func (c *Client) list(ctx context.Context, table, offset string) (*listResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("pageSize", fmt.Sprint(pageSize))
	if offset != "" {
		params.Set("offset", offset)
	}
	reqURL := fmt.Sprintf("%s/v0/%s/%s?%s",
		c.baseURL, url.PathEscape(c.baseID), url.PathEscape(table), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Table:      table,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var result listResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", table, err)
	}
	return &result, nil
}
