package prices

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"wsb-sentiment/internal/retry"
	"wsb-sentiment/internal/types"
)

const (
	// DefaultBaseURL is the Stooq daily-history CSV endpoint. It serves
	// historical closes without an API key.
	DefaultBaseURL = "https://stooq.com/q/d/l/"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default request rate (requests per second).
	DefaultRateLimit = 1
)

// Client fetches historical daily closes from Stooq.
type Client struct {
	baseURL    string
	suffix     string
	httpClient *http.Client
	limiter    *rate.Limiter
	policy     retry.Policy
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets a custom request rate.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// WithRetryPolicy sets the bounded retry policy for transient failures.
func WithRetryPolicy(policy retry.Policy) ClientOption {
	return func(c *Client) {
		c.policy = policy
	}
}

// NewClient creates a Stooq price client. US symbols are queried with the
// ".us" market suffix.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		suffix:  ".us",
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		policy:  retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Source = (*Client)(nil)

// DailyCloses fetches closing prices for symbol across [from, to].
// A ticker with no history (delisted, unknown) returns DataUnavailableError.
func (c *Client) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]types.PricePoint, error) {
	var points []types.PricePoint
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		points, fetchErr = c.fetch(ctx, symbol, from, to)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (c *Client) fetch(ctx context.Context, symbol string, from, to time.Time) ([]types.PricePoint, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("s", strings.ToLower(symbol)+c.suffix)
	params.Set("d1", from.Format("20060102"))
	params.Set("d2", to.Format("20060102"))
	params.Set("i", "d")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &types.RateLimitError{Source: "stooq", RetryAfter: 5 * time.Second}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &types.DataUnavailableError{Source: "stooq", Key: symbol}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("stooq http %d for %s", resp.StatusCode, symbol)
	}

	points, err := parseCSV(resp.Body, symbol)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, &types.DataUnavailableError{Source: "stooq", Key: symbol}
	}
	return points, nil
}

// parseCSV reads Stooq's Date,Open,High,Low,Close,Volume payload. Stooq
// answers "No data" in the body for unknown symbols; that parses to zero
// rows and is reported as unavailable by the caller.
func parseCSV(r io.Reader, symbol string) ([]types.PricePoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var points []types.PricePoint
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed price csv for %s: %w", symbol, err)
		}
		if first {
			first = false
			if len(record) > 0 && strings.EqualFold(record[0], "date") {
				continue
			}
		}
		if len(record) < 5 {
			continue
		}

		date, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			continue
		}
		close, err := strconv.ParseFloat(record[4], 64)
		if err != nil || close <= 0 {
			continue
		}
		points = append(points, types.PricePoint{
			Symbol: strings.ToUpper(symbol),
			Date:   date,
			Close:  close,
		})
	}
	return points, nil
}
