// Package collector fetches posts from r/wallstreetbets. The primary path
// is Reddit's JSON listing API, optionally authenticated as a script app;
// a colly HTML scrape of old.reddit.com covers API outages.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"wsb-sentiment/internal/logger"
	"wsb-sentiment/internal/retry"
	"wsb-sentiment/internal/types"
)

const (
	// DefaultBaseURL serves listings without authentication.
	DefaultBaseURL = "https://api.reddit.com"
	// DefaultOAuthBaseURL serves listings for authenticated script apps.
	DefaultOAuthBaseURL = "https://oauth.reddit.com"
	// DefaultTokenURL issues client-credentials tokens.
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	// Reddit caps listing pages at 100 items.
	maxPageSize = 100
)

// Params controls one collection pass.
type Params struct {
	Subreddit string
	Sort      string // hot, new, top, rising
	Limit     int
	// TimeFilter applies to the top sort only: hour, day, week, month, year, all.
	TimeFilter string
	// Mode widens coverage: "normal" runs the configured sort only,
	// "extended" adds top-of-day, "comprehensive" adds top-of-week and new.
	Mode string
	// CommentsPerPost pulls top-level comments as extra text per post.
	// Zero disables comment collection.
	CommentsPerPost int
}

// Result is one collection pass's output. Skipped counts items dropped by
// shape validation; they never abort the pass.
type Result struct {
	Posts   []types.RawPost
	Skipped int
}

// Credentials identify a Reddit script app. Empty credentials mean the
// public unauthenticated endpoint.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Client collects posts through Reddit's JSON listing API.
type Client struct {
	baseURL    string
	oauthURL   string
	tokenURL   string
	userAgent  string
	creds      Credentials
	httpClient *http.Client
	limiter    *rate.Limiter
	policy     retry.Policy

	token       string
	tokenExpiry time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the unauthenticated API endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
		c.oauthURL = c.baseURL
	}
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(tokenURL string) ClientOption {
	return func(c *Client) { c.tokenURL = tokenURL }
}

// WithCredentials enables authenticated collection.
func WithCredentials(creds Credentials) ClientOption {
	return func(c *Client) { c.creds = creds }
}

// WithUserAgent sets the User-Agent header. Reddit throttles generic agents
// aggressively, so a descriptive one is required.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithRateLimit caps request throughput.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1) }
}

// WithRetryPolicy overrides the retry policy for transient failures.
func WithRetryPolicy(policy retry.Policy) ClientOption {
	return func(c *Client) { c.policy = policy }
}

// NewClient builds a Client with the public endpoint, a 1 rps limiter and
// the default retry policy.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		oauthURL:   DefaultOAuthBaseURL,
		tokenURL:   DefaultTokenURL,
		userAgent:  "wsb-sentiment/1.0",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		policy:     retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect runs the passes the mode asks for and returns deduplicated posts.
// Validation failures are skipped per item; authentication failures abort.
func (c *Client) Collect(ctx context.Context, p Params) (*Result, error) {
	type pass struct {
		sort       string
		timeFilter string
	}
	passes := []pass{{sort: p.Sort, timeFilter: p.TimeFilter}}
	switch p.Mode {
	case "extended":
		passes = append(passes, pass{sort: "top", timeFilter: "day"})
	case "comprehensive":
		passes = append(passes,
			pass{sort: "top", timeFilter: "week"},
			pass{sort: "new"},
		)
	}

	result := &Result{}
	seen := map[string]bool{}
	for _, ps := range passes {
		posts, skipped, err := c.collectListing(ctx, p.Subreddit, ps.sort, ps.timeFilter, p.Limit)
		if err != nil {
			return nil, err
		}
		result.Skipped += skipped
		for _, post := range posts {
			if seen[post.ID] {
				continue
			}
			seen[post.ID] = true
			result.Posts = append(result.Posts, post)
		}
	}

	if p.CommentsPerPost > 0 {
		c.attachComments(ctx, result.Posts, p.CommentsPerPost)
	}

	logger.Stage(ctx, "collect", len(result.Posts), result.Skipped)
	return result, nil
}

// collectListing pages through one sorted listing until limit posts are
// gathered or the listing ends.
func (c *Client) collectListing(ctx context.Context, subreddit, sort, timeFilter string, limit int) ([]types.RawPost, int, error) {
	var (
		posts   []types.RawPost
		skipped int
		after   string
	)
	for len(posts) < limit {
		pageSize := limit - len(posts)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		page, err := c.fetchListing(ctx, subreddit, sort, timeFilter, pageSize, after)
		if err != nil {
			return nil, skipped, err
		}

		for _, child := range page.Data.Children {
			post, err := postFromThing(child.Data)
			if err != nil {
				skipped++
				logger.ItemSkip(ctx, "collect", child.Data.Name, err)
				continue
			}
			posts = append(posts, post)
		}

		if page.Data.After == "" || len(page.Data.Children) == 0 {
			break
		}
		after = page.Data.After
	}
	return posts, skipped, nil
}

func (c *Client) fetchListing(ctx context.Context, subreddit, sort, timeFilter string, pageSize int, after string) (*listing, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", pageSize))
	params.Set("raw_json", "1")
	if timeFilter != "" {
		params.Set("t", timeFilter)
	}
	if after != "" {
		params.Set("after", after)
	}
	path := fmt.Sprintf("/r/%s/%s.json?%s", subreddit, sort, params.Encode())

	var page listing
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		return c.getJSON(ctx, path, &page)
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// attachComments appends top-level comment bodies to each post's text.
// Comment failures degrade silently; the post itself is already collected.
func (c *Client) attachComments(ctx context.Context, posts []types.RawPost, perPost int) {
	for i := range posts {
		comments, err := c.fetchComments(ctx, posts[i].ID, perPost)
		if err != nil {
			logger.ItemSkip(ctx, "comments", posts[i].ID, err)
			continue
		}
		if len(comments) > 0 {
			posts[i].Body = strings.TrimSpace(posts[i].Body + "\n" + strings.Join(comments, "\n"))
		}
	}
}

func (c *Client) fetchComments(ctx context.Context, postID string, limit int) ([]string, error) {
	id := strings.TrimPrefix(postID, "t3_")
	path := fmt.Sprintf("/comments/%s.json?limit=%d&depth=1&raw_json=1", id, limit)

	var pages []listing
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		return c.getJSON(ctx, path, &pages)
	})
	if err != nil {
		return nil, err
	}
	// The comments endpoint returns [post listing, comment listing].
	if len(pages) < 2 {
		return nil, nil
	}

	var comments []string
	for _, child := range pages[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		body := strings.TrimSpace(child.Data.Body)
		if body == "" || body == "[deleted]" || body == "[removed]" {
			continue
		}
		comments = append(comments, body)
		if len(comments) >= limit {
			break
		}
	}
	return comments, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	base := c.baseURL
	authed := c.creds.ClientID != ""
	if authed {
		if err := c.ensureToken(ctx); err != nil {
			return err
		}
		base = c.oauthURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reddit request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &types.AuthError{Source: "reddit", Reason: resp.Status}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &types.RateLimitError{Source: "reddit", RetryAfter: retryAfter(resp)}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("reddit http %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode reddit response: %w", err)
	}
	return nil
}

// ensureToken fetches a client-credentials token when the cached one is
// missing or expiring within a minute.
func (c *Client) ensureToken(ctx context.Context) error {
	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &types.AuthError{Source: "reddit", Reason: "token request returned " + resp.Status}
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return &types.AuthError{Source: "reddit", Reason: "empty access token"}
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return nil
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		var seconds int
		if _, err := fmt.Sscanf(v, "%d", &seconds); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 10 * time.Second
}
