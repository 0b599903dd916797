package collector

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"wsb-sentiment/internal/logger"
	"wsb-sentiment/internal/types"
)

// HTMLScraper collects posts from old.reddit.com listing pages. It exists
// for the days the JSON API is down or blocked; scraped posts carry less
// metadata than API posts (no upvote ratio, no selftext), but titles and
// scores are enough to keep the pipeline producing.
type HTMLScraper struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
}

// NewHTMLScraper builds a scraper for old.reddit.com.
func NewHTMLScraper(userAgent string, timeout time.Duration) *HTMLScraper {
	return &HTMLScraper{
		baseURL:   "https://old.reddit.com",
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// SetBaseURL redirects the scraper to another host.
func (s *HTMLScraper) SetBaseURL(baseURL string) {
	s.baseURL = strings.TrimRight(baseURL, "/")
}

// Collect scrapes up to p.Limit posts from the subreddit's sorted listing.
// Extended modes are API-only; the scraper always does a single pass.
func (s *HTMLScraper) Collect(ctx context.Context, p Params) (*Result, error) {
	result := &Result{}
	retrieved := time.Now().UTC()

	c := colly.NewCollector(
		colly.AllowedDomains(hostOf(s.baseURL)),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", s.userAgent)
	})

	c.OnHTML("div.thing", func(e *colly.HTMLElement) {
		if len(result.Posts) >= p.Limit {
			return
		}
		if e.Attr("data-promoted") == "true" {
			return
		}

		id := e.Attr("data-fullname")
		title := strings.TrimSpace(e.ChildText("a.title"))
		if id == "" || title == "" {
			result.Skipped++
			logger.ItemSkip(ctx, "collect", id, &types.MalformedItemError{
				Source: "reddit-html", ItemID: id, Reason: "missing id or title",
			})
			return
		}

		score, _ := strconv.Atoi(e.Attr("data-score"))
		comments, _ := strconv.Atoi(e.Attr("data-comments-count"))

		created := retrieved
		if ms, err := strconv.ParseInt(e.Attr("data-timestamp"), 10, 64); err == nil && ms > 0 {
			created = time.UnixMilli(ms).UTC()
		}

		result.Posts = append(result.Posts, types.RawPost{
			ID:          id,
			Title:       title,
			Author:      strings.TrimSpace(e.ChildText("a.author")),
			Score:       score,
			UpvoteRatio: 1,
			NumComments: comments,
			Source:      "reddit-html",
			URL:         e.Request.AbsoluteURL(e.ChildAttr("a.comments", "href")),
			CreatedUTC:  created,
			RetrievedAt: retrieved,
		})
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = err
	})

	listingURL := fmt.Sprintf("%s/r/%s/%s/?limit=%d", s.baseURL, p.Subreddit, p.Sort, p.Limit)
	if err := c.Visit(listingURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", listingURL, err)
	}
	c.Wait()

	if visitErr != nil && len(result.Posts) == 0 {
		return nil, fmt.Errorf("failed to scrape %s: %w", listingURL, visitErr)
	}

	logger.Stage(ctx, "collect-html", len(result.Posts), result.Skipped)
	return result, nil
}

func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
