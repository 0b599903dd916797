package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const listingPage = `<html><body>
<div class="thing" data-fullname="t3_h1" data-score="1200" data-comments-count="450" data-timestamp="1755700000000">
  <a class="title" href="/r/wallstreetbets/comments/h1">GME gamma squeeze incoming</a>
  <a class="author">dfv</a>
  <a class="comments" href="https://old.reddit.com/r/wallstreetbets/comments/h1">450 comments</a>
</div>
<div class="thing" data-fullname="t3_h2" data-score="300" data-comments-count="80" data-timestamp="1755710000000">
  <a class="title" href="/r/wallstreetbets/comments/h2">TSLA puts anyone</a>
  <a class="author">bear_gang</a>
  <a class="comments" href="https://old.reddit.com/r/wallstreetbets/comments/h2">80 comments</a>
</div>
<div class="thing" data-fullname="" data-score="5">
  <a class="title">orphan without id</a>
</div>
<div class="thing" data-fullname="t3_ad" data-promoted="true">
  <a class="title">sponsored junk</a>
</div>
</body></html>`

func TestHTMLScraperCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/wallstreetbets/hot/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, listingPage)
	}))
	defer srv.Close()

	s := NewHTMLScraper("wsb-sentiment-test/1.0", 5*time.Second)
	s.SetBaseURL(srv.URL)

	result, err := s.Collect(context.Background(), Params{Subreddit: "wallstreetbets", Sort: "hot", Limit: 25})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(result.Posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(result.Posts))
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1 for the orphan", result.Skipped)
	}

	first := result.Posts[0]
	if first.ID != "t3_h1" || first.Score != 1200 || first.NumComments != 450 {
		t.Errorf("first post = %+v", first)
	}
	if first.Author != "dfv" {
		t.Errorf("author = %s, want dfv", first.Author)
	}
	if first.CreatedUTC.IsZero() || first.CreatedUTC.Year() < 2025 {
		t.Errorf("created = %v, want parsed data-timestamp", first.CreatedUTC)
	}
	if first.Source != "reddit-html" {
		t.Errorf("source = %s, want reddit-html", first.Source)
	}
}

func TestHTMLScraperHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingPage)
	}))
	defer srv.Close()

	s := NewHTMLScraper("wsb-sentiment-test/1.0", 5*time.Second)
	s.SetBaseURL(srv.URL)

	result, err := s.Collect(context.Background(), Params{Subreddit: "wallstreetbets", Sort: "hot", Limit: 1})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(result.Posts) != 1 {
		t.Errorf("expected limit to cap posts at 1, got %d", len(result.Posts))
	}
}
