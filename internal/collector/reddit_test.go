package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wsb-sentiment/internal/retry"
	"wsb-sentiment/internal/types"
)

func listingJSON(after string, posts ...map[string]any) string {
	children := make([]map[string]any, len(posts))
	for i, p := range posts {
		children[i] = map[string]any{"kind": "t3", "data": p}
	}
	body, _ := json.Marshal(map[string]any{
		"kind": "Listing",
		"data": map[string]any{"after": after, "children": children},
	})
	return string(body)
}

func postJSON(id, title string, score int) map[string]any {
	return map[string]any{
		"id":           id,
		"name":         "t3_" + id,
		"title":        title,
		"selftext":     "some body text about " + title,
		"author":       "ape",
		"score":        score,
		"upvote_ratio": 0.9,
		"num_comments": 10,
		"permalink":    "/r/wallstreetbets/comments/" + id,
		"created_utc":  float64(time.Now().Add(-time.Hour).Unix()),
	}
}

func testClient(baseURL string) *Client {
	return NewClient(
		WithBaseURL(baseURL),
		WithRateLimit(1000),
		WithRetryPolicy(retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}),
	)
}

func TestCollectSinglePass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/wallstreetbets/hot.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, listingJSON("", postJSON("aaa", "GME yolo", 100), postJSON("bbb", "TSLA puts", 50)))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).Collect(context.Background(), Params{
		Subreddit: "wallstreetbets", Sort: "hot", Limit: 25, Mode: "normal",
	})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(result.Posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(result.Posts))
	}
	if result.Posts[0].ID != "t3_aaa" || result.Posts[0].Title != "GME yolo" {
		t.Errorf("first post = %+v", result.Posts[0])
	}
	if result.Skipped != 0 {
		t.Errorf("skipped = %d, want 0", result.Skipped)
	}
}

func TestCollectPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") == "" {
			fmt.Fprint(w, listingJSON("t3_aaa", postJSON("aaa", "page one", 10)))
			return
		}
		fmt.Fprint(w, listingJSON("", postJSON("bbb", "page two", 20)))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).Collect(context.Background(), Params{
		Subreddit: "wallstreetbets", Sort: "hot", Limit: 2, Mode: "normal",
	})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(result.Posts) != 2 {
		t.Fatalf("expected 2 posts across pages, got %d", len(result.Posts))
	}
	if result.Posts[1].Title != "page two" {
		t.Errorf("second page not collected: %+v", result.Posts[1])
	}
}

func TestCollectComprehensiveDeduplicates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every pass returns the same post plus one unique to the sort.
		sort := "hot"
		switch {
		case r.URL.Path == "/r/wallstreetbets/top.json":
			sort = "top"
		case r.URL.Path == "/r/wallstreetbets/new.json":
			sort = "new"
		}
		fmt.Fprint(w, listingJSON("", postJSON("shared", "everywhere", 500), postJSON(sort, "only in "+sort, 10)))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).Collect(context.Background(), Params{
		Subreddit: "wallstreetbets", Sort: "hot", Limit: 25, Mode: "comprehensive",
	})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	// shared + hot + top + new
	if len(result.Posts) != 4 {
		t.Fatalf("expected 4 deduplicated posts, got %d", len(result.Posts))
	}
	seen := map[string]int{}
	for _, p := range result.Posts {
		seen[p.ID]++
	}
	if seen["t3_shared"] != 1 {
		t.Errorf("shared post appears %d times, want 1", seen["t3_shared"])
	}
}

func TestCollectSkipsMalformedItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		missingTitle := postJSON("bad", "", 10)
		missingTitle["title"] = ""
		fmt.Fprint(w, listingJSON("", postJSON("good", "fine post", 10), missingTitle))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).Collect(context.Background(), Params{
		Subreddit: "wallstreetbets", Sort: "hot", Limit: 25, Mode: "normal",
	})
	if err != nil {
		t.Fatalf("malformed items must not abort the pass: %v", err)
	}
	if len(result.Posts) != 1 {
		t.Fatalf("expected 1 valid post, got %d", len(result.Posts))
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
}

func TestCollectAuthFailureAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Collect(context.Background(), Params{
		Subreddit: "wallstreetbets", Sort: "hot", Limit: 25, Mode: "normal",
	})
	var authErr *types.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestCollectRetriesRateLimit(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, listingJSON("", postJSON("aaa", "after backoff", 10)))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).Collect(context.Background(), Params{
		Subreddit: "wallstreetbets", Sort: "hot", Limit: 25, Mode: "normal",
	})
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
	if len(result.Posts) != 1 {
		t.Errorf("expected 1 post, got %d", len(result.Posts))
	}
}

func TestPostFromThingValidation(t *testing.T) {
	valid := thingData{
		Name:        "t3_abc",
		Title:       "GME",
		Selftext:    "body",
		UpvoteRatio: 0.9,
		CreatedUTC:  float64(time.Now().Unix()),
		Permalink:   "/r/wallstreetbets/comments/abc",
	}

	tests := []struct {
		name    string
		mutate  func(*thingData)
		wantErr bool
	}{
		{"valid", func(d *thingData) {}, false},
		{"missing id", func(d *thingData) { d.Name = ""; d.ID = "" }, true},
		{"missing title", func(d *thingData) { d.Title = "  " }, true},
		{"missing created", func(d *thingData) { d.CreatedUTC = 0 }, true},
		{"id derived from short form", func(d *thingData) { d.Name = ""; d.ID = "abc" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			post, err := postFromThing(d)
			if tt.wantErr {
				var malformed *types.MalformedItemError
				if !errors.As(err, &malformed) {
					t.Fatalf("expected MalformedItemError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if post.ID != "t3_abc" {
				t.Errorf("id = %s, want t3_abc", post.ID)
			}
		})
	}
}

func TestPostFromThingStripsHTMLBody(t *testing.T) {
	d := thingData{
		Name:         "t3_abc",
		Title:        "GME",
		SelftextHTML: "<div><p>diamond <strong>hands</strong></p></div>",
		CreatedUTC:   float64(time.Now().Unix()),
	}
	post, err := postFromThing(d)
	if err != nil {
		t.Fatalf("postFromThing failed: %v", err)
	}
	if post.Body != "diamond hands" {
		t.Errorf("body = %q, want stripped text", post.Body)
	}
}

func TestServiceFallsBackOnPrimaryFailure(t *testing.T) {
	primary := sourceFunc(func(ctx context.Context, p Params) (*Result, error) {
		return nil, errors.New("connection refused")
	})
	fallback := sourceFunc(func(ctx context.Context, p Params) (*Result, error) {
		return &Result{Posts: []types.RawPost{{ID: "t3_html", Title: "scraped"}}}, nil
	})

	result, err := NewService(primary, fallback).Collect(context.Background(), Params{Limit: 10})
	if err != nil {
		t.Fatalf("fallback should have recovered: %v", err)
	}
	if len(result.Posts) != 1 || result.Posts[0].ID != "t3_html" {
		t.Errorf("fallback posts not returned: %+v", result.Posts)
	}
}

func TestServiceNeverFallsBackOnAuthError(t *testing.T) {
	primary := sourceFunc(func(ctx context.Context, p Params) (*Result, error) {
		return nil, &types.AuthError{Source: "reddit", Reason: "bad credentials"}
	})
	fallbackCalled := false
	fallback := sourceFunc(func(ctx context.Context, p Params) (*Result, error) {
		fallbackCalled = true
		return &Result{}, nil
	})

	_, err := NewService(primary, fallback).Collect(context.Background(), Params{Limit: 10})
	var authErr *types.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if fallbackCalled {
		t.Error("auth failure must not trigger the fallback")
	}
}

func TestStaticCollectorHonorsLimit(t *testing.T) {
	result, err := NewStaticCollector().Collect(context.Background(), Params{Subreddit: "wallstreetbets", Limit: 3})
	if err != nil {
		t.Fatalf("static collect failed: %v", err)
	}
	if len(result.Posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(result.Posts))
	}
	for _, p := range result.Posts {
		if p.ID == "" || p.Title == "" || p.UpvoteRatio <= 0 {
			t.Errorf("static post incomplete: %+v", p)
		}
	}
}

type sourceFunc func(ctx context.Context, p Params) (*Result, error)

func (f sourceFunc) Collect(ctx context.Context, p Params) (*Result, error) {
	return f(ctx, p)
}
