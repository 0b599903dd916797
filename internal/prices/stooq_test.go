package prices

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wsb-sentiment/internal/retry"
	"wsb-sentiment/internal/types"
)

const sampleCSV = `Date,Open,High,Low,Close,Volume
2026-08-17,10.00,10.50,9.80,10.20,1000000
2026-08-18,10.20,10.60,10.10,10.40,900000
2026-08-19,10.40,10.45,9.90,10.00,1200000
`

func TestParseCSV(t *testing.T) {
	points, err := parseCSV(strings.NewReader(sampleCSV), "xyz")
	if err != nil {
		t.Fatalf("parseCSV failed: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[0].Symbol != "XYZ" {
		t.Errorf("symbol = %s, want XYZ", points[0].Symbol)
	}
	if points[0].Close != 10.20 {
		t.Errorf("first close = %.2f, want 10.20", points[0].Close)
	}
	if !points[2].Date.Equal(time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected last date %v", points[2].Date)
	}
}

func TestParseCSVNoData(t *testing.T) {
	points, err := parseCSV(strings.NewReader("No data"), "zzzz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected no points, got %d", len(points))
	}
}

func TestClientDailyCloses(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	points, err := c.DailyCloses(context.Background(), "GME",
		time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DailyCloses failed: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if !strings.Contains(gotQuery, "s=gme.us") {
		t.Errorf("query missing lowercased market symbol: %s", gotQuery)
	}
	if !strings.Contains(gotQuery, "d1=20260817") || !strings.Contains(gotQuery, "d2=20260819") {
		t.Errorf("query missing date range: %s", gotQuery)
	}
}

func TestClientUnknownSymbolIsDataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("No data"))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := c.DailyCloses(context.Background(), "ZZZZZ", time.Now().AddDate(0, 0, -7), time.Now())

	var unavailable *types.DataUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected DataUnavailableError, got %v", err)
	}
}

func TestClientRetriesTransientFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	c := NewClient(
		WithBaseURL(srv.URL),
		WithRateLimit(1000),
		WithRetryPolicy(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}),
	)
	points, err := c.DailyCloses(context.Background(), "GME", time.Now().AddDate(0, 0, -7), time.Now())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(points) != 3 {
		t.Errorf("expected 3 points after retry, got %d", len(points))
	}
}

func TestCachedSourceServesRepeatsWithoutRefetch(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	src := NewCachedSource(NewClient(WithBaseURL(srv.URL), WithRateLimit(1000)))
	from := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		points, err := src.DailyCloses(context.Background(), "GME", from, to)
		if err != nil {
			t.Fatalf("DailyCloses failed: %v", err)
		}
		if len(points) != 3 {
			t.Fatalf("expected 3 points, got %d", len(points))
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls)
	}

	// A sub-range of a cached span is also served from cache.
	points, err := src.DailyCloses(context.Background(), "GME", from, from.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("sub-range lookup failed: %v", err)
	}
	if len(points) != 2 {
		t.Errorf("expected 2 points in sub-range, got %d", len(points))
	}
	if calls != 1 {
		t.Errorf("sub-range lookup should not refetch, got %d calls", calls)
	}
}

func TestStaticSourceDeterministic(t *testing.T) {
	src := NewStaticSource()
	from := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)

	a, err := src.DailyCloses(context.Background(), "GME", from, to)
	if err != nil {
		t.Fatalf("static source failed: %v", err)
	}
	b, _ := src.DailyCloses(context.Background(), "GME", from, to)
	if len(a) != len(b) {
		t.Fatalf("static source not deterministic: %d vs %d points", len(a), len(b))
	}
	for i := range a {
		if a[i].Close != b[i].Close {
			t.Errorf("close differs on repeat fetch at %v", a[i].Date)
		}
	}

	// Weekends carry no points.
	for _, p := range a {
		if wd := p.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("static source produced weekend point at %v", p.Date)
		}
	}
}
