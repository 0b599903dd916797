package collector

import (
	"context"
	"fmt"
	"time"

	"wsb-sentiment/internal/types"
)

// StaticCollector serves a canned set of posts so the pipeline can run
// end to end with no network. Used by dry runs and tests.
type StaticCollector struct {
	now func() time.Time
}

// NewStaticCollector builds a collector with a fixed corpus dated
// relative to the current time.
func NewStaticCollector() *StaticCollector {
	return &StaticCollector{now: time.Now}
}

func (s *StaticCollector) Collect(_ context.Context, p Params) (*Result, error) {
	now := s.now().UTC()
	corpus := []struct {
		title    string
		body     string
		score    int
		ratio    float64
		comments int
		ageHours int
	}{
		{"GME to the moon 🚀🚀", "Loaded up on $GME calls, diamond hands until we print. This squeeze is not over.", 2400, 0.95, 850, 3},
		{"YOLO update: $GME and $AMC", "Still holding GME and AMC. Apes together strong.", 1800, 0.92, 640, 8},
		{"$TSLA puts printing", "Bought TSLA puts before earnings, already deep ITM. Bearish as hell on this pump.", 950, 0.88, 310, 5},
		{"Why I'm bullish on AAPL", "AAPL buybacks plus services growth. Bought 100 shares, long term hold.", 1200, 0.91, 280, 12},
		{"Lost it all on $SPY 0DTE", "Guh. Drilled. Rug pull on SPY weeklies again. I hate this casino.", 3100, 0.97, 1200, 6},
		{"AMC squeeze thesis", "Short interest on AMC still high. Calls cheap, moon soon.", 780, 0.85, 190, 18},
		{"Daily discussion", "What is everyone buying today?", 150, 0.99, 2400, 2},
		{"GME earnings play", "GME reports next week. Straddle or calls?", 640, 0.87, 210, 26},
	}

	result := &Result{}
	for i, c := range corpus {
		if len(result.Posts) >= p.Limit {
			break
		}
		result.Posts = append(result.Posts, types.RawPost{
			ID:          fmt.Sprintf("t3_static%02d", i),
			Title:       c.title,
			Body:        c.body,
			Author:      fmt.Sprintf("dry_run_ape_%d", i),
			Score:       c.score,
			UpvoteRatio: c.ratio,
			NumComments: c.comments,
			Source:      "static",
			URL:         fmt.Sprintf("https://www.reddit.com/r/%s/static%02d", p.Subreddit, i),
			CreatedUTC:  now.Add(-time.Duration(c.ageHours) * time.Hour),
			RetrievedAt: now,
		})
	}
	return result, nil
}
