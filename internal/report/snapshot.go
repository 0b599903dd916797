// Package report writes the human-facing JSON snapshot of a day's
// analysis. The snapshot duplicates what the database holds so results
// can be eyeballed or diffed without a SQL client.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wsb-sentiment/internal/types"
)

// Snapshot is the on-disk shape of one day's results.
type Snapshot struct {
	Date          string            `json:"date"`
	Timestamp     string            `json:"timestamp"`
	TotalStocks   int               `json:"total_stocks"`
	TotalPosts    int               `json:"total_posts"`
	AvgConfidence float64           `json:"average_confidence"`
	TopRankings   []SnapshotRanking `json:"top_rankings"`
}

// SnapshotRanking is one ranked symbol in the snapshot.
type SnapshotRanking struct {
	Symbol             string  `json:"symbol"`
	CompositeScore     float64 `json:"composite_score"`
	CompositeSentiment float64 `json:"composite_sentiment"`
	TotalMentions      int     `json:"total_mentions"`
}

// Writer writes daily snapshots into a directory, one file per date.
type Writer struct {
	dir  string
	topN int
	now  func() time.Time
}

// NewWriter creates a Writer. topN caps how many rankings the snapshot
// carries; zero or negative means all of them.
func NewWriter(dir string, topN int) *Writer {
	return &Writer{dir: dir, topN: topN, now: time.Now}
}

// Write serializes result to <dir>/analysis_YYYYMMDD.json. Writing the
// same date twice replaces the file, so a re-run leaves one snapshot.
func (w *Writer) Write(result types.DailyResult) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	rankings := result.TopRankings
	if w.topN > 0 && len(rankings) > w.topN {
		rankings = rankings[:w.topN]
	}

	snap := Snapshot{
		Date:          result.Date.UTC().Format("2006-01-02"),
		Timestamp:     w.now().UTC().Format(time.RFC3339),
		TotalStocks:   result.TotalStocks,
		TotalPosts:    result.TotalPosts,
		AvgConfidence: result.AvgConfidence,
		TopRankings:   make([]SnapshotRanking, 0, len(rankings)),
	}
	for _, r := range rankings {
		snap.TopRankings = append(snap.TopRankings, SnapshotRanking{
			Symbol:             r.Symbol,
			CompositeScore:     r.Composite,
			CompositeSentiment: r.AvgSentiment,
			TotalMentions:      r.Mentions,
		})
	}

	path := filepath.Join(w.dir, "analysis_"+result.Date.UTC().Format("20060102")+".json")
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return path, nil
}

// Read loads a previously written snapshot.
func Read(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return &snap, nil
}
