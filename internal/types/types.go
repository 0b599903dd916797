package types

import "time"

// RawPost is one scraped item from a social source. Immutable once stored.
type RawPost struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Author      string    `json:"author"`
	Score       int       `json:"score"`
	UpvoteRatio float64   `json:"upvote_ratio"`
	NumComments int       `json:"num_comments"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	CreatedUTC  time.Time `json:"created_utc"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// TickerMention associates a RawPost with one ticker extracted from it.
type TickerMention struct {
	PostID  string `json:"post_id"`
	Symbol  string `json:"symbol"`
	Context string `json:"context,omitempty"`
}

// Sentiment labels derived from polarity via fixed thresholds.
const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"
)

// SentimentObservation is one scored (post, ticker) pair.
type SentimentObservation struct {
	PostID     string             `json:"post_id"`
	Symbol     string             `json:"symbol"`
	Polarity   float64            `json:"polarity"`
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Engagement float64            `json:"engagement"`
	Detail     map[string]float64 `json:"detail,omitempty"`
	ScoredAt   time.Time          `json:"scored_at"`
}

// StockRanking is one ticker's aggregated result for a ranking date and window.
type StockRanking struct {
	Symbol        string    `json:"symbol"`
	RankingDate   time.Time `json:"ranking_date"`
	WindowDays    int       `json:"window_days"`
	Rank          int       `json:"rank"`
	Mentions      int       `json:"total_mentions"`
	AvgSentiment  float64   `json:"composite_sentiment"`
	AvgConfidence float64   `json:"average_confidence"`
	Composite     float64   `json:"composite_score"`
}

// DailyResult is one run's full output.
type DailyResult struct {
	Date          time.Time      `json:"date"`
	WindowDays    int            `json:"window_days"`
	TotalStocks   int            `json:"total_stocks"`
	TotalPosts    int            `json:"total_posts"`
	AvgConfidence float64        `json:"average_confidence"`
	TopRankings   []StockRanking `json:"top_rankings"`
}

// PricePoint is an external daily close. Fetched on demand, never owned.
type PricePoint struct {
	Symbol string
	Date   time.Time
	Close  float64
}

// Predicted price directions derived from average sentiment.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionFlat = "flat"
)

// AccuracyRecord is one validated prediction at a single horizon.
// Flat predictions never produce a record.
type AccuracyRecord struct {
	Symbol         string    `json:"symbol"`
	RankingDate    time.Time `json:"ranking_date"`
	Direction      string    `json:"direction"`
	HorizonDays    int       `json:"horizon_days"`
	BaseClose      float64   `json:"base_close"`
	HorizonClose   float64   `json:"horizon_close"`
	RealizedChange float64   `json:"realized_change"`
	Correct        bool      `json:"correct"`
	CompositeScore float64   `json:"composite_score"`
}

// HorizonAccuracy aggregates correctness for one horizon.
type HorizonAccuracy struct {
	HorizonDays  int     `json:"horizon_days"`
	Evaluated    int     `json:"evaluated"`
	Correct      int     `json:"correct"`
	Unresolvable int     `json:"unresolvable"`
	Accuracy     float64 `json:"accuracy"`
}

// BandAccuracy aggregates correctness for one composite-score band,
// pooled across horizons.
type BandAccuracy struct {
	Band      string  `json:"band"`
	Evaluated int     `json:"evaluated"`
	Correct   int     `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}

// AccuracyReport is the backtester's aggregated output.
type AccuracyReport struct {
	From        time.Time         `json:"from"`
	To          time.Time         `json:"to"`
	Horizons    []HorizonAccuracy `json:"horizons"`
	ScoreBands  []BandAccuracy    `json:"score_bands,omitempty"`
	FlatSkipped int               `json:"flat_skipped"`
	Records     []AccuracyRecord  `json:"records,omitempty"`
}
