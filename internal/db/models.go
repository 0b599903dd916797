package db

import (
	"encoding/json"
	"time"

	"wsb-sentiment/internal/types"
)

// RawPost is the stored form of a scraped post. Posts are append-only;
// a re-run upserts the same IDs without duplicating rows.
type RawPost struct {
	ID          string    `gorm:"primaryKey;size:20" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Body        string    `json:"body"`
	Author      string    `gorm:"size:64" json:"author"`
	Score       int       `json:"score"`
	UpvoteRatio float64   `json:"upvote_ratio"`
	NumComments int       `json:"num_comments"`
	Source      string    `gorm:"size:32;index" json:"source"`
	URL         string    `json:"url"`
	CreatedUTC  time.Time `gorm:"index;not null" json:"created_utc"`
	RetrievedAt time.Time `gorm:"not null" json:"retrieved_at"`
}

func (RawPost) TableName() string {
	return "raw_posts"
}

// TickerMention links a post to one ticker found in it.
type TickerMention struct {
	PostID  string `gorm:"primaryKey;size:20" json:"post_id"`
	Symbol  string `gorm:"primaryKey;size:10" json:"symbol"`
	Context string `json:"context"`
}

func (TickerMention) TableName() string {
	return "ticker_mentions"
}

// SentimentObservation is one scored (post, ticker) pair. The composite
// key makes re-scoring a post overwrite, not duplicate.
type SentimentObservation struct {
	PostID     string    `gorm:"primaryKey;size:20" json:"post_id"`
	Symbol     string    `gorm:"primaryKey;size:10" json:"symbol"`
	Polarity   float64   `gorm:"not null" json:"polarity"`
	Label      string    `gorm:"size:10;not null" json:"label"`
	Confidence float64   `gorm:"not null" json:"confidence"`
	Engagement float64   `gorm:"not null" json:"engagement"`
	Detail     string    `json:"detail"`
	ScoredAt   time.Time `gorm:"index;not null" json:"scored_at"`
}

func (SentimentObservation) TableName() string {
	return "sentiment_observations"
}

// StockRanking is one symbol's aggregate for a ranking date and window.
type StockRanking struct {
	Symbol        string    `gorm:"primaryKey;size:10" json:"symbol"`
	RankingDate   time.Time `gorm:"primaryKey" json:"ranking_date"`
	WindowDays    int       `gorm:"primaryKey" json:"window_days"`
	Rank          int       `gorm:"not null" json:"rank"`
	Mentions      int       `gorm:"not null" json:"total_mentions"`
	AvgSentiment  float64   `gorm:"not null" json:"composite_sentiment"`
	AvgConfidence float64   `gorm:"not null" json:"average_confidence"`
	Composite     float64   `gorm:"not null;index" json:"composite_score"`
}

func (StockRanking) TableName() string {
	return "stock_rankings"
}

// DailyResult is the per-run summary row. Rankings themselves live in
// stock_rankings; this row carries the run-level totals.
type DailyResult struct {
	Date          time.Time `gorm:"primaryKey" json:"date"`
	WindowDays    int       `gorm:"not null" json:"window_days"`
	TotalStocks   int       `gorm:"not null" json:"total_stocks"`
	TotalPosts    int       `gorm:"not null" json:"total_posts"`
	AvgConfidence float64   `gorm:"not null" json:"average_confidence"`
}

func (DailyResult) TableName() string {
	return "daily_results"
}

// AccuracyRecord is one resolved prediction at a single horizon.
type AccuracyRecord struct {
	Symbol         string    `gorm:"primaryKey;size:10" json:"symbol"`
	RankingDate    time.Time `gorm:"primaryKey" json:"ranking_date"`
	HorizonDays    int       `gorm:"primaryKey" json:"horizon_days"`
	Direction      string    `gorm:"size:5;not null" json:"direction"`
	BaseClose      float64   `gorm:"not null" json:"base_close"`
	HorizonClose   float64   `gorm:"not null" json:"horizon_close"`
	RealizedChange float64   `gorm:"not null" json:"realized_change"`
	Correct        bool      `gorm:"not null" json:"correct"`
	CompositeScore float64   `gorm:"not null" json:"composite_score"`
}

func (AccuracyRecord) TableName() string {
	return "accuracy_records"
}

func postFromDomain(p types.RawPost) RawPost {
	return RawPost{
		ID:          p.ID,
		Title:       p.Title,
		Body:        p.Body,
		Author:      p.Author,
		Score:       p.Score,
		UpvoteRatio: p.UpvoteRatio,
		NumComments: p.NumComments,
		Source:      p.Source,
		URL:         p.URL,
		CreatedUTC:  p.CreatedUTC.UTC(),
		RetrievedAt: p.RetrievedAt.UTC(),
	}
}

func (p RawPost) toDomain() types.RawPost {
	return types.RawPost{
		ID:          p.ID,
		Title:       p.Title,
		Body:        p.Body,
		Author:      p.Author,
		Score:       p.Score,
		UpvoteRatio: p.UpvoteRatio,
		NumComments: p.NumComments,
		Source:      p.Source,
		URL:         p.URL,
		CreatedUTC:  p.CreatedUTC.UTC(),
		RetrievedAt: p.RetrievedAt.UTC(),
	}
}

func mentionFromDomain(m types.TickerMention) TickerMention {
	return TickerMention{PostID: m.PostID, Symbol: m.Symbol, Context: m.Context}
}

func observationFromDomain(o types.SentimentObservation) SentimentObservation {
	return SentimentObservation{
		PostID:     o.PostID,
		Symbol:     o.Symbol,
		Polarity:   o.Polarity,
		Label:      o.Label,
		Confidence: o.Confidence,
		Engagement: o.Engagement,
		Detail:     marshalDetail(o.Detail),
		ScoredAt:   o.ScoredAt.UTC(),
	}
}

func (o SentimentObservation) toDomain() types.SentimentObservation {
	return types.SentimentObservation{
		PostID:     o.PostID,
		Symbol:     o.Symbol,
		Polarity:   o.Polarity,
		Label:      o.Label,
		Confidence: o.Confidence,
		Engagement: o.Engagement,
		Detail:     unmarshalDetail(o.Detail),
		ScoredAt:   o.ScoredAt.UTC(),
	}
}

// Sub-model scores are stored as a JSON text column; SQLite has no native
// map type and the scores are read back whole, never queried by key.
func marshalDetail(detail map[string]float64) string {
	if len(detail) == 0 {
		return ""
	}
	b, err := json.Marshal(detail)
	if err != nil {
		return ""
	}
	return string(b)
}

func unmarshalDetail(s string) map[string]float64 {
	if s == "" {
		return nil
	}
	var detail map[string]float64
	if err := json.Unmarshal([]byte(s), &detail); err != nil {
		return nil
	}
	return detail
}

// Ranking dates are calendar days; the time of day the run happened to
// start is normalized away so re-runs hit the same row.
func rankingFromDomain(r types.StockRanking) StockRanking {
	return StockRanking{
		Symbol:        r.Symbol,
		RankingDate:   dateOnly(r.RankingDate),
		WindowDays:    r.WindowDays,
		Rank:          r.Rank,
		Mentions:      r.Mentions,
		AvgSentiment:  r.AvgSentiment,
		AvgConfidence: r.AvgConfidence,
		Composite:     r.Composite,
	}
}

func (r StockRanking) toDomain() types.StockRanking {
	return types.StockRanking{
		Symbol:        r.Symbol,
		RankingDate:   r.RankingDate.UTC(),
		WindowDays:    r.WindowDays,
		Rank:          r.Rank,
		Mentions:      r.Mentions,
		AvgSentiment:  r.AvgSentiment,
		AvgConfidence: r.AvgConfidence,
		Composite:     r.Composite,
	}
}

func accuracyFromDomain(a types.AccuracyRecord) AccuracyRecord {
	return AccuracyRecord{
		Symbol:         a.Symbol,
		RankingDate:    dateOnly(a.RankingDate),
		HorizonDays:    a.HorizonDays,
		Direction:      a.Direction,
		BaseClose:      a.BaseClose,
		HorizonClose:   a.HorizonClose,
		RealizedChange: a.RealizedChange,
		Correct:        a.Correct,
		CompositeScore: a.CompositeScore,
	}
}

func (a AccuracyRecord) toDomain() types.AccuracyRecord {
	return types.AccuracyRecord{
		Symbol:         a.Symbol,
		RankingDate:    a.RankingDate.UTC(),
		HorizonDays:    a.HorizonDays,
		Direction:      a.Direction,
		BaseClose:      a.BaseClose,
		HorizonClose:   a.HorizonClose,
		RealizedChange: a.RealizedChange,
		Correct:        a.Correct,
		CompositeScore: a.CompositeScore,
	}
}
