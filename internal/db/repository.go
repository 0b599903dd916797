package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wsb-sentiment/internal/types"
)

const batchSize = 100

// Repository exposes the pipeline's persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a repository over an open database.
func NewRepository(d *Database) *Repository {
	return &Repository{db: d.db}
}

// SavePosts upserts raw posts keyed by post ID. Re-fetching the same post
// refreshes its score and comment count instead of inserting a duplicate.
func (r *Repository) SavePosts(posts []types.RawPost) error {
	if len(posts) == 0 {
		return nil
	}
	rows := make([]RawPost, len(posts))
	for i, p := range posts {
		rows[i] = postFromDomain(p)
	}
	err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("SavePosts: %w", err)
	}
	return nil
}

// SaveMentions upserts ticker mentions keyed by (post, symbol).
func (r *Repository) SaveMentions(mentions []types.TickerMention) error {
	if len(mentions) == 0 {
		return nil
	}
	rows := make([]TickerMention, len(mentions))
	for i, m := range mentions {
		rows[i] = mentionFromDomain(m)
	}
	err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("SaveMentions: %w", err)
	}
	return nil
}

// SaveObservations upserts scored observations keyed by (post, symbol).
func (r *Repository) SaveObservations(observations []types.SentimentObservation) error {
	if len(observations) == 0 {
		return nil
	}
	rows := make([]SentimentObservation, len(observations))
	for i, o := range observations {
		rows[i] = observationFromDomain(o)
	}
	err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("SaveObservations: %w", err)
	}
	return nil
}

// SaveRankings upserts rankings keyed by (symbol, ranking date, window).
func (r *Repository) SaveRankings(rankings []types.StockRanking) error {
	if len(rankings) == 0 {
		return nil
	}
	rows := make([]StockRanking, len(rankings))
	for i, rk := range rankings {
		rows[i] = rankingFromDomain(rk)
	}
	err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("SaveRankings: %w", err)
	}
	return nil
}

// SaveDailyResult upserts the run summary for its date.
func (r *Repository) SaveDailyResult(result types.DailyResult) error {
	row := DailyResult{
		Date:          dateOnly(result.Date),
		WindowDays:    result.WindowDays,
		TotalStocks:   result.TotalStocks,
		TotalPosts:    result.TotalPosts,
		AvgConfidence: result.AvgConfidence,
	}
	err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("SaveDailyResult: %w", err)
	}
	return nil
}

// SaveAccuracyRecords upserts resolved predictions keyed by
// (symbol, ranking date, horizon). Re-running a backtest overwrites.
func (r *Repository) SaveAccuracyRecords(records []types.AccuracyRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]AccuracyRecord, len(records))
	for i, a := range records {
		rows[i] = accuracyFromDomain(a)
	}
	err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("SaveAccuracyRecords: %w", err)
	}
	return nil
}

// PostsSince returns posts created on or after the cutoff, newest first.
func (r *Repository) PostsSince(since time.Time) ([]types.RawPost, error) {
	var rows []RawPost
	err := r.db.Where("created_utc >= ?", since.UTC()).
		Order("created_utc DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("PostsSince: %w", err)
	}
	posts := make([]types.RawPost, len(rows))
	for i, row := range rows {
		posts[i] = row.toDomain()
	}
	return posts, nil
}

// ObservationsSince returns observations scored on or after the cutoff.
func (r *Repository) ObservationsSince(since time.Time) ([]types.SentimentObservation, error) {
	var rows []SentimentObservation
	err := r.db.Where("scored_at >= ?", since.UTC()).
		Order("scored_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ObservationsSince: %w", err)
	}
	observations := make([]types.SentimentObservation, len(rows))
	for i, row := range rows {
		observations[i] = row.toDomain()
	}
	return observations, nil
}

// RankingsOn returns the rankings stored for one date and window, in rank
// order.
func (r *Repository) RankingsOn(date time.Time, windowDays int) ([]types.StockRanking, error) {
	var rows []StockRanking
	err := r.db.Where("ranking_date = ? AND window_days = ?", dateOnly(date), windowDays).
		Order("rank ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("RankingsOn: %w", err)
	}
	return rankingsToDomain(rows), nil
}

// RankingsBetween returns all rankings in [from, to], oldest first then by
// rank. Correlation runs read their candidate predictions through this.
func (r *Repository) RankingsBetween(from, to time.Time) ([]types.StockRanking, error) {
	var rows []StockRanking
	err := r.db.Where("ranking_date >= ? AND ranking_date <= ?", dateOnly(from), dateOnly(to)).
		Order("ranking_date ASC, rank ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("RankingsBetween: %w", err)
	}
	return rankingsToDomain(rows), nil
}

// LatestDailyResult returns the most recent run summary, or nil when the
// database has none yet.
func (r *Repository) LatestDailyResult() (*types.DailyResult, error) {
	var row DailyResult
	err := r.db.Order("date DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LatestDailyResult: %w", err)
	}
	return &types.DailyResult{
		Date:          row.Date.UTC(),
		WindowDays:    row.WindowDays,
		TotalStocks:   row.TotalStocks,
		TotalPosts:    row.TotalPosts,
		AvgConfidence: row.AvgConfidence,
	}, nil
}

// DailyResults returns up to limit run summaries, newest first.
func (r *Repository) DailyResults(limit int) ([]types.DailyResult, error) {
	var rows []DailyResult
	q := r.db.Order("date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("DailyResults: %w", err)
	}
	results := make([]types.DailyResult, len(rows))
	for i, row := range rows {
		results[i] = types.DailyResult{
			Date:          row.Date.UTC(),
			WindowDays:    row.WindowDays,
			TotalStocks:   row.TotalStocks,
			TotalPosts:    row.TotalPosts,
			AvgConfidence: row.AvgConfidence,
		}
	}
	return results, nil
}

// AccuracyRecordsBetween returns resolved predictions whose ranking date
// falls in [from, to].
func (r *Repository) AccuracyRecordsBetween(from, to time.Time) ([]types.AccuracyRecord, error) {
	var rows []AccuracyRecord
	err := r.db.Where("ranking_date >= ? AND ranking_date <= ?", dateOnly(from), dateOnly(to)).
		Order("ranking_date ASC, symbol ASC, horizon_days ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("AccuracyRecordsBetween: %w", err)
	}
	records := make([]types.AccuracyRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toDomain()
	}
	return records, nil
}

func rankingsToDomain(rows []StockRanking) []types.StockRanking {
	rankings := make([]types.StockRanking, len(rows))
	for i, row := range rows {
		rankings[i] = row.toDomain()
	}
	return rankings
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
