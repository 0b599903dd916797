package db

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"wsb-sentiment/internal/types"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "wsb.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewRepository(database)
}

func samplePost(id string, created time.Time) types.RawPost {
	return types.RawPost{
		ID:          id,
		Title:       "GME to the moon",
		Body:        "diamond hands",
		Author:      "dfv",
		Score:       1200,
		UpvoteRatio: 0.95,
		NumComments: 300,
		Source:      "reddit",
		URL:         "https://reddit.com/r/wallstreetbets/" + id,
		CreatedUTC:  created,
		RetrievedAt: created.Add(time.Hour),
	}
}

func TestPostRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	created := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)

	if err := repo.SavePosts([]types.RawPost{samplePost("t3_abc", created)}); err != nil {
		t.Fatalf("SavePosts failed: %v", err)
	}

	posts, err := repo.PostsSince(created.Add(-time.Hour))
	if err != nil {
		t.Fatalf("PostsSince failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	got := posts[0]
	if got.ID != "t3_abc" || got.Score != 1200 || got.UpvoteRatio != 0.95 {
		t.Errorf("post fields lost in round trip: %+v", got)
	}
	if !got.CreatedUTC.Equal(created) {
		t.Errorf("created_utc = %v, want %v", got.CreatedUTC, created)
	}
}

func TestSavePostsIsIdempotent(t *testing.T) {
	repo := openTestRepo(t)
	created := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)

	post := samplePost("t3_abc", created)
	if err := repo.SavePosts([]types.RawPost{post}); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	// The same post comes back on the next run with a higher score.
	post.Score = 2400
	if err := repo.SavePosts([]types.RawPost{post}); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	posts, err := repo.PostsSince(created.Add(-time.Hour))
	if err != nil {
		t.Fatalf("PostsSince failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("upsert duplicated the post: %d rows", len(posts))
	}
	if posts[0].Score != 2400 {
		t.Errorf("score = %d, want refreshed 2400", posts[0].Score)
	}
}

func TestObservationRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	scored := time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)

	obs := types.SentimentObservation{
		PostID:     "t3_abc",
		Symbol:     "GME",
		Polarity:   0.62,
		Label:      types.LabelPositive,
		Confidence: 0.71,
		Engagement: 1140,
		Detail: map[string]float64{
			"vader":        0.58,
			"keywords":     0.72,
			"keyword_hits": 3,
			"agreement":    0.93,
		},
		ScoredAt: scored,
	}
	if err := repo.SaveObservations([]types.SentimentObservation{obs}); err != nil {
		t.Fatalf("SaveObservations failed: %v", err)
	}
	if err := repo.SaveObservations([]types.SentimentObservation{obs}); err != nil {
		t.Fatalf("repeat SaveObservations failed: %v", err)
	}

	got, err := repo.ObservationsSince(scored.Add(-time.Minute))
	if err != nil {
		t.Fatalf("ObservationsSince failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(got))
	}
	if got[0].Polarity != 0.62 || got[0].Label != types.LabelPositive {
		t.Errorf("observation fields lost: %+v", got[0])
	}
	if !reflect.DeepEqual(got[0].Detail, obs.Detail) {
		t.Errorf("sub-model detail not round-tripped: got %v, want %v", got[0].Detail, obs.Detail)
	}
}

func TestObservationWithoutDetail(t *testing.T) {
	repo := openTestRepo(t)
	scored := time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)

	obs := types.SentimentObservation{
		PostID:   "t3_plain",
		Symbol:   "AMC",
		Polarity: 0.1,
		Label:    types.LabelPositive,
		ScoredAt: scored,
	}
	if err := repo.SaveObservations([]types.SentimentObservation{obs}); err != nil {
		t.Fatalf("SaveObservations failed: %v", err)
	}

	got, err := repo.ObservationsSince(scored.Add(-time.Minute))
	if err != nil {
		t.Fatalf("ObservationsSince failed: %v", err)
	}
	if len(got) != 1 || got[0].Detail != nil {
		t.Errorf("expected nil detail for plain observation, got %+v", got)
	}
}

func TestRankingsQueries(t *testing.T) {
	repo := openTestRepo(t)
	day1 := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	rankings := []types.StockRanking{
		{Symbol: "GME", RankingDate: day1, WindowDays: 7, Rank: 1, Mentions: 12, AvgSentiment: 0.5, AvgConfidence: 0.7, Composite: 0.81},
		{Symbol: "AMC", RankingDate: day1, WindowDays: 7, Rank: 2, Mentions: 8, AvgSentiment: 0.3, AvgConfidence: 0.6, Composite: 0.65},
		{Symbol: "GME", RankingDate: day2, WindowDays: 7, Rank: 1, Mentions: 15, AvgSentiment: 0.6, AvgConfidence: 0.7, Composite: 0.85},
	}
	if err := repo.SaveRankings(rankings); err != nil {
		t.Fatalf("SaveRankings failed: %v", err)
	}

	onDay1, err := repo.RankingsOn(day1, 7)
	if err != nil {
		t.Fatalf("RankingsOn failed: %v", err)
	}
	if len(onDay1) != 2 {
		t.Fatalf("expected 2 rankings on day1, got %d", len(onDay1))
	}
	if onDay1[0].Symbol != "GME" || onDay1[0].Rank != 1 {
		t.Errorf("rank order wrong: first = %+v", onDay1[0])
	}

	between, err := repo.RankingsBetween(day1, day2)
	if err != nil {
		t.Fatalf("RankingsBetween failed: %v", err)
	}
	if len(between) != 3 {
		t.Errorf("expected 3 rankings across both days, got %d", len(between))
	}
}

func TestDailyResultLatest(t *testing.T) {
	repo := openTestRepo(t)

	latest, err := repo.LatestDailyResult()
	if err != nil {
		t.Fatalf("LatestDailyResult on empty db failed: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil on empty db, got %+v", latest)
	}

	for _, d := range []int{18, 19, 20} {
		err := repo.SaveDailyResult(types.DailyResult{
			Date:        time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC),
			WindowDays:  7,
			TotalStocks: d,
			TotalPosts:  d * 10,
		})
		if err != nil {
			t.Fatalf("SaveDailyResult failed: %v", err)
		}
	}

	latest, err = repo.LatestDailyResult()
	if err != nil {
		t.Fatalf("LatestDailyResult failed: %v", err)
	}
	if latest == nil || latest.TotalStocks != 20 {
		t.Fatalf("latest = %+v, want the Aug 20 run", latest)
	}

	results, err := repo.DailyResults(2)
	if err != nil {
		t.Fatalf("DailyResults failed: %v", err)
	}
	if len(results) != 2 || results[0].TotalStocks != 20 {
		t.Errorf("DailyResults(2) = %+v, want newest two", results)
	}
}

func TestAccuracyRecordsRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	date := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)

	records := []types.AccuracyRecord{
		{Symbol: "GME", RankingDate: date, HorizonDays: 1, Direction: types.DirectionUp, BaseClose: 100, HorizonClose: 104, RealizedChange: 0.04, Correct: true, CompositeScore: 0.8},
		{Symbol: "GME", RankingDate: date, HorizonDays: 3, Direction: types.DirectionUp, BaseClose: 100, HorizonClose: 98, RealizedChange: -0.02, Correct: false, CompositeScore: 0.8},
	}
	if err := repo.SaveAccuracyRecords(records); err != nil {
		t.Fatalf("SaveAccuracyRecords failed: %v", err)
	}
	// Re-running the backtest overwrites rather than duplicates.
	if err := repo.SaveAccuracyRecords(records); err != nil {
		t.Fatalf("repeat SaveAccuracyRecords failed: %v", err)
	}

	got, err := repo.AccuracyRecordsBetween(date, date)
	if err != nil {
		t.Fatalf("AccuracyRecordsBetween failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].HorizonDays != 1 || !got[0].Correct {
		t.Errorf("first record = %+v, want correct 1-day", got[0])
	}
}

func TestMentionsUpsert(t *testing.T) {
	repo := openTestRepo(t)

	mentions := []types.TickerMention{
		{PostID: "t3_abc", Symbol: "GME", Context: "GME to the moon"},
		{PostID: "t3_abc", Symbol: "AMC", Context: "also AMC"},
	}
	if err := repo.SaveMentions(mentions); err != nil {
		t.Fatalf("SaveMentions failed: %v", err)
	}
	if err := repo.SaveMentions(mentions); err != nil {
		t.Fatalf("repeat SaveMentions failed: %v", err)
	}

	var count int64
	if err := repo.db.Model(&TickerMention{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 mention rows, got %d", count)
	}
}
