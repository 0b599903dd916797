// Package pipeline runs the daily analysis: collect posts, extract
// tickers, score sentiment, rank, persist, snapshot. Stages run in
// sequence; a bad item is skipped and counted, and only a total collect
// or persist failure aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"wsb-sentiment/internal/backtest"
	"wsb-sentiment/internal/collector"
	"wsb-sentiment/internal/db"
	"wsb-sentiment/internal/interfaces"
	"wsb-sentiment/internal/logger"
	"wsb-sentiment/internal/prices"
	"wsb-sentiment/internal/ranker"
	"wsb-sentiment/internal/report"
	"wsb-sentiment/internal/runlog"
	"wsb-sentiment/internal/store"
	"wsb-sentiment/internal/tickers"
	"wsb-sentiment/internal/types"
)

// Pipeline wires the stages together.
type Pipeline struct {
	source    collector.Source
	extractor *tickers.Extractor
	scorer    interfaces.SentimentScorer
	repo      *db.Repository
	snapshots *report.Writer
	cfg       *store.Config
	now       func() time.Time
}

// Summary is what one run did, stage by stage.
type Summary struct {
	RankingDate   time.Time
	Collected     int
	PostsSkipped  int
	NoTickerPosts int
	Mentions      int
	Observations  int
	Ranked        int
	SnapshotPath  string
	Degraded      bool
}

// New assembles a pipeline from its stages.
func New(source collector.Source, extractor *tickers.Extractor, scorer interfaces.SentimentScorer,
	repo *db.Repository, snapshots *report.Writer, cfg *store.Config) *Pipeline {
	return &Pipeline{
		source:    source,
		extractor: extractor,
		scorer:    scorer,
		repo:      repo,
		snapshots: snapshots,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run executes one full analysis pass. The returned error means the run
// produced nothing usable; a degraded-but-complete run returns a Summary
// with Degraded set.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	op := logger.StartOperation(ctx, "pipeline.run",
		"subreddit", p.cfg.Reddit.Subreddit,
		"mode", p.cfg.Reddit.CollectionMode)
	ctx = op.GetContext()

	summary := &Summary{RankingDate: p.now().UTC()}

	// Collect. A total collection failure is fatal; there is nothing to
	// analyze without posts.
	result, err := p.source.Collect(ctx, collector.Params{
		Subreddit:       p.cfg.Reddit.Subreddit,
		Sort:            p.cfg.Reddit.Sort,
		Limit:           p.cfg.Reddit.Limit,
		TimeFilter:      p.cfg.Reddit.TimeFilter,
		Mode:            p.cfg.Reddit.CollectionMode,
		CommentsPerPost: p.cfg.Reddit.CommentsPerPost,
	})
	if err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("collection failed: %w", err)
	}
	summary.Collected = len(result.Posts)
	summary.PostsSkipped = result.Skipped
	p.record("collect", len(result.Posts), result.Skipped, nil)

	if err := p.repo.SavePosts(result.Posts); err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("persisting posts failed: %w", err)
	}

	// Extract tickers. A post without tickers is skipped, not an error.
	var mentions []types.TickerMention
	var observations []types.SentimentObservation
	for _, post := range result.Posts {
		symbols := p.extractor.Extract(post.Title + " " + post.Body)
		if len(symbols) == 0 {
			summary.NoTickerPosts++
			continue
		}
		for _, symbol := range symbols {
			mentions = append(mentions, types.TickerMention{
				PostID:  post.ID,
				Symbol:  symbol,
				Context: post.Title,
			})
		}
		observations = append(observations, p.scorer.ScoreMentions(post, symbols)...)
	}
	summary.Mentions = len(mentions)
	summary.Observations = len(observations)
	p.record("extract", len(mentions), summary.NoTickerPosts, nil)
	p.record("score", len(observations), 0, nil)

	if err := p.repo.SaveMentions(mentions); err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("persisting mentions failed: %w", err)
	}
	if err := p.repo.SaveObservations(observations); err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("persisting observations failed: %w", err)
	}

	// Rank over the full lookback window, which includes observations
	// persisted by earlier runs.
	windowStart := summary.RankingDate.AddDate(0, 0, -p.cfg.Analysis.WindowDays)
	windowObs, err := p.repo.ObservationsSince(windowStart)
	if err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("loading window observations failed: %w", err)
	}

	rankings := ranker.Rank(windowObs, summary.RankingDate, ranker.Params{
		WindowDays:  p.cfg.Analysis.WindowDays,
		MinMentions: p.cfg.Analysis.MinMentions,
		Weights: ranker.Weights{
			Mentions:   p.cfg.Analysis.Weights.Mentions,
			Sentiment:  p.cfg.Analysis.Weights.Sentiment,
			Confidence: p.cfg.Analysis.Weights.Confidence,
		},
	})
	summary.Ranked = len(rankings)
	p.record("rank", len(rankings), 0, map[string]any{"window_days": p.cfg.Analysis.WindowDays})

	if err := p.repo.SaveRankings(rankings); err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("persisting rankings failed: %w", err)
	}

	daily := ranker.BuildDailyResult(rankings, summary.RankingDate,
		p.cfg.Analysis.WindowDays, summary.Collected, p.cfg.Analysis.TopN,
		ranker.AvgConfidence(windowObs))
	if err := p.repo.SaveDailyResult(daily); err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("persisting daily result failed: %w", err)
	}

	// The snapshot is best-effort: the database already holds the run, so
	// a write failure degrades the run instead of failing it.
	path, err := p.snapshots.Write(daily)
	if err != nil {
		logger.ErrorWithErr(ctx, "Snapshot write failed", err)
		summary.Degraded = true
	} else {
		summary.SnapshotPath = path
	}
	summary.Degraded = summary.Degraded || summary.PostsSkipped > 0

	p.record("snapshot", boolToInt(path != ""), 0, map[string]any{"path": path})
	op.End("collected", summary.Collected, "ranked", summary.Ranked, "degraded", summary.Degraded)
	return summary, nil
}

// Correlate backtests the rankings of the past `days` days against a price
// source and persists the resolved predictions.
func (p *Pipeline) Correlate(ctx context.Context, src prices.Source, days int) (*types.AccuracyReport, error) {
	op := logger.StartOperation(ctx, "pipeline.correlate", "days", days)
	ctx = op.GetContext()

	to := p.now().UTC()
	from := to.AddDate(0, 0, -days)
	rankings, err := p.repo.RankingsBetween(from, to)
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}

	correlator := backtest.NewCorrelator(src, backtest.Params{
		Horizons:            p.cfg.Backtest.Horizons,
		DirectionThreshold:  p.cfg.Backtest.DirectionThreshold,
		MaxTradingDaySearch: p.cfg.Backtest.MaxTradingDaySearch,
	})
	reportOut, err := correlator.Evaluate(ctx, rankings)
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}

	if err := p.repo.SaveAccuracyRecords(reportOut.Records); err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("persisting accuracy records failed: %w", err)
	}

	p.record("correlate", len(reportOut.Records), reportOut.FlatSkipped, nil)
	op.End("records", len(reportOut.Records), "flat_skipped", reportOut.FlatSkipped)
	return reportOut, nil
}

// record mirrors a stage outcome into the run log. Run-log failures are
// not worth failing a run over.
func (p *Pipeline) record(stage string, processed, skipped int, detail map[string]any) {
	_ = runlog.Append(runlog.Entry{
		Mode:      "run",
		Stage:     stage,
		Processed: processed,
		Skipped:   skipped,
		Detail:    detail,
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
