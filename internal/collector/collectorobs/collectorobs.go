// Package collectorobs wraps a collector source with tracing and logging.
package collectorobs

import (
	"context"

	"wsb-sentiment/internal/collector"
	"wsb-sentiment/internal/logger"
	"wsb-sentiment/internal/trace"
)

type observableSource struct {
	source collector.Source
}

var _ collector.Source = (*observableSource)(nil)

// Wrap decorates a source with spans and structured logs around each pass.
func Wrap(source collector.Source) collector.Source {
	return &observableSource{source: source}
}

func (os *observableSource) Collect(ctx context.Context, p collector.Params) (*collector.Result, error) {
	ctx, span := trace.StartSpan(ctx, "collector.Collect")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting post collection",
		"subreddit", p.Subreddit,
		"sort", p.Sort,
		"limit", p.Limit,
		"mode", p.Mode,
	)

	result, err := os.source.Collect(ctx, p)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Post collection failed", err,
			"subreddit", p.Subreddit,
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Post collection completed",
		"subreddit", p.Subreddit,
		"posts", len(result.Posts),
		"skipped", result.Skipped,
	)
	return result, nil
}
