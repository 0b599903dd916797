// Package pricesobs wraps a price source with tracing and logging.
package pricesobs

import (
	"context"
	"time"

	"wsb-sentiment/internal/interfaces"
	"wsb-sentiment/internal/logger"
	"wsb-sentiment/internal/trace"
	"wsb-sentiment/internal/types"
)

type observableSource struct {
	source interfaces.PriceSource
}

var _ interfaces.PriceSource = (*observableSource)(nil)

// Wrap decorates a price source with spans and debug logs per fetch.
func Wrap(source interfaces.PriceSource) interfaces.PriceSource {
	return &observableSource{source: source}
}

func (os *observableSource) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]types.PricePoint, error) {
	ctx, span := trace.StartSpan(ctx, "prices.DailyCloses")
	defer span.End()

	points, err := os.source.DailyCloses(ctx, symbol, from, to)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Price fetch failed", err,
			"symbol", symbol,
			"from", from.Format("2006-01-02"),
			"to", to.Format("2006-01-02"),
		)
		return nil, err
	}

	logger.Debug(ctx, "Price fetch completed",
		"symbol", symbol,
		"points", len(points),
	)
	return points, nil
}
