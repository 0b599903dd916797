package prices

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"wsb-sentiment/internal/interfaces"
	"wsb-sentiment/internal/types"
)

// Source provides historical daily closes for a ticker over a date range.
// Implementations return DataUnavailableError (not an empty error) when a
// ticker/date range has no data at all.
type Source = interfaces.PriceSource

// StaticSource is a deterministic offline source used by dry runs and
// tests. Closes follow a symbol-seeded walk; weekends have no points.
type StaticSource struct{}

// NewStaticSource creates an offline price source.
func NewStaticSource() *StaticSource {
	return &StaticSource{}
}

func (s *StaticSource) DailyCloses(_ context.Context, symbol string, from, to time.Time) ([]types.PricePoint, error) {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	seed := float64(h.Sum32() % 1000)
	base := 20 + seed/5

	var points []types.PricePoint
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		day := float64(d.YearDay() + d.Year())
		close := base * (1 + 0.02*math.Sin(day+seed))
		points = append(points, types.PricePoint{
			Symbol: symbol,
			Date:   d,
			Close:  math.Round(close*100) / 100,
		})
	}
	if len(points) == 0 {
		return nil, &types.DataUnavailableError{Source: "static", Key: symbol}
	}
	return points, nil
}
