// Package backtest checks yesterday's sentiment calls against what prices
// actually did. Rankings predict a direction; the correlator resolves each
// prediction at fixed horizons and aggregates hit rates.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"wsb-sentiment/internal/logger"
	"wsb-sentiment/internal/prices"
	"wsb-sentiment/internal/types"
)

// Params controls prediction derivation and price resolution.
type Params struct {
	// Horizons are the trading offsets, in calendar days, at which each
	// prediction is evaluated.
	Horizons []int
	// DirectionThreshold splits average sentiment into up/flat/down,
	// symmetric around zero. Flat predictions are never evaluated.
	DirectionThreshold float64
	// MaxTradingDaySearch bounds how many calendar days forward a close
	// may be searched when the target date is a holiday or weekend.
	MaxTradingDaySearch int
}

// DefaultParams evaluates at 1, 3 and 7 days with a 0.1 direction band.
func DefaultParams() Params {
	return Params{
		Horizons:            []int{1, 3, 7},
		DirectionThreshold:  0.1,
		MaxTradingDaySearch: 5,
	}
}

// Correlator resolves ranking predictions against a price source.
type Correlator struct {
	source prices.Source
	params Params
}

// NewCorrelator builds a Correlator. Invalid params fall back to defaults
// field by field.
func NewCorrelator(source prices.Source, params Params) *Correlator {
	def := DefaultParams()
	if len(params.Horizons) == 0 {
		params.Horizons = def.Horizons
	}
	if params.DirectionThreshold <= 0 {
		params.DirectionThreshold = def.DirectionThreshold
	}
	if params.MaxTradingDaySearch <= 0 {
		params.MaxTradingDaySearch = def.MaxTradingDaySearch
	}
	horizons := append([]int(nil), params.Horizons...)
	sort.Ints(horizons)
	params.Horizons = horizons
	return &Correlator{source: source, params: params}
}

// Direction maps an average sentiment to a predicted price direction.
func Direction(avgSentiment, threshold float64) string {
	switch {
	case avgSentiment > threshold:
		return types.DirectionUp
	case avgSentiment < -threshold:
		return types.DirectionDown
	default:
		return types.DirectionFlat
	}
}

// Evaluate resolves every non-flat ranking at every horizon and aggregates
// the outcome. Rankings whose prices cannot be resolved are counted as
// unresolvable and excluded from accuracy entirely. The same inputs always
// produce the same report.
func (c *Correlator) Evaluate(ctx context.Context, rankings []types.StockRanking) (*types.AccuracyReport, error) {
	report := &types.AccuracyReport{}
	if len(rankings) == 0 {
		report.Horizons = c.emptyHorizons()
		return report, nil
	}

	from, to := rankingSpan(rankings)
	report.From = from
	report.To = to

	maxHorizon := c.params.Horizons[len(c.params.Horizons)-1]

	perHorizon := map[int]*types.HorizonAccuracy{}
	for _, h := range c.params.Horizons {
		perHorizon[h] = &types.HorizonAccuracy{HorizonDays: h}
	}
	perBand := map[string]*types.BandAccuracy{}

	for _, r := range rankings {
		direction := Direction(r.AvgSentiment, c.params.DirectionThreshold)
		if direction == types.DirectionFlat {
			report.FlatSkipped++
			continue
		}

		closes, err := c.closesFor(ctx, r, maxHorizon)
		if err != nil {
			var unavailable *types.DataUnavailableError
			if errors.As(err, &unavailable) {
				logger.ItemSkip(ctx, "backtest", r.Symbol, err)
				for _, h := range c.params.Horizons {
					perHorizon[h].Unresolvable++
				}
				continue
			}
			return nil, err
		}

		baseDate, baseClose, ok := closeOnOrAfter(closes, r.RankingDate, c.params.MaxTradingDaySearch)
		if !ok {
			for _, h := range c.params.Horizons {
				perHorizon[h].Unresolvable++
			}
			continue
		}

		for _, h := range c.params.Horizons {
			target := baseDate.AddDate(0, 0, h)
			_, horizonClose, ok := closeOnOrAfter(closes, target, c.params.MaxTradingDaySearch)
			if !ok || baseClose == 0 {
				perHorizon[h].Unresolvable++
				continue
			}

			change := (horizonClose - baseClose) / baseClose
			rec := types.AccuracyRecord{
				Symbol:         r.Symbol,
				RankingDate:    r.RankingDate,
				Direction:      direction,
				HorizonDays:    h,
				BaseClose:      baseClose,
				HorizonClose:   horizonClose,
				RealizedChange: change,
				Correct:        correct(direction, change),
				CompositeScore: r.Composite,
			}
			report.Records = append(report.Records, rec)

			perHorizon[h].Evaluated++
			if rec.Correct {
				perHorizon[h].Correct++
			}

			band := scoreBand(r.Composite)
			if perBand[band] == nil {
				perBand[band] = &types.BandAccuracy{Band: band}
			}
			perBand[band].Evaluated++
			if rec.Correct {
				perBand[band].Correct++
			}
		}
	}

	for _, h := range c.params.Horizons {
		acc := perHorizon[h]
		if acc.Evaluated > 0 {
			acc.Accuracy = float64(acc.Correct) / float64(acc.Evaluated)
		}
		report.Horizons = append(report.Horizons, *acc)
	}

	bands := make([]string, 0, len(perBand))
	for b := range perBand {
		bands = append(bands, b)
	}
	sort.Strings(bands)
	for _, b := range bands {
		acc := perBand[b]
		acc.Accuracy = float64(acc.Correct) / float64(acc.Evaluated)
		report.ScoreBands = append(report.ScoreBands, *acc)
	}

	sort.SliceStable(report.Records, func(i, j int) bool {
		a, b := report.Records[i], report.Records[j]
		if !a.RankingDate.Equal(b.RankingDate) {
			return a.RankingDate.Before(b.RankingDate)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.HorizonDays < b.HorizonDays
	})

	return report, nil
}

func (c *Correlator) emptyHorizons() []types.HorizonAccuracy {
	out := make([]types.HorizonAccuracy, 0, len(c.params.Horizons))
	for _, h := range c.params.Horizons {
		out = append(out, types.HorizonAccuracy{HorizonDays: h})
	}
	return out
}

// closesFor fetches the full price range one prediction needs: base date
// through the longest horizon, padded by the trading-day search window on
// both the base and horizon lookups.
func (c *Correlator) closesFor(ctx context.Context, r types.StockRanking, maxHorizon int) (map[string]float64, error) {
	from := dateOnly(r.RankingDate)
	to := from.AddDate(0, 0, maxHorizon+2*c.params.MaxTradingDaySearch)

	points, err := c.source.DailyCloses(ctx, r.Symbol, from, to)
	if err != nil {
		return nil, err
	}
	closes := make(map[string]float64, len(points))
	for _, p := range points {
		closes[dayKey(p.Date)] = p.Close
	}
	return closes, nil
}

// closeOnOrAfter finds the first close on target or within searchDays
// calendar days after it. Markets close on weekends and holidays, so the
// target itself often has no close.
func closeOnOrAfter(closes map[string]float64, target time.Time, searchDays int) (time.Time, float64, bool) {
	d := dateOnly(target)
	for i := 0; i <= searchDays; i++ {
		if c, ok := closes[dayKey(d)]; ok {
			return d, c, true
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Time{}, 0, false
}

func correct(direction string, realizedChange float64) bool {
	switch direction {
	case types.DirectionUp:
		return realizedChange > 0
	case types.DirectionDown:
		return realizedChange < 0
	}
	return false
}

// scoreBand buckets a composite score into fixed 0.2-wide bands so hit
// rates can be compared across conviction levels.
func scoreBand(composite float64) string {
	if composite < 0 {
		composite = 0
	}
	if composite >= 1 {
		return "0.8-1.0"
	}
	lo := float64(int(composite*5)) / 5
	return fmt.Sprintf("%.1f-%.1f", lo, lo+0.2)
}

func rankingSpan(rankings []types.StockRanking) (time.Time, time.Time) {
	from, to := rankings[0].RankingDate, rankings[0].RankingDate
	for _, r := range rankings {
		if r.RankingDate.Before(from) {
			from = r.RankingDate
		}
		if r.RankingDate.After(to) {
			to = r.RankingDate
		}
	}
	return dateOnly(from), dateOnly(to)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
