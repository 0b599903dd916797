package ranker

import (
	"math"
	"sort"
	"time"

	"wsb-sentiment/internal/types"
)

// mentionScale controls how fast log-scaled mention volume saturates the
// normalized [0, 1) range. Chosen so ~20 mentions sit near the midpoint.
const mentionScale = 3.0

// Weights form the composite score. Each weight must be non-negative so
// the composite stays monotone in every normalized input.
type Weights struct {
	Mentions   float64
	Sentiment  float64
	Confidence float64
}

// Params configures a ranking computation.
type Params struct {
	WindowDays  int
	MinMentions int
	Weights     Weights
}

// Rank aggregates sentiment observations within the lookback window ending
// at rankingDate into an ordered ranking. It is a pure read-and-compute:
// calling it twice over the same observations yields identical output.
// Zero qualifying tickers yields an empty (non-nil) sequence, not an error.
func Rank(observations []types.SentimentObservation, rankingDate time.Time, p Params) []types.StockRanking {
	windowStart := rankingDate.AddDate(0, 0, -p.WindowDays)

	type bucket struct {
		posts         map[string]struct{}
		sumPolarity   float64
		sumConfidence float64
		count         int
	}
	buckets := map[string]*bucket{}

	for _, obs := range observations {
		if obs.ScoredAt.Before(windowStart) || obs.ScoredAt.After(rankingDate) {
			continue
		}
		b := buckets[obs.Symbol]
		if b == nil {
			b = &bucket{posts: map[string]struct{}{}}
			buckets[obs.Symbol] = b
		}
		b.posts[obs.PostID] = struct{}{}
		b.sumPolarity += obs.Polarity
		b.sumConfidence += obs.Confidence
		b.count++
	}

	rankings := make([]types.StockRanking, 0, len(buckets))
	for symbol, b := range buckets {
		mentions := len(b.posts)
		// Below the mention floor there is not enough signal; hard filter,
		// not a score penalty.
		if mentions < p.MinMentions {
			continue
		}
		avgSentiment := b.sumPolarity / float64(b.count)
		avgConfidence := b.sumConfidence / float64(b.count)

		rankings = append(rankings, types.StockRanking{
			Symbol:        symbol,
			RankingDate:   rankingDate,
			WindowDays:    p.WindowDays,
			Mentions:      mentions,
			AvgSentiment:  avgSentiment,
			AvgConfidence: avgConfidence,
			Composite:     Composite(mentions, avgSentiment, avgConfidence, p.Weights),
		})
	}

	sort.Slice(rankings, func(i, j int) bool {
		a, b := rankings[i], rankings[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		if a.Mentions != b.Mentions {
			return a.Mentions > b.Mentions
		}
		return a.Symbol < b.Symbol
	})
	for i := range rankings {
		rankings[i].Rank = i + 1
	}
	return rankings
}

// Composite is the weighted combination of normalized mention volume,
// normalized sentiment, and confidence. It is monotone non-decreasing in
// each input: more mentions, more positive sentiment, or more confidence
// never lowers the score.
func Composite(mentions int, avgSentiment, avgConfidence float64, w Weights) float64 {
	return w.Mentions*normalizeMentions(mentions) +
		w.Sentiment*normalizeSentiment(avgSentiment) +
		w.Confidence*avgConfidence
}

// normalizeMentions log-scales mention volume and squashes it into [0, 1)
// so a viral outlier cannot drown the other composite inputs.
func normalizeMentions(mentions int) float64 {
	momentum := math.Log1p(float64(mentions))
	return 2/(1+math.Exp(-momentum/mentionScale)) - 1
}

// normalizeSentiment maps polarity from [-1, 1] onto [0, 1].
func normalizeSentiment(avgSentiment float64) float64 {
	return (avgSentiment + 1) / 2
}

// AvgConfidence is the arithmetic mean confidence across observations,
// reported in the daily result.
func AvgConfidence(observations []types.SentimentObservation) float64 {
	if len(observations) == 0 {
		return 0
	}
	var sum float64
	for _, obs := range observations {
		sum += obs.Confidence
	}
	return sum / float64(len(observations))
}

// BuildDailyResult assembles one run's full output from a computed ranking.
func BuildDailyResult(rankings []types.StockRanking, rankingDate time.Time, windowDays, totalPosts, topN int, avgConfidence float64) types.DailyResult {
	top := rankings
	if topN > 0 && len(top) > topN {
		top = top[:topN]
	}
	return types.DailyResult{
		Date:          rankingDate,
		WindowDays:    windowDays,
		TotalStocks:   len(rankings),
		TotalPosts:    totalPosts,
		AvgConfidence: avgConfidence,
		TopRankings:   top,
	}
}
