package interfaces

import "wsb-sentiment/internal/types"

// SentimentScorer turns a post and the tickers found in it into one
// observation per ticker.
type SentimentScorer interface {
	ScoreMentions(post types.RawPost, symbols []string) []types.SentimentObservation
}
