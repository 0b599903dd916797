package sentiment

import (
	"math"
	"time"

	"github.com/jonreiter/govader"

	"wsb-sentiment/internal/types"
)

// Blend weights between the lexicon model and the keyword heuristics when
// both produce a signal. The lexicon dominates; keywords correct for slang.
const (
	vaderBlendWeight   = 0.7
	keywordBlendWeight = 0.3
)

// Scorer computes polarity and confidence for post text using the VADER
// lexicon blended with community-specific keyword heuristics.
type Scorer struct {
	vader             *govader.SentimentIntensityAnalyzer
	positiveThreshold float64
	negativeThreshold float64
	maxTextBytes      int
}

// Params configures a Scorer. Thresholds translate polarity into labels.
type Params struct {
	PositiveThreshold float64
	NegativeThreshold float64
	MaxTextBytes      int
}

// NewScorer creates a sentiment scorer.
func NewScorer(p Params) *Scorer {
	if p.MaxTextBytes <= 0 {
		p.MaxTextBytes = 20000
	}
	return &Scorer{
		vader:             govader.NewSentimentIntensityAnalyzer(),
		positiveThreshold: p.PositiveThreshold,
		negativeThreshold: p.NegativeThreshold,
		maxTextBytes:      p.MaxTextBytes,
	}
}

// Score produces one SentimentObservation for a (post, ticker) pair.
func (s *Scorer) Score(post types.RawPost, symbol string) types.SentimentObservation {
	text := CleanText(post.Title + " " + post.Body)
	if len(text) > s.maxTextBytes {
		text = text[:s.maxTextBytes]
	}

	vaderCompound := s.vader.PolarityScores(text).Compound
	kwScore, kwHits := keywordScore(text)

	polarity := vaderCompound
	agreement := 0.6
	if kwHits > 0 {
		polarity = vaderBlendWeight*vaderCompound + keywordBlendWeight*kwScore
		agreement = 1 - math.Abs(vaderCompound-kwScore)/2
	}

	engagement := engagementWeight(post)

	return types.SentimentObservation{
		PostID:     post.ID,
		Symbol:     symbol,
		Polarity:   polarity,
		Label:      s.Label(polarity),
		Confidence: confidence(agreement, engagement),
		Engagement: engagement,
		Detail: map[string]float64{
			"vader":        vaderCompound,
			"keywords":     kwScore,
			"keyword_hits": float64(kwHits),
			"agreement":    agreement,
		},
		ScoredAt: time.Now().UTC(),
	}
}

// ScoreMentions scores every (post, ticker) pair produced by the extractor.
func (s *Scorer) ScoreMentions(post types.RawPost, symbols []string) []types.SentimentObservation {
	obs := make([]types.SentimentObservation, 0, len(symbols))
	for _, sym := range symbols {
		obs = append(obs, s.Score(post, sym))
	}
	return obs
}

// Label maps polarity to a label via the configured thresholds.
func (s *Scorer) Label(polarity float64) string {
	switch {
	case polarity >= s.positiveThreshold:
		return types.LabelPositive
	case polarity <= s.negativeThreshold:
		return types.LabelNegative
	default:
		return types.LabelNeutral
	}
}

// engagementWeight follows the source community's convention: post score
// discounted by upvote ratio, floored at 1 so zero-score posts still count.
func engagementWeight(post types.RawPost) float64 {
	ratio := post.UpvoteRatio
	if ratio <= 0 {
		ratio = 0.5
	}
	w := float64(post.Score)*ratio + 0.5*float64(post.NumComments)
	return math.Max(1, w)
}

// confidence combines sub-model agreement with engagement volume. Both
// factors are in [0, 1], so the result is too.
func confidence(agreement, engagement float64) float64 {
	volume := math.Min(1, math.Log(engagement+1)/math.Log(1000))
	c := 0.6*agreement + 0.4*volume
	return math.Max(0, math.Min(1, c))
}
