package sentiment

import "strings"

// WSB slang that a general-purpose lexicon misses or misreads. Phrases are
// matched as substrings of the lowercased text, single words on token
// boundaries via the surrounding-space trick.
var positiveKeywords = []string{
	"buy", "bull", "bullish", "moon", "rocket", "gain", "profit", "long",
	"call", "calls", "rise", "pump", "diamond hands", "hodl", "hold",
	"tendies", "squeeze", "breakout", "undervalued",
}

var negativeKeywords = []string{
	"sell", "bear", "bearish", "crash", "loss", "short", "put", "puts",
	"fall", "dump", "paper hands", "rip", "dead", "bagholder", "drill",
	"overvalued", "rug pull",
}

// keywordScore returns (pos-neg)/total over keyword hits, in [-1, 1], and
// the number of hits. No hits yields (0, 0).
func keywordScore(text string) (float64, int) {
	padded := " " + strings.ToLower(text) + " "

	count := func(words []string) int {
		n := 0
		for _, w := range words {
			if strings.Contains(w, " ") {
				if strings.Contains(padded, w) {
					n++
				}
				continue
			}
			if strings.Contains(padded, " "+w+" ") || strings.Contains(padded, " "+w+".") ||
				strings.Contains(padded, " "+w+",") || strings.Contains(padded, " "+w+"!") {
				n++
			}
		}
		return n
	}

	pos := count(positiveKeywords)
	neg := count(negativeKeywords)
	total := pos + neg
	if total == 0 {
		return 0, 0
	}
	return float64(pos-neg) / float64(total), total
}
