package tickers

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxScanBytes bounds how much of a post is scanned for tickers.
// Posts longer than this are truncated; normal posts are unaffected.
const DefaultMaxScanBytes = 20000

// A candidate must start at a token boundary; a plain \b cannot anchor a
// '$' prefix, so the boundary is matched explicitly and the token captured.
var tokenPattern = regexp.MustCompile(`(?:^|[^$A-Za-z])(\$?[A-Za-z]{1,5})\b`)

// Extractor finds ticker symbols in raw text. It is a pure function of the
// text and its allow-list; no side effects.
type Extractor struct {
	allowed      map[string]struct{}
	maxScanBytes int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithAllowList replaces the embedded allow-list of known symbols.
func WithAllowList(symbols []string) Option {
	return func(e *Extractor) {
		e.allowed = make(map[string]struct{}, len(symbols))
		for _, s := range symbols {
			e.allowed[strings.ToUpper(s)] = struct{}{}
		}
	}
}

// WithMaxScanBytes bounds the text prefix scanned per post.
func WithMaxScanBytes(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxScanBytes = n
		}
	}
}

// NewExtractor creates an extractor backed by the embedded allow-list of
// known US tickers.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		allowed:      embeddedAllowList(),
		maxScanBytes: DefaultMaxScanBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the set of ticker symbols plausibly referenced by text,
// sorted ascending. A token qualifies when it is 1-5 letters prefixed with
// '$' (unambiguous marker, allow-list bypassed), or a bare uppercase 1-5
// letter token present in the allow-list and not a common English word.
// Text with no candidates yields an empty set, not an error.
func (e *Extractor) Extract(text string) []string {
	if len(text) > e.maxScanBytes {
		text = text[:e.maxScanBytes]
	}

	found := map[string]struct{}{}
	for _, m := range tokenPattern.FindAllStringSubmatch(text, -1) {
		tok := m[1]
		if strings.HasPrefix(tok, "$") {
			sym := strings.ToUpper(tok[1:])
			if sym != "" {
				found[sym] = struct{}{}
			}
			continue
		}
		// Bare tokens must already be uppercase; "gme" in prose is a word,
		// "GME" is a ticker candidate.
		if tok != strings.ToUpper(tok) {
			continue
		}
		if _, stop := commonWords[tok]; stop {
			continue
		}
		if _, ok := e.allowed[tok]; ok {
			found[tok] = struct{}{}
		}
	}

	symbols := make([]string, 0, len(found))
	for sym := range found {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// commonWords are uppercase tokens that collide with valid-looking ticker
// symbols and are rejected unless written with a '$' prefix.
var commonWords = map[string]struct{}{
	"A": {}, "ALL": {}, "AND": {}, "ANY": {}, "ARE": {}, "AT": {},
	"BE": {}, "BEST": {}, "BIG": {}, "BUY": {}, "CAN": {}, "CEO": {},
	"DD": {}, "DOWN": {}, "EDIT": {}, "EPS": {}, "ETF": {}, "EV": {},
	"FOR": {}, "FDA": {}, "GAIN": {}, "GDP": {}, "GO": {}, "GOOD": {},
	"HAS": {}, "HE": {}, "HOLD": {}, "HUGE": {}, "I": {}, "IMO": {},
	"IPO": {}, "IRS": {}, "IS": {}, "IT": {}, "ITM": {}, "LOL": {},
	"LOSS": {}, "LOW": {}, "MOON": {}, "NEW": {}, "NEXT": {}, "NOW": {},
	"ON": {}, "ONE": {}, "OR": {}, "OTM": {}, "OUT": {}, "PUMP": {},
	"RED": {}, "RH": {}, "SEC": {}, "SELL": {}, "SO": {}, "STAY": {},
	"TLDR": {}, "TO": {}, "UP": {}, "US": {}, "USA": {}, "USD": {},
	"WSB": {}, "YOLO": {}, "YOU": {},
}
