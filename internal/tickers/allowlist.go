package tickers

import (
	_ "embed"
	"strings"
)

// tickersTxt is reference data: one known US-listed symbol per line.
// Symbols that double as English words still require a '$' prefix in text
// (see commonWords).
//
//go:embed tickers.txt
var tickersTxt string

func embeddedAllowList() map[string]struct{} {
	allowed := map[string]struct{}{}
	for _, line := range strings.Split(tickersTxt, "\n") {
		sym := strings.TrimSpace(line)
		if sym == "" || strings.HasPrefix(sym, "#") {
			continue
		}
		allowed[strings.ToUpper(sym)] = struct{}{}
	}
	return allowed
}
