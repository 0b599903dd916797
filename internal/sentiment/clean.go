package sentiment

import (
	"regexp"
	"strings"
)

var (
	urlPattern     = regexp.MustCompile(`http[s]?://\S+`)
	mentionPattern = regexp.MustCompile(`[@#]\w+`)
)

// CleanText strips URLs, mentions, and hashtags before scoring so link
// text does not skew the lexicon.
func CleanText(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = mentionPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
