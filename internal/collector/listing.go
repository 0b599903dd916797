package collector

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"wsb-sentiment/internal/types"
)

// listing mirrors the subset of Reddit's listing JSON the pipeline reads.
type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string    `json:"kind"`
	Data thingData `json:"data"`
}

// thingData carries fields shared by posts (t3) and comments (t1).
type thingData struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Title        string  `json:"title"`
	Selftext     string  `json:"selftext"`
	SelftextHTML string  `json:"selftext_html"`
	Author       string  `json:"author"`
	Score        int     `json:"score"`
	UpvoteRatio  float64 `json:"upvote_ratio"`
	NumComments  int     `json:"num_comments"`
	Permalink    string  `json:"permalink"`
	CreatedUTC   float64 `json:"created_utc"`
	Stickied     bool    `json:"stickied"`
	Body         string  `json:"body"`
}

// postFromThing validates a listing item and converts it. Items missing an
// identity, a title or a creation time fail validation and are skipped.
func postFromThing(d thingData) (types.RawPost, error) {
	id := d.Name
	if id == "" && d.ID != "" {
		id = "t3_" + d.ID
	}
	switch {
	case id == "":
		return types.RawPost{}, &types.MalformedItemError{Source: "reddit", ItemID: "?", Reason: "missing id"}
	case strings.TrimSpace(d.Title) == "":
		return types.RawPost{}, &types.MalformedItemError{Source: "reddit", ItemID: id, Reason: "missing title"}
	case d.CreatedUTC <= 0:
		return types.RawPost{}, &types.MalformedItemError{Source: "reddit", ItemID: id, Reason: "missing created_utc"}
	}

	body := d.Selftext
	if body == "" && d.SelftextHTML != "" {
		body = stripHTML(d.SelftextHTML)
	}

	ratio := d.UpvoteRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	return types.RawPost{
		ID:          id,
		Title:       strings.TrimSpace(d.Title),
		Body:        strings.TrimSpace(body),
		Author:      d.Author,
		Score:       d.Score,
		UpvoteRatio: ratio,
		NumComments: d.NumComments,
		Source:      "reddit",
		URL:         "https://www.reddit.com" + d.Permalink,
		CreatedUTC:  time.Unix(int64(d.CreatedUTC), 0).UTC(),
		RetrievedAt: time.Now().UTC(),
	}, nil
}

// stripHTML flattens rendered selftext to plain text. Parse failures fall
// back to the raw input; sentiment scoring tolerates markup noise.
func stripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}
