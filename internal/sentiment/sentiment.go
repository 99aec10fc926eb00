// Package sentiment implements weighted-lexicon scoring and highlighting of
// letter text. A custom sentiment is a named set of weighted phrase terms;
// its score for a text is the length-normalized weighted sum of phrase
// matches, computed either in process from a term vector or inside the
// search index with a function-scored query.
package sentiment

import (
	"context"
	"fmt"
	"strings"
)

// CustomSentiment is a named group of weighted phrase terms. MaxWeight is at
// least every contained term's weight and anchors score normalization.
type CustomSentiment struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	MaxWeight int    `json:"max_weight"`
}

// Term is one phrase within a custom sentiment. AnalyzedText is the
// sentiment-term analyzer's output for Text and is re-derived whenever Text
// changes; the two must never diverge in storage.
type Term struct {
	ID           int64  `json:"id"`
	SentimentID  int64  `json:"custom_sentiment_id"`
	Text         string `json:"text"`
	AnalyzedText string `json:"analyzed_text"`
	Weight       int    `json:"weight"`
}

// NumberOfWords is the whitespace-separated word count of the raw phrase.
func (t Term) NumberOfWords() int {
	return len(strings.Fields(t.Text))
}

// Catalog provides read access to stored sentiments. An unknown id returns
// (nil, nil, nil): scoring treats it as a neutral zero, not an error.
type Catalog interface {
	CustomSentiment(ctx context.Context, id int64) (*CustomSentiment, []Term, error)
}

// Result is a scored sentiment. The zero Result means no sentiment applied.
type Result struct {
	Name  string
	Score float64
}

func (r Result) String() string {
	if r.Name == "" {
		return "0"
	}
	return fmt.Sprintf("%s: %.3f", r.Name, r.Score)
}
