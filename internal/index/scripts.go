package index

import (
	"math"
	"strings"
)

// SentimentScoreScript length-normalizes a custom-sentiment function score.
// A _score of 1 means no sentiment term matched (the bool query's id filter
// alone), so it is coerced to 0. The constants are a numeric contract:
// published scores depend on them.
const SentimentScoreScript = "if (_score == 1) { return 0; } " +
	"long word_count = doc['contents.word_count'].value; " +
	"double factor = (Math.log(word_count * 0.5) / Math.log(2)) * 14; " +
	"return _score / factor;"

type scriptFunc func(score float64, doc *document) float64

// normalizeScript collapses whitespace so the inline source matches however
// the caller formatted it.
func normalizeScript(source string) string {
	return strings.Join(strings.Fields(source), " ")
}

func (e *Engine) registerScripts() {
	e.scripts[normalizeScript(SentimentScoreScript)] = sentimentScore
}

func sentimentScore(score float64, doc *document) float64 {
	if score == 1 {
		return 0
	}
	wordCount := float64(doc.wordCount)
	factor := (math.Log(wordCount*0.5) / math.Ln2) * 14
	return score / factor
}
