package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
)

// Analyzer profile names. These are part of the index contract: documents
// analyzed with one definition cannot be queried with another.
const (
	LetterContents      = "letter_contents_analyzer"
	SentimentTerm       = "string_sentiment_analyzer"
	TermVectorSentiment = "termvector_sentiment_analyzer"
	Standard            = "standard"
)

type tokenFilter func(string) string

// Analyzer is a deterministic string -> token pipeline: char filters, the
// standard tokenizer, token filters, and an optional shingle stage.
type Analyzer struct {
	name         string
	charFilters  []charFilter
	tokenFilters []tokenFilter
	shingleMin   int
	shingleMax   int
}

func lowercase(s string) string { return strings.ToLower(s) }

func stem(s string) string {
	stemmed, err := snowball.Stem(s, "english", false)
	if err != nil {
		return s
	}
	return stemmed
}

func restoreAmpersand(s string) string {
	return strings.ReplaceAll(s, ampersandMarker, "&")
}

var analyzers = map[string]*Analyzer{
	// Analyzes letter contents for the indexed contents field. The ampersand
	// hide/restore round-trip keeps "&" searchable.
	LetterContents: {
		name:         LetterContents,
		charFilters:  []charFilter{hideAmpersand},
		tokenFilters: []tokenFilter{restoreAmpersand, lowercase},
	},
	// Canonical form of a user-supplied sentiment phrase.
	SentimentTerm: {
		name:         SentimentTerm,
		charFilters:  []charFilter{ampersandToAnd, removeApostrophes},
		tokenFilters: []tokenFilter{lowercase, stem},
	},
	// Re-analyzes letter contents (sometimes html) for sentiment termvectors.
	// Shingles make multi-word phrases matchable as single tokens.
	TermVectorSentiment: {
		name:         TermVectorSentiment,
		charFilters:  []charFilter{stripHTML, ampersandToAnd, removeApostrophes},
		tokenFilters: []tokenFilter{lowercase, stem},
		shingleMin:   2,
		shingleMax:   3,
	},
	Standard: {
		name:         Standard,
		tokenFilters: []tokenFilter{lowercase},
	},
}

// Get returns the named analyzer profile.
func Get(name string) (*Analyzer, bool) {
	a, ok := analyzers[name]
	return a, ok
}

func (a *Analyzer) Name() string { return a.name }

// Analyze runs the full pipeline and returns the token stream with offsets
// into the original input.
func (a *Analyzer) Analyze(text string) []Token {
	f := newFiltered(text)
	for _, cf := range a.charFilters {
		f = cf(f)
	}

	tokens := tokenize(f)

	out := tokens[:0]
	position := 0
	for _, tok := range tokens {
		for _, tf := range a.tokenFilters {
			tok.Text = tf(tok.Text)
		}
		if tok.Text == "" {
			continue
		}
		tok.Position = position
		position++
		out = append(out, tok)
	}

	if a.shingleMax > 1 {
		return shingles(out, a.shingleMin, a.shingleMax)
	}
	return out
}

// AnalyzeString returns the analyzed tokens joined with single spaces, the
// canonical form stored as a term's analyzed_text.
func (a *Analyzer) AnalyzeString(text string) string {
	tokens := a.Analyze(text)
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = tok.Text
	}
	return strings.Join(parts, " ")
}

// TokenCount counts the unigram tokens the analyzer produces, the basis of
// the word_count token-count subfield.
func (a *Analyzer) TokenCount(text string) int {
	count := 0
	for _, tok := range a.Analyze(text) {
		if tok.Type != TypeShingle {
			count++
		}
	}
	return count
}

// tokenize splits on any rune that is not a letter or a number, recording
// byte offsets mapped back through the char-filter chain.
func tokenize(f filtered) []Token {
	var tokens []Token
	start := -1
	for i := 0; i < len(f.text); {
		r, size := utf8.DecodeRuneInString(f.text[i:])
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			tokens = append(tokens, Token{
				Text:        f.text[start:i],
				StartOffset: f.offsets[start],
				EndOffset:   f.offsets[i],
				Type:        TypeAlphanum,
			})
			start = -1
		}
		i += size
	}
	if start >= 0 {
		tokens = append(tokens, Token{
			Text:        f.text[start:],
			StartOffset: f.offsets[start],
			EndOffset:   f.offsets[len(f.text)],
			Type:        TypeAlphanum,
		})
	}
	return tokens
}

// shingles emits the unigram stream plus min..max word shingles. A shingle
// keeps the position of its first word and spans from the first word's start
// offset to the last word's end offset in the original text.
func shingles(tokens []Token, min, max int) []Token {
	out := make([]Token, 0, len(tokens)*max)
	for i, tok := range tokens {
		out = append(out, tok)
		for n := min; n <= max; n++ {
			if i+n > len(tokens) {
				break
			}
			parts := make([]string, n)
			for j := 0; j < n; j++ {
				parts[j] = tokens[i+j].Text
			}
			out = append(out, Token{
				Text:        strings.Join(parts, " "),
				StartOffset: tok.StartOffset,
				EndOffset:   tokens[i+n-1].EndOffset,
				Position:    tok.Position,
				Type:        TypeShingle,
			})
		}
	}
	return out
}
