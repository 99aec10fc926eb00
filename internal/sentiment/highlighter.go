package sentiment

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/clairempr/letterpress-sub000/internal/index"
)

// CSS classes distinguishing default-weight matches from weighted ones.
const (
	HighlightClassNormal = "sentiment-highlight-normal"
	HighlightClassExtra  = "sentiment-highlight-extra"
)

// Highlighter wraps every sentiment term occurrence in the original text
// with a styled span, longer phrases winning over the shorter phrases they
// contain so no character is wrapped twice.
type Highlighter struct {
	catalog Catalog
	vectors *TermVectors
	log     zerolog.Logger
}

func NewHighlighter(catalog Catalog, vectors *TermVectors, log zerolog.Logger) *Highlighter {
	return &Highlighter{
		catalog: catalog,
		vectors: vectors,
		log:     log.With().Str("component", "sentiment-highlighter").Logger(),
	}
}

type markedSpan struct {
	start, end, weight int
}

// HighlightText returns text with matched spans wrapped. An unknown or empty
// sentiment returns the input unchanged.
func (h *Highlighter) HighlightText(ctx context.Context, text string, sentimentID int64) (string, error) {
	cs, terms, err := h.catalog.CustomSentiment(ctx, sentimentID)
	if err != nil {
		return "", err
	}
	if cs == nil || len(terms) == 0 {
		return text, nil
	}
	tv, err := h.vectors.ForText(text)
	if err != nil {
		return "", err
	}
	return insertMarkers(text, markSpans(tv, terms)), nil
}

// HighlightLetter highlights a stored letter's contents.
func (h *Highlighter) HighlightLetter(ctx context.Context, contents string, sentimentID int64) (string, error) {
	return h.HighlightText(ctx, contents, sentimentID)
}

// markSpans records one span per matched term occurrence, keyed by token
// position, longest terms first. After each recorded occurrence every token
// whose span lies entirely inside it is dropped from the term vector, so a
// shorter term cannot claim characters a longer one already covers.
func markSpans(tv index.TermVector, terms []Term) map[int]markedSpan {
	remaining := make(index.TermVector, len(tv))
	for token, info := range tv {
		tokens := make([]index.TokenSpan, len(info.Tokens))
		copy(tokens, info.Tokens)
		info.Tokens = tokens
		remaining[token] = info
	}

	spans := make(map[int]markedSpan)
	for _, term := range orderByLength(terms) {
		info, ok := remaining[term.AnalyzedText]
		if !ok {
			continue
		}
		occurrences := make([]index.TokenSpan, len(info.Tokens))
		copy(occurrences, info.Tokens)
		for _, tok := range occurrences {
			if _, taken := spans[tok.Position]; taken {
				continue
			}
			spans[tok.Position] = markedSpan{start: tok.StartOffset, end: tok.EndOffset, weight: term.Weight}
			dropContained(remaining, tok.StartOffset, tok.EndOffset)
		}
	}
	return spans
}

// dropContained removes every token whose offsets fall entirely within
// [start, end] from the working term vector.
func dropContained(tv index.TermVector, start, end int) {
	for token, info := range tv {
		kept := info.Tokens[:0]
		for _, tok := range info.Tokens {
			if tok.StartOffset >= start && tok.EndOffset <= end {
				continue
			}
			kept = append(kept, tok)
		}
		if len(kept) == 0 {
			delete(tv, token)
			continue
		}
		info.Tokens = kept
		tv[token] = info
	}
}

// insertMarkers wraps each span, walking positions in descending order so
// earlier offsets stay valid as insertions grow the text. A span that would
// cross into an already-emitted later span is clamped to end before it.
func insertMarkers(text string, spans map[int]markedSpan) string {
	positions := make([]int, 0, len(spans))
	for pos := range spans {
		positions = append(positions, pos)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(positions)))

	prevStart := len(text) + 1
	for _, pos := range positions {
		s := spans[pos]
		if s.start >= len(text) || s.start >= prevStart {
			continue
		}
		end := s.end
		if end > prevStart {
			end = prevStart
		}
		if end > len(text) {
			end = len(text)
		}
		class := HighlightClassNormal
		if s.weight > 1 {
			class = HighlightClassExtra
		}
		text = text[:s.start] +
			fmt.Sprintf("<span class=\"%s\">", class) +
			text[s.start:end] +
			"</span>" +
			text[end:]
		prevStart = s.start
	}
	return text
}
