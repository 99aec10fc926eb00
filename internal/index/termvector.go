package index

import (
	"strings"

	"github.com/clairempr/letterpress-sub000/internal/analysis"
)

// TokenSpan is one occurrence of a term in a document.
type TokenSpan struct {
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`
	Position    int `json:"position"`
}

// TermInfo holds the frequency and occurrences of a single term.
type TermInfo struct {
	TermFreq int         `json:"term_freq"`
	Tokens   []TokenSpan `json:"tokens,omitempty"`
}

// TermVector maps each analyzed term of a field to its frequency and spans.
type TermVector map[string]TermInfo

func buildTermVector(tokens []analysis.Token, offsets, positions bool) TermVector {
	tv := make(TermVector, len(tokens))
	for _, tok := range tokens {
		info := tv[tok.Text]
		info.TermFreq++
		if offsets || positions {
			span := TokenSpan{}
			if offsets {
				span.StartOffset = tok.StartOffset
				span.EndOffset = tok.EndOffset
			}
			if positions {
				span.Position = tok.Position
			}
			info.Tokens = append(info.Tokens, span)
		}
		tv[tok.Text] = info
	}
	return tv
}

// TermVectorsForText analyzes text with the named analyzer and returns the
// term-vector shape without indexing anything.
func (e *Engine) TermVectorsForText(text, analyzer string, offsets, positions bool) (TermVector, error) {
	a, ok := analysis.Get(analyzer)
	if !ok {
		return nil, errBadRequest("unknown analyzer %q", analyzer)
	}
	return buildTermVector(a.Analyze(text), offsets, positions), nil
}

// TermVectorsForDoc returns term vectors for a stored document's field. When
// analyzer is non-empty the field's source text is re-analyzed with it, the
// equivalent of a per_field_analyzer override.
func (e *Engine) TermVectorsForDoc(id, field, analyzer string, offsets, positions bool) (TermVector, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, ok := e.docs[id]
	if !ok {
		return nil, errNotFound("document %q not found in index %q", id, e.name)
	}
	if analyzer != "" {
		a, ok := analysis.Get(analyzer)
		if !ok {
			return nil, errBadRequest("unknown analyzer %q", analyzer)
		}
		// Sub-fields such as contents.custom_sentiment share the root
		// field's source text.
		root, _, _ := strings.Cut(field, ".")
		text, _ := doc.source[root].(string)
		return buildTermVector(a.Analyze(text), offsets, positions), nil
	}
	tokens, ok := doc.fields[field]
	if !ok {
		return nil, errBadRequest("field %q has no term vectors", field)
	}
	return buildTermVector(tokens, offsets, positions), nil
}

// MTermVectors is the batched variant used for aggregation: one term vector
// per requested document, keyed by id. Unknown ids are skipped.
func (e *Engine) MTermVectors(ids []string, field string) (map[string]TermVector, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make(map[string]TermVector, len(ids))
	for _, id := range ids {
		doc, ok := e.docs[id]
		if !ok {
			continue
		}
		tokens, ok := doc.fields[field]
		if !ok {
			continue
		}
		result[id] = buildTermVector(tokens, false, false)
	}
	return result, nil
}
