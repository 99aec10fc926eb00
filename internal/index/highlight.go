package index

import (
	"sort"
	"strings"

	"github.com/clairempr/letterpress-sub000/internal/analysis"
)

const fragmentWindow = 100

var (
	defaultPreTag  = "<em>"
	defaultPostTag = "</em>"
)

// highlightPhrase is one sequence of analyzed terms to mark in a field.
type highlightPhrase struct {
	words []string
}

// collectHighlightPhrases walks the query tree and gathers, per field, the
// analyzed phrases to highlight. Match clauses contribute each term as its
// own phrase; match_phrase clauses contribute the whole word sequence.
func collectHighlightPhrases(q *Query) map[string][]highlightPhrase {
	out := make(map[string][]highlightPhrase)
	walkQuery(q, out)
	return out
}

func walkQuery(q *Query, out map[string][]highlightPhrase) {
	if q == nil {
		return
	}
	switch {
	case q.Bool != nil:
		for _, clauses := range []QueryList{q.Bool.Must, q.Bool.Should, q.Bool.Filter} {
			for _, sub := range clauses {
				walkQuery(sub, out)
			}
		}
	case q.FunctionScore != nil:
		walkQuery(q.FunctionScore.Query, out)
	case q.Match != nil:
		for field, mq := range q.Match {
			for _, word := range analyzeClause(field, mq) {
				out[field] = append(out[field], highlightPhrase{words: []string{word}})
			}
		}
	case q.MatchPhrase != nil:
		for field, mq := range q.MatchPhrase {
			words := analyzeClause(field, mq)
			if len(words) > 0 {
				out[field] = append(out[field], highlightPhrase{words: words})
			}
		}
	}
}

func analyzeClause(field string, mq MatchQuery) []string {
	analyzerName := mq.Analyzer
	if analyzerName == "" {
		analyzerName = analyzedFields[field]
	}
	a, ok := analysis.Get(analyzerName)
	if !ok {
		return nil
	}
	return tokenTexts(a.Analyze(mq.Query))
}

// span is a byte range of the raw field text to wrap in tags. The tag index
// cycles through the configured tag pairs per query phrase.
type span struct {
	start, end, tag int
}

// highlightHit renders highlighted fragments for every requested field.
// Token offsets recorded at analysis time point into the raw field text, so
// tags are inserted into the original source rather than the analyzed form.
func (e *Engine) highlightHit(doc *document, hl *Highlight, phrases map[string][]highlightPhrase) map[string][]string {
	result := make(map[string][]string)
	for field, opts := range hl.Fields {
		tokens := doc.fields[field]
		if tokens == nil {
			continue
		}
		text, _ := doc.source[FieldContents].(string)
		spans := phraseSpans(tokens, phrases[field])
		if len(spans) == 0 {
			continue
		}
		pre, post := hl.PreTags, hl.PostTags
		if len(pre) == 0 {
			pre = []string{defaultPreTag}
		}
		if len(post) == 0 {
			post = []string{defaultPostTag}
		}
		tagged := insertTags(text, spans, pre, post)
		result[field] = fragments(tagged, spans, opts.NumberOfFragments)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// phraseSpans finds every occurrence of every phrase by consecutive token
// positions, then merges overlapping spans keeping the earlier tag.
func phraseSpans(tokens []analysis.Token, phrases []highlightPhrase) []span {
	byPos := make(map[int]analysis.Token, len(tokens))
	for _, tok := range tokens {
		byPos[tok.Position] = tok
	}
	var spans []span
	for tag, phrase := range phrases {
		for _, tok := range tokens {
			if tok.Text != phrase.words[0] {
				continue
			}
			last := tok
			matched := true
			for k := 1; k < len(phrase.words); k++ {
				next, ok := byPos[tok.Position+k]
				if !ok || next.Text != phrase.words[k] {
					matched = false
					break
				}
				last = next
			}
			if matched {
				spans = append(spans, span{start: tok.StartOffset, end: last.EndOffset, tag: tag})
			}
		}
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})
	merged := spans[:0]
	for _, s := range spans {
		if n := len(merged); n > 0 && s.start < merged[n-1].end {
			if s.end > merged[n-1].end {
				merged[n-1].end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// insertTags wraps each span in its tag pair, working from the last span
// backwards so earlier offsets stay valid.
func insertTags(text string, spans []span, pre, post []string) string {
	var b strings.Builder
	prev := 0
	for _, s := range spans {
		if s.start < prev || s.end > len(text) {
			continue
		}
		b.WriteString(text[prev:s.start])
		b.WriteString(pre[s.tag%len(pre)])
		b.WriteString(text[s.start:s.end])
		b.WriteString(post[s.tag%len(post)])
		prev = s.end
	}
	b.WriteString(text[prev:])
	return b.String()
}

// fragments slices the tagged text into at most n windows around the matched
// spans. n == 0 means the whole field as a single fragment.
func fragments(tagged string, spans []span, n int) []string {
	if n <= 0 {
		return []string{tagged}
	}
	// Spans index the untagged text; locate tags in the tagged text instead
	// so windows are cut around visible highlights.
	var out []string
	rest := tagged
	base := 0
	for len(out) < n {
		open := strings.Index(rest, "<")
		if open < 0 {
			break
		}
		center := base + open
		start := center - fragmentWindow
		if start < 0 {
			start = 0
		}
		end := center + fragmentWindow
		if end > len(tagged) {
			end = len(tagged)
		}
		start = snapToSpace(tagged, start, false)
		end = snapToSpace(tagged, end, true)
		out = append(out, strings.TrimSpace(tagged[start:end]))
		if end <= base+open {
			break
		}
		base = end
		if base >= len(tagged) {
			break
		}
		rest = tagged[base:]
	}
	return out
}

// snapToSpace moves an index to the nearest space so fragments never split a
// word or a multi-byte rune.
func snapToSpace(s string, i int, forward bool) int {
	if forward {
		for i < len(s) && s[i] != ' ' && s[i] != '\n' {
			i++
		}
		return i
	}
	for i > 0 && s[i] != ' ' && s[i] != '\n' {
		i--
	}
	if i > 0 {
		i++
	}
	return i
}
