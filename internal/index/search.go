package index

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/clairempr/letterpress-sub000/internal/analysis"
)

// BM25 parameters for free-text relevance, the index's default ranking.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Search executes a composed query and returns scored, sorted, paginated
// hits plus any requested aggregations.
func (e *Engine) Search(req *SearchRequest) (*SearchResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	matches, err := e.execQuery(req.Query)
	if err != nil {
		return nil, err
	}

	ids := make([]uint32, 0, len(matches))
	for id := range matches {
		ids = append(ids, id)
	}
	e.sortMatches(ids, matches, req.Sort)

	result := &SearchResult{}
	result.Hits.Total = len(ids)

	if len(req.Aggs) > 0 {
		result.Aggregations = e.runAggs(req.Aggs, ids)
	}

	size := req.Size
	if size <= 0 {
		size = 10
	}
	from := req.From
	if from < 0 {
		from = 0
	}
	if from > len(ids) {
		from = len(ids)
	}
	end := from + size
	if end > len(ids) {
		end = len(ids)
	}
	page := ids[from:end]

	phrases := collectHighlightPhrases(req.Query)
	result.Hits.Hits = make([]Hit, 0, len(page))
	for _, internal := range page {
		doc := e.byID[internal]
		hit := Hit{ID: doc.id, Score: matches[internal]}
		if len(req.Source) > 0 {
			hit.Source = make(map[string]any, len(req.Source))
			for _, field := range req.Source {
				if v, ok := doc.source[field]; ok {
					hit.Source[field] = v
				}
			}
		}
		if len(req.StoredFields) > 0 {
			hit.Fields = make(map[string][]any)
			for _, field := range req.StoredFields {
				if field == FieldWordCount {
					hit.Fields[field] = []any{doc.wordCount}
				}
			}
		}
		if req.Highlight != nil {
			hit.Highlight = e.highlightHit(doc, req.Highlight, phrases)
		}
		result.Hits.Hits = append(result.Hits.Hits, hit)
	}
	return result, nil
}

// execQuery returns internal doc id -> score for every matching document.
func (e *Engine) execQuery(q *Query) (map[uint32]float64, error) {
	if q == nil {
		all := make(map[uint32]float64, len(e.byID))
		for id := range e.byID {
			all[id] = 1
		}
		return all, nil
	}
	switch {
	case q.Bool != nil:
		return e.execBool(q.Bool)
	case q.Match != nil:
		return e.execMatch(q.Match, false)
	case q.MatchPhrase != nil:
		return e.execMatch(q.MatchPhrase, true)
	case q.Terms != nil:
		return e.execTerms(q.Terms)
	case q.Range != nil:
		return e.execRange(q.Range)
	case q.FunctionScore != nil:
		return e.execFunctionScore(q.FunctionScore)
	}
	return nil, errBadRequest("empty query clause")
}

func (e *Engine) execBool(b *BoolQuery) (map[uint32]float64, error) {
	var base map[uint32]float64
	haveBase := false

	for _, q := range b.Must {
		r, err := e.execQuery(q)
		if err != nil {
			return nil, err
		}
		if !haveBase {
			base = r
			haveBase = true
			continue
		}
		for id, score := range base {
			if add, ok := r[id]; ok {
				base[id] = score + add
			} else {
				delete(base, id)
			}
		}
	}

	for _, q := range b.Filter {
		r, err := e.execQuery(q)
		if err != nil {
			return nil, err
		}
		if !haveBase {
			base = make(map[uint32]float64, len(r))
			for id := range r {
				base[id] = 0
			}
			haveBase = true
			continue
		}
		for id := range base {
			if _, ok := r[id]; !ok {
				delete(base, id)
			}
		}
	}

	if !haveBase {
		// Pure should query: at least one clause must match.
		base = make(map[uint32]float64)
		for _, q := range b.Should {
			r, err := e.execQuery(q)
			if err != nil {
				return nil, err
			}
			for id, score := range r {
				base[id] += score
			}
		}
		return base, nil
	}

	for _, q := range b.Should {
		r, err := e.execQuery(q)
		if err != nil {
			return nil, err
		}
		for id, score := range r {
			if current, ok := base[id]; ok {
				base[id] = current + score
			}
		}
	}
	return base, nil
}

func (e *Engine) execMatch(clauses map[string]MatchQuery, phrase bool) (map[uint32]float64, error) {
	result := make(map[uint32]float64)
	for field, mq := range clauses {
		analyzerName := mq.Analyzer
		if analyzerName == "" {
			analyzerName = analyzedFields[field]
		}
		a, ok := analysis.Get(analyzerName)
		if !ok {
			return nil, errBadRequest("unknown analyzer %q", analyzerName)
		}
		words := tokenTexts(a.Analyze(mq.Query))
		if len(words) == 0 {
			continue
		}
		boost := mq.Boost
		if boost == 0 {
			boost = 1
		}
		if phrase {
			e.scorePhrase(result, field, words, boost)
		} else {
			e.scoreTerms(result, field, words, mq.Fuzziness == "AUTO", boost)
		}
	}
	return result, nil
}

// scorePhrase scores documents by phrase frequency times boost. The boost a
// sentiment clause carries (weight x words / max_weight) makes the summed
// function score proportional to the lexicon numerator.
func (e *Engine) scorePhrase(result map[uint32]float64, field string, words []string, boost float64) {
	terms := e.postings[field]
	if terms == nil {
		return
	}
	candidates := terms[words[0]]
	if candidates == nil {
		return
	}
	candidates = candidates.Clone()
	for _, w := range words[1:] {
		bm := terms[w]
		if bm == nil {
			return
		}
		candidates.And(bm)
	}
	it := candidates.Iterator()
	for it.HasNext() {
		internal := it.Next()
		doc := e.byID[internal]
		if freq := phraseFreq(doc.fields[field], words); freq > 0 {
			result[internal] += float64(freq) * boost
		}
	}
}

// scoreTerms scores documents with BM25 over the query terms, expanding each
// term to near matches when fuzzy is requested.
func (e *Engine) scoreTerms(result map[uint32]float64, field string, words []string, fuzzy bool, boost float64) {
	terms := e.postings[field]
	if terms == nil {
		return
	}
	totalDocs := len(e.docs)
	if totalDocs == 0 {
		return
	}
	var totalLen int
	for _, doc := range e.docs {
		totalLen += len(doc.fields[field])
	}
	avgLen := float64(totalLen) / float64(totalDocs)

	for _, word := range words {
		for _, candidate := range e.expandTerm(field, word, fuzzy) {
			bm := terms[candidate]
			if bm == nil {
				continue
			}
			df := float64(bm.GetCardinality())
			idf := math.Log(1 + (float64(totalDocs)-df+0.5)/(df+0.5))
			it := bm.Iterator()
			for it.HasNext() {
				internal := it.Next()
				doc := e.byID[internal]
				tf := float64(termFreq(doc.fields[field], candidate))
				docLen := float64(len(doc.fields[field]))
				norm := tf + bm25K1*(1-bm25B+bm25B*docLen/avgLen)
				result[internal] += boost * idf * tf * (bm25K1 + 1) / norm
			}
		}
	}
}

// expandTerm returns the term itself plus, for fuzzy matches, every indexed
// term within the AUTO edit distance for the term's length.
func (e *Engine) expandTerm(field, word string, fuzzy bool) []string {
	if !fuzzy {
		return []string{word}
	}
	limit := autoFuzzyDistance(word)
	if limit == 0 {
		return []string{word}
	}
	candidates := []string{}
	seen := map[string]bool{}
	for term := range e.postings[field] {
		if seen[term] {
			continue
		}
		if term == word || editDistanceWithin(term, word, limit) {
			candidates = append(candidates, term)
			seen[term] = true
		}
	}
	if !seen[word] {
		candidates = append(candidates, word)
	}
	sort.Strings(candidates)
	return candidates
}

func autoFuzzyDistance(term string) int {
	switch {
	case len(term) < 3:
		return 0
	case len(term) <= 5:
		return 1
	default:
		return 2
	}
}

func editDistanceWithin(a, b string, limit int) bool {
	if abs(len(a)-len(b)) > limit {
		return false
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(min(cur[j-1]+1, prev[j]+1), prev[j-1]+cost)
			if cur[j] < rowMin {
				rowMin = cur[j]
			}
		}
		if rowMin > limit {
			return false
		}
		prev, cur = cur, prev
	}
	return prev[len(b)] <= limit
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (e *Engine) execTerms(clauses map[string][]any) (map[uint32]float64, error) {
	result := make(map[uint32]float64)
	for field, values := range clauses {
		if field == "_id" {
			for _, v := range values {
				if doc, ok := e.docs[fmt.Sprint(v)]; ok {
					result[doc.internal] = 1
				}
			}
			continue
		}
		wanted := make(map[int64]bool, len(values))
		for _, v := range values {
			if n, ok := intValue(v); ok {
				wanted[n] = true
			}
		}
		for _, doc := range e.docs {
			if n, ok := intValue(doc.source[field]); ok && wanted[n] {
				result[doc.internal] = 1
			}
		}
	}
	return result, nil
}

func (e *Engine) execRange(clauses map[string]RangeQuery) (map[uint32]float64, error) {
	result := make(map[uint32]float64)
	for field, rq := range clauses {
		if field != FieldDate {
			return nil, errBadRequest("range query on unsupported field %q", field)
		}
		for _, doc := range e.docs {
			dateStr, _ := doc.source[FieldDate].(string)
			lo, hi := dateBounds(dateStr)
			gte := rq.GTE
			if gte == "" {
				gte = "0001-01-01"
			}
			lte := rq.LTE
			if lte == "" {
				lte = "9999-12-31"
			}
			if hi >= gte && lo <= lte {
				result[doc.internal] = 1
			}
		}
	}
	return result, nil
}

func (e *Engine) execFunctionScore(fs *FunctionScore) (map[uint32]float64, error) {
	matches, err := e.execQuery(fs.Query)
	if err != nil {
		return nil, err
	}
	if fs.ScriptScore == nil {
		return matches, nil
	}
	script, ok := e.scripts[normalizeScript(fs.ScriptScore.Script.Inline)]
	if !ok {
		return nil, errBadRequest("unknown script")
	}
	for internal, score := range matches {
		matches[internal] = script(score, e.byID[internal])
	}
	return matches, nil
}

// dateBounds expands an indexed date of precision year, month or day into an
// inclusive yyyy-MM-dd range for comparisons.
func dateBounds(date string) (string, string) {
	parts := strings.SplitN(date, "-", 3)
	switch {
	case date == "":
		return "0000-00-00", "0000-00-00"
	case len(parts) == 1:
		return parts[0] + "-01-01", parts[0] + "-12-31"
	case len(parts) == 2:
		return parts[0] + "-" + parts[1] + "-01", parts[0] + "-" + parts[1] + "-31"
	default:
		return date, date
	}
}

// sortDateKey renders a date for ordering, unknown components as zeroes.
func sortDateKey(date string) string {
	key := strings.ReplaceAll(date, "-", "")
	for len(key) < 8 {
		key += "0"
	}
	return key
}

func (e *Engine) sortMatches(ids []uint32, scores map[uint32]float64, clauses []SortClause) {
	if len(clauses) == 0 {
		clauses = []SortClause{ByScore}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		for _, clause := range clauses {
			switch clause.Field {
			case "_score":
				if scores[a] != scores[b] {
					return scores[a] > scores[b]
				}
			case FieldDate:
				da, _ := e.byID[a].source[FieldDate].(string)
				db, _ := e.byID[b].source[FieldDate].(string)
				ka, kb := sortDateKey(da), sortDateKey(db)
				if ka != kb {
					if clause.Order == "desc" {
						return ka > kb
					}
					return ka < kb
				}
			}
		}
		return a < b
	})
}

func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func tokenTexts(tokens []analysis.Token) []string {
	texts := make([]string, len(tokens))
	for i, tok := range tokens {
		texts[i] = tok.Text
	}
	return texts
}

func termFreq(tokens []analysis.Token, term string) int {
	count := 0
	for _, tok := range tokens {
		if tok.Text == term {
			count++
		}
	}
	return count
}

// phraseFreq counts occurrences of words at consecutive positions.
func phraseFreq(tokens []analysis.Token, words []string) int {
	if len(words) == 0 {
		return 0
	}
	byPos := make(map[int]string, len(tokens))
	for _, tok := range tokens {
		byPos[tok.Position] = tok.Text
	}
	count := 0
	for _, tok := range tokens {
		if tok.Text != words[0] {
			continue
		}
		matched := true
		for k := 1; k < len(words); k++ {
			if byPos[tok.Position+k] != words[k] {
				matched = false
				break
			}
		}
		if matched {
			count++
		}
	}
	return count
}
