package index

import (
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clairempr/letterpress-sub000/internal/analysis"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New("letterpress-test", zerolog.Nop())
}

func letterDoc(contents, date string, source, writer int) map[string]any {
	return map[string]any{
		FieldContents: contents,
		FieldDate:     date,
		FieldSource:   source,
		FieldWriter:   writer,
	}
}

func TestCreateConflict(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Create("1", letterDoc("a letter", "1862-05-01", 1, 1)); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := e.Create("1", letterDoc("another letter", "1862-05-02", 1, 1))
	if err == nil {
		t.Fatal("expected conflict on duplicate create")
	}
	var ie *Error
	if !errors.As(err, &ie) || ie.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestPutReplacesAndGet(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Put("1", letterDoc("first text", "1862", 1, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := e.Put("1", letterDoc("second text entirely", "1863", 2, 2)); err != nil {
		t.Fatalf("put replace: %v", err)
	}
	source, ok := e.Get("1")
	if !ok {
		t.Fatal("get after put")
	}
	if source[FieldContents] != "second text entirely" {
		t.Fatalf("contents = %v", source[FieldContents])
	}
	if e.Count() != 1 {
		t.Fatalf("count = %d, want 1", e.Count())
	}

	// Postings for the replaced text must be gone.
	res, err := e.Search(&SearchRequest{Query: &Query{
		Match: map[string]MatchQuery{FieldContents: {Query: "first"}},
	}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Hits.Total != 0 {
		t.Fatalf("stale postings: total = %d", res.Hits.Total)
	}
}

func TestUpdateMergesPartial(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Put("1", letterDoc("dear brother", "1862-05-01", 1, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := e.Update("1", map[string]any{FieldWriter: 9}); err != nil {
		t.Fatalf("update: %v", err)
	}
	source, _ := e.Get("1")
	if source[FieldWriter] != 9 {
		t.Fatalf("writer = %v", source[FieldWriter])
	}
	if source[FieldContents] != "dear brother" {
		t.Fatalf("contents lost on partial update: %v", source[FieldContents])
	}
	if err := e.Update("2", map[string]any{FieldWriter: 1}); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Put("1", letterDoc("gone soon", "1862", 1, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := e.Delete("1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := e.Get("1"); ok {
		t.Fatal("document still present after delete")
	}
	if err := e.Delete("1"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoredWordCount(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Put("1", letterDoc("three short words", "1862", 1, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	fields, err := e.StoredFields("1", []string{FieldWordCount})
	if err != nil {
		t.Fatalf("stored fields: %v", err)
	}
	got := fields[FieldWordCount]
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("word count = %v, want [3]", got)
	}
}

func TestTermVectorsForDoc(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Put("1", letterDoc("the pounce box sat by the pounce box", "1862", 1, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	tv, err := e.TermVectorsForDoc("1", FieldCustomSentiment, analysis.TermVectorSentiment, true, true)
	if err != nil {
		t.Fatalf("term vectors: %v", err)
	}
	info, ok := tv["pounc box"]
	if !ok {
		t.Fatalf("missing shingle, terms: %v", termsOf(tv))
	}
	if info.TermFreq != 2 {
		t.Fatalf("term_freq = %d, want 2", info.TermFreq)
	}
	if len(info.Tokens) != 2 {
		t.Fatalf("tokens = %d, want 2", len(info.Tokens))
	}
	if info.Tokens[0].StartOffset == 0 && info.Tokens[0].EndOffset == 0 {
		t.Fatal("offsets not recorded")
	}

	if _, err := e.TermVectorsForDoc("99", FieldCustomSentiment, "", true, true); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMTermVectors(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Put("1", letterDoc("rain and mud", "1862", 1, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := e.Put("2", letterDoc("mud again", "1862", 1, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := e.MTermVectors([]string{"1", "2", "missing"}, FieldCustomSentiment)
	if err != nil {
		t.Fatalf("mtermvectors: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d vectors, want 2", len(got))
	}
	if got["1"]["mud"].TermFreq != 1 || got["2"]["mud"].TermFreq != 1 {
		t.Fatalf("mud frequencies wrong: %v %v", got["1"]["mud"], got["2"]["mud"])
	}
}

func termsOf(tv TermVector) []string {
	terms := make([]string, 0, len(tv))
	for term := range tv {
		terms = append(terms, term)
	}
	return terms
}
