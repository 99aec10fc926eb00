package search

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clairempr/letterpress-sub000/internal/analysis"
	"github.com/clairempr/letterpress-sub000/internal/index"
	"github.com/clairempr/letterpress-sub000/internal/sentiment"
)

type stubCatalog struct {
	sentiments map[int64]*sentiment.CustomSentiment
	terms      map[int64][]sentiment.Term
}

func (c *stubCatalog) CustomSentiment(_ context.Context, id int64) (*sentiment.CustomSentiment, []sentiment.Term, error) {
	cs, ok := c.sentiments[id]
	if !ok {
		return nil, nil, nil
	}
	return cs, c.terms[id], nil
}

func sentimentTerm(t *testing.T, text string, weight int) sentiment.Term {
	t.Helper()
	a, ok := analysis.Get(analysis.SentimentTerm)
	if !ok {
		t.Fatal("analyzer missing")
	}
	return sentiment.Term{Text: text, AnalyzedText: a.AnalyzeString(text), Weight: weight}
}

func newTestService(t *testing.T) (*Service, *index.Engine, *stubCatalog) {
	t.Helper()
	engine := index.New("letterpress-test", zerolog.Nop())
	catalog := &stubCatalog{
		sentiments: make(map[int64]*sentiment.CustomSentiment),
		terms:      make(map[int64][]sentiment.Term),
	}
	vectors := sentiment.NewTermVectors(engine)
	scorer := sentiment.NewScorer(catalog, vectors, zerolog.Nop())
	return NewService(engine, catalog, scorer, zerolog.Nop()), engine, catalog
}

func seed(t *testing.T, engine *index.Engine) {
	t.Helper()
	docs := []struct {
		id       string
		contents string
		date     string
		source   int64
		writer   int64
	}{
		{"1", "We marched through the rain all day", "1862-05-01", 1, 1},
		{"2", "The rain has stopped and the sun is out", "1862-06-15", 1, 2},
		{"3", "I bought vinyl today at the sutler's tent", "1863-02-10", 2, 1},
	}
	for _, d := range docs {
		doc := map[string]any{
			index.FieldContents: d.contents,
			index.FieldDate:     d.date,
			index.FieldSource:   d.source,
			index.FieldWriter:   d.writer,
		}
		if err := engine.Put(d.id, doc); err != nil {
			t.Fatalf("put %s: %v", d.id, err)
		}
	}
}

func TestBuildRequestFreeTextShapes(t *testing.T) {
	t.Run("fuzzy match", func(t *testing.T) {
		req := buildRequest(Filter{SearchText: "rain"}, nil, nil, 1, 10)
		data, err := json.Marshal(req)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body := string(data)
		if !strings.Contains(body, `"fuzziness":"AUTO"`) {
			t.Errorf("missing fuzziness: %s", body)
		}
		if strings.Contains(body, "match_phrase") {
			t.Errorf("unquoted text produced a phrase query: %s", body)
		}
	})

	t.Run("quoted phrase", func(t *testing.T) {
		req := buildRequest(Filter{SearchText: `"the rain"`}, nil, nil, 1, 10)
		data, err := json.Marshal(req)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body := string(data)
		if !strings.Contains(body, "match_phrase") {
			t.Errorf("quoted text did not produce a phrase query: %s", body)
		}
		if !strings.Contains(body, `"analyzer":"standard"`) {
			t.Errorf("phrase query missing standard analyzer: %s", body)
		}
		if strings.Contains(body, `\"the rain\"`) {
			t.Errorf("quotes not stripped from phrase: %s", body)
		}
	})
}

func TestBuildRequestDateRangeDefaults(t *testing.T) {
	req := buildRequest(Filter{}, nil, nil, 1, 10)
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, `"gte":"0001-01-01"`) || !strings.Contains(body, `"lte":"9999-12-31"`) {
		t.Errorf("open-ended range defaults missing: %s", body)
	}
}

func TestBuildRequestSentimentSort(t *testing.T) {
	cs := &sentiment.CustomSentiment{ID: 1, Name: "Hipster", MaxWeight: 2}
	terms := []sentiment.Term{sentimentTerm(t, "vinyl", 2)}
	req := buildRequest(Filter{SortBy: SentimentSort(1)}, cs, terms, 1, 10)

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, "function_score") {
		t.Errorf("sentiment sort not wrapped in function_score: %s", body)
	}
	if !strings.Contains(body, `"boost":1`) {
		// weight 2 x 1 word / max_weight 2
		t.Errorf("phrase boost missing: %s", body)
	}
	if !strings.Contains(body, "contents.custom_sentiment") {
		t.Errorf("sentiment highlight field missing: %s", body)
	}
	if !strings.Contains(body, `"sort":["_score"]`) {
		t.Errorf("sentiment sort should rank by score: %s", body)
	}
}

func TestBuildRequestDefaultSort(t *testing.T) {
	req := buildRequest(Filter{}, nil, nil, 1, 10)
	data, _ := json.Marshal(req)
	if !strings.Contains(string(data), `"sort":[{"date":{"order":"asc"}}]`) {
		t.Errorf("default sort should be date asc: %s", data)
	}
}

func TestSelectedSentimentID(t *testing.T) {
	tests := []struct {
		sortBy string
		id     int64
		ok     bool
	}{
		{"SENTIMENT7", 7, true},
		{SentimentSort(42), 42, true},
		{"DATE", 0, false},
		{"SENTIMENTx", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		id, ok := SelectedSentimentID(tc.sortBy)
		if id != tc.id || ok != tc.ok {
			t.Errorf("SelectedSentimentID(%q) = %d,%v want %d,%v", tc.sortBy, id, ok, tc.id, tc.ok)
		}
	}
}

func TestSearchFiltersAndPagination(t *testing.T) {
	svc, engine, _ := newTestService(t)
	seed(t, engine)

	page, err := svc.Search(context.Background(), Filter{SourceIDs: []int64{1}}, 1, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("total = %d, want 2", page.Total)
	}
	if page.Pages != 2 {
		t.Fatalf("pages = %d, want 2", page.Pages)
	}
	if len(page.Hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(page.Hits))
	}
	if page.Hits[0].LetterID != "1" {
		t.Fatalf("first hit = %s, want letter 1 (date asc)", page.Hits[0].LetterID)
	}
	if page.Hits[0].WordCount == 0 {
		t.Fatal("word count not populated from stored fields")
	}

	second, err := svc.Search(context.Background(), Filter{SourceIDs: []int64{1}}, 2, 1)
	if err != nil {
		t.Fatalf("search page 2: %v", err)
	}
	if len(second.Hits) != 1 || second.Hits[0].LetterID != "2" {
		t.Fatalf("second page = %+v", second.Hits)
	}
}

func TestSearchSentimentSortRanksAndHighlights(t *testing.T) {
	svc, engine, catalog := newTestService(t)
	seed(t, engine)
	catalog.sentiments[1] = &sentiment.CustomSentiment{ID: 1, Name: "Hipster", MaxWeight: 2}
	catalog.terms[1] = []sentiment.Term{sentimentTerm(t, "vinyl", 1)}

	page, err := svc.Search(context.Background(), Filter{SortBy: SentimentSort(1)}, 1, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("total = %d, want 3", page.Total)
	}
	top := page.Hits[0]
	if top.LetterID != "3" {
		t.Fatalf("top hit = %s, want the vinyl letter", top.LetterID)
	}
	if top.Score <= 0 {
		t.Fatalf("top score = %v, want positive", top.Score)
	}
	if !strings.Contains(top.Highlight, `<span class="hlt1">vinyl</span>`) {
		t.Fatalf("highlight = %q", top.Highlight)
	}
	// Letters without any matching phrase score exactly zero.
	for _, h := range page.Hits[1:] {
		if h.Score != 0 {
			t.Fatalf("non-matching letter %s scored %v", h.LetterID, h.Score)
		}
	}
}

func TestSearchAttachesSentimentResults(t *testing.T) {
	svc, engine, catalog := newTestService(t)
	seed(t, engine)
	catalog.sentiments[1] = &sentiment.CustomSentiment{ID: 1, Name: "Hipster", MaxWeight: 1}
	catalog.terms[1] = []sentiment.Term{sentimentTerm(t, "vinyl", 1)}

	page, err := svc.Search(context.Background(), Filter{SentimentIDs: []int64{1}}, 1, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, h := range page.Hits {
		if len(h.Sentiments) != 1 {
			t.Fatalf("hit %s sentiments = %v", h.LetterID, h.Sentiments)
		}
		if h.LetterID == "3" && h.Sentiments[0].Score <= 0 {
			t.Fatalf("vinyl letter score = %v", h.Sentiments[0].Score)
		}
	}
}

func TestWordCountsPerMonth(t *testing.T) {
	svc, engine, _ := newTestService(t)
	seed(t, engine)

	stats, err := svc.WordCountsPerMonth(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("months = %d, want 3", len(stats))
	}
	first := stats[0]
	if first.Month != "1862-05" {
		t.Fatalf("first month = %s", first.Month)
	}
	if first.Letters != 1 {
		t.Fatalf("letters = %d", first.Letters)
	}
	if first.TotalWords != 7 || first.AvgWords != 7 {
		t.Fatalf("word stats = %v/%v, want 7/7", first.AvgWords, first.TotalWords)
	}
}

func TestWordFrequenciesPerMonth(t *testing.T) {
	svc, engine, _ := newTestService(t)
	seed(t, engine)

	freqs, err := svc.WordFrequenciesPerMonth(context.Background(), Filter{}, []string{"Rain", "vinyl"})
	if err != nil {
		t.Fatalf("frequencies: %v", err)
	}
	if freqs["1862-05"]["rain"] != 1 {
		t.Fatalf("1862-05 rain = %d, want 1", freqs["1862-05"]["rain"])
	}
	if freqs["1862-06"]["rain"] != 1 {
		t.Fatalf("1862-06 rain = %d, want 1", freqs["1862-06"]["rain"])
	}
	// Absent words read as zero.
	if freqs["1862-05"]["vinyl"] != 0 {
		t.Fatalf("1862-05 vinyl = %d, want 0", freqs["1862-05"]["vinyl"])
	}
	if freqs["1863-02"]["vinyl"] != 1 {
		t.Fatalf("1863-02 vinyl = %d, want 1", freqs["1863-02"]["vinyl"])
	}
}
