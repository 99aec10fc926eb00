package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clairempr/letterpress-sub000/internal/index"
	"github.com/clairempr/letterpress-sub000/internal/letters"
	"github.com/clairempr/letterpress-sub000/internal/search"
	"github.com/clairempr/letterpress-sub000/internal/sentiment"
	"github.com/clairempr/letterpress-sub000/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	engine := index.New("letterpress-test", zerolog.Nop())
	indexer := letters.NewIndexer(engine, zerolog.Nop())
	vectors := sentiment.NewTermVectors(engine)
	scorer := sentiment.NewScorer(st, vectors, zerolog.Nop())
	indexScorer := sentiment.NewIndexScorer(st, engine, vectors, zerolog.Nop())
	highlighter := sentiment.NewHighlighter(st, vectors, zerolog.Nop())
	searchSvc := search.NewService(engine, st, scorer, zerolog.Nop())

	srv := New(engine, st, indexer, searchSvc, scorer, indexScorer, highlighter, zerolog.Nop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	var body map[string]any
	if status := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil, &body); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestMappingEndpoint(t *testing.T) {
	ts := newTestServer(t)
	var body map[string]struct {
		Mappings struct {
			Properties map[string]map[string]any `json:"properties"`
		} `json:"mappings"`
	}
	if status := doJSON(t, http.MethodGet, ts.URL+"/index/_mapping", nil, &body); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	idx, ok := body["letterpress-test"]
	if !ok {
		t.Fatalf("index missing from mapping response: %v", body)
	}
	contents := idx.Mappings.Properties["contents"]
	if contents["term_vector"] != "with_positions_offsets" {
		t.Fatalf("contents mapping = %v", contents)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	ts := newTestServer(t)
	var body struct {
		Tokens []struct {
			Token    string `json:"token"`
			Position int    `json:"position"`
		} `json:"tokens"`
	}
	req := map[string]string{"analyzer": "string_sentiment_analyzer", "text": "Pounce Boxes"}
	if status := doJSON(t, http.MethodPost, ts.URL+"/index/_analyze", req, &body); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(body.Tokens) != 2 || body.Tokens[0].Token != "pounc" || body.Tokens[1].Token != "box" {
		t.Fatalf("tokens = %+v", body.Tokens)
	}
}

func TestLetterLifecycle(t *testing.T) {
	ts := newTestServer(t)

	letter := map[string]any{
		"year": 1862, "month": 5, "day": 1,
		"source_id": 1, "writer_id": 2,
		"greeting": "Dear Mother",
		"body":     "<p>I bought vinyl today.</p>",
	}
	var created map[string]any
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/letters/", letter, &created); status != http.StatusCreated {
		t.Fatalf("create status = %d", status)
	}
	id := int64(created["id"].(float64))
	if id == 0 {
		t.Fatal("no id assigned")
	}

	// The letter is searchable immediately: write-through indexing.
	var page struct {
		Hits  []map[string]any `json:"hits"`
		Total int              `json:"total"`
	}
	searchReq := map[string]any{"search_text": "vinyl"}
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/letters/search", searchReq, &page); status != http.StatusOK {
		t.Fatalf("search status = %d", status)
	}
	if page.Total != 1 {
		t.Fatalf("total = %d, want 1", page.Total)
	}

	url := fmt.Sprintf("%s/api/letters/%d", ts.URL, id)
	if status := doJSON(t, http.MethodDelete, url, nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete status = %d", status)
	}
	if status := doJSON(t, http.MethodGet, url, nil, nil); status != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", status)
	}
}

func TestSentimentScoringEndToEnd(t *testing.T) {
	ts := newTestServer(t)

	var cs map[string]any
	payload := map[string]any{"name": "Hipster", "max_weight": 1}
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/sentiments/", payload, &cs); status != http.StatusCreated {
		t.Fatalf("create sentiment status = %d", status)
	}
	id := int64(cs["id"].(float64))

	termURL := fmt.Sprintf("%s/api/sentiments/%d/terms", ts.URL, id)
	var term map[string]any
	if status := doJSON(t, http.MethodPost, termURL, map[string]any{"text": "vinyl"}, &term); status != http.StatusOK {
		t.Fatalf("save term status = %d", status)
	}
	if term["analyzed_text"] != "vinyl" {
		t.Fatalf("analyzed = %v", term["analyzed_text"])
	}

	scoreURL := fmt.Sprintf("%s/api/sentiments/%d/score", ts.URL, id)
	var score map[string]any
	if status := doJSON(t, http.MethodPost, scoreURL, map[string]any{"text": "I bought vinyl today"}, &score); status != http.StatusOK {
		t.Fatalf("score status = %d", status)
	}
	if score["display"] != "Hipster: 2.101" {
		t.Fatalf("display = %v", score["display"])
	}

	hlURL := fmt.Sprintf("%s/api/sentiments/%d/highlight", ts.URL, id)
	var hl map[string]string
	if status := doJSON(t, http.MethodPost, hlURL, map[string]any{"text": "I bought vinyl today"}, &hl); status != http.StatusOK {
		t.Fatalf("highlight status = %d", status)
	}
	want := `I bought <span class="sentiment-highlight-normal">vinyl</span> today`
	if hl["highlighted"] != want {
		t.Fatalf("highlighted = %q, want %q", hl["highlighted"], want)
	}
}

func TestWireProtocolDocAndTermVectors(t *testing.T) {
	ts := newTestServer(t)

	doc := map[string]any{"contents": "the pounce box", "date": "1862-05-01"}
	if status := doJSON(t, http.MethodPost, ts.URL+"/index/_create/9", doc, nil); status != http.StatusCreated {
		t.Fatalf("create status = %d", status)
	}
	if status := doJSON(t, http.MethodPost, ts.URL+"/index/_create/9", doc, nil); status != http.StatusConflict {
		t.Fatal("duplicate create should conflict")
	}

	tvReq := map[string]any{
		"field":     "contents.custom_sentiment",
		"analyzer":  "termvector_sentiment_analyzer",
		"offsets":   true,
		"positions": true,
	}
	var tvResp struct {
		TermVectors map[string]struct {
			Terms map[string]struct {
				TermFreq int `json:"term_freq"`
			} `json:"terms"`
		} `json:"term_vectors"`
	}
	if status := doJSON(t, http.MethodPost, ts.URL+"/index/_termvectors/9", tvReq, &tvResp); status != http.StatusOK {
		t.Fatalf("termvectors status = %d", status)
	}
	terms := tvResp.TermVectors["contents.custom_sentiment"].Terms
	if terms["pounc box"].TermFreq != 1 {
		t.Fatalf("shingle missing: %v", terms)
	}

	if status := doJSON(t, http.MethodDelete, ts.URL+"/index/_doc/9", nil, nil); status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}
	if status := doJSON(t, http.MethodDelete, ts.URL+"/index/_doc/9", nil, nil); status != http.StatusNotFound {
		t.Fatal("second delete should be 404")
	}
}

func TestReindexEndpoint(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 3; i++ {
		letter := map[string]any{"year": 1862, "body": "a note"}
		if status := doJSON(t, http.MethodPost, ts.URL+"/api/letters/", letter, nil); status != http.StatusCreated {
			t.Fatalf("create status = %d", status)
		}
	}
	var resp map[string]any
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/reindex", nil, &resp); status != http.StatusOK {
		t.Fatalf("reindex status = %d", status)
	}
	if resp["indexed"] != float64(3) {
		t.Fatalf("indexed = %v, want 3", resp["indexed"])
	}
}
