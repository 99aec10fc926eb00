package search

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clairempr/letterpress-sub000/internal/index"
	"github.com/clairempr/letterpress-sub000/internal/metrics"
	"github.com/clairempr/letterpress-sub000/internal/sentiment"
)

// Hit is one letter in a result page.
type Hit struct {
	LetterID   string
	Score      float64
	WordCount  int
	Date       string
	Highlight  string
	Sentiments []sentiment.Result
}

// Page is a page of search results.
type Page struct {
	Hits  []Hit
	Total int
	Pages int
}

// Service runs letter searches and per-month statistics.
type Service struct {
	engine  *index.Engine
	catalog sentiment.Catalog
	scorer  *sentiment.Scorer
	log     zerolog.Logger
}

func NewService(engine *index.Engine, catalog sentiment.Catalog, scorer *sentiment.Scorer, log zerolog.Logger) *Service {
	return &Service{
		engine:  engine,
		catalog: catalog,
		scorer:  scorer,
		log:     log.With().Str("component", "search").Logger(),
	}
}

// Search runs a filtered letter search and returns one result page. Each hit
// carries its highlight and, for every requested sentiment id, a lexicon
// score.
func (s *Service) Search(ctx context.Context, f Filter, page, size int) (*Page, error) {
	started := time.Now()
	if size < 1 {
		size = 10
	}
	if page < 1 {
		page = 1
	}

	var cs *sentiment.CustomSentiment
	var terms []sentiment.Term
	if id, ok := SelectedSentimentID(f.SortBy); ok {
		var err error
		cs, terms, err = s.catalog.CustomSentiment(ctx, id)
		if err != nil {
			metrics.SearchRequests.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	req := buildRequest(f, cs, terms, page, size)
	res, err := s.engine.Search(req)
	if err != nil {
		metrics.SearchRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	highlightField := index.FieldContents
	if cs != nil {
		highlightField = index.FieldCustomSentiment
	}

	result := &Page{Total: res.Hits.Total, Pages: pageCount(res.Hits.Total, size)}
	for _, hit := range res.Hits.Hits {
		h := Hit{LetterID: hit.ID, Score: hit.Score}
		if values := hit.Fields[index.FieldWordCount]; len(values) > 0 {
			if wc, ok := values[0].(int); ok {
				h.WordCount = wc
			}
		}
		if date, ok := hit.Source[index.FieldDate].(string); ok {
			h.Date = date
		}
		h.Highlight = strings.Join(hit.Highlight[highlightField], "<br>")
		for _, sentimentID := range f.SentimentIDs {
			score, err := s.scorer.ScoreLetter(ctx, hit.ID, sentimentID)
			if err != nil {
				metrics.SearchRequests.WithLabelValues("error").Inc()
				return nil, err
			}
			h.Sentiments = append(h.Sentiments, score)
		}
		result.Hits = append(result.Hits, h)
	}

	metrics.SearchRequests.WithLabelValues("ok").Inc()
	metrics.SearchDuration.Observe(time.Since(started).Seconds())
	return result, nil
}

func pageCount(total, size int) int {
	if total == 0 {
		return 0
	}
	return (total + size - 1) / size
}
