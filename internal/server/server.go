// Package server exposes the index wire protocol and the letter application
// API over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/clairempr/letterpress-sub000/internal/index"
	"github.com/clairempr/letterpress-sub000/internal/letters"
	"github.com/clairempr/letterpress-sub000/internal/search"
	"github.com/clairempr/letterpress-sub000/internal/sentiment"
	"github.com/clairempr/letterpress-sub000/internal/store"
)

type Server struct {
	engine      *index.Engine
	store       *store.Store
	indexer     *letters.Indexer
	search      *search.Service
	scorer      *sentiment.Scorer
	indexScorer *sentiment.IndexScorer
	highlighter *sentiment.Highlighter
	log         zerolog.Logger
}

func New(
	engine *index.Engine,
	st *store.Store,
	indexer *letters.Indexer,
	searchSvc *search.Service,
	scorer *sentiment.Scorer,
	indexScorer *sentiment.IndexScorer,
	highlighter *sentiment.Highlighter,
	log zerolog.Logger,
) *Server {
	return &Server{
		engine:      engine,
		store:       st,
		indexer:     indexer,
		search:      searchSvc,
		scorer:      scorer,
		indexScorer: indexScorer,
		highlighter: highlighter,
		log:         log.With().Str("component", "server").Logger(),
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Search index wire protocol.
	r.Route("/index", func(r chi.Router) {
		r.Get("/_mapping", s.handleMapping)
		r.Post("/_analyze", s.handleAnalyze)
		r.Post("/_search", s.handleSearch)
		r.Post("/_termvectors", s.handleTermVectorsText)
		r.Post("/_termvectors/{id}", s.handleTermVectorsDoc)
		r.Post("/_mtermvectors", s.handleMTermVectors)
		r.Post("/_create/{id}", s.handleDocCreate)
		r.Put("/_doc/{id}", s.handleDocPut)
		r.Get("/_doc/{id}", s.handleDocGet)
		r.Post("/_update/{id}", s.handleDocUpdate)
		r.Delete("/_doc/{id}", s.handleDocDelete)
	})

	// Application API.
	r.Route("/api", func(r chi.Router) {
		r.Route("/letters", func(r chi.Router) {
			r.Post("/", s.handleLetterCreate)
			r.Post("/search", s.handleLetterSearch)
			r.Get("/{id}", s.handleLetterGet)
			r.Put("/{id}", s.handleLetterUpdate)
			r.Delete("/{id}", s.handleLetterDelete)
		})
		r.Route("/sentiments", func(r chi.Router) {
			r.Post("/", s.handleSentimentCreate)
			r.Get("/", s.handleSentimentList)
			r.Get("/{id}", s.handleSentimentGet)
			r.Put("/{id}", s.handleSentimentUpdate)
			r.Delete("/{id}", s.handleSentimentDelete)
			r.Post("/{id}/terms", s.handleTermSave)
			r.Post("/{id}/score", s.handleScoreText)
			r.Get("/{id}/score/letters/{letterID}", s.handleScoreLetter)
			r.Post("/{id}/highlight", s.handleHighlightText)
		})
		r.Delete("/terms/{id}", s.handleTermDelete)
		r.Post("/stats/wordcounts", s.handleWordCounts)
		r.Post("/stats/wordfrequencies", s.handleWordFrequencies)
		r.Post("/reindex", s.handleReindex)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"index":     s.engine.Name(),
		"documents": s.engine.Count(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses: index errors carry their
// own code, store lookups map to 404, everything else is a 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ie *index.Error
	switch {
	case errors.As(err, &ie):
		writeJSON(w, ie.StatusCode, map[string]string{"error": ie.Message})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}
