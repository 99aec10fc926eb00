package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clairempr/letterpress-sub000/internal/letters"
	"github.com/clairempr/letterpress-sub000/internal/metrics"
	"github.com/clairempr/letterpress-sub000/internal/search"
	"github.com/clairempr/letterpress-sub000/internal/sentiment"
)

// Application handlers: letters, sentiments, scoring, statistics.

type letterPayload struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Day       int    `json:"day"`
	SourceID  int64  `json:"source_id"`
	WriterID  int64  `json:"writer_id"`
	Heading   string `json:"heading"`
	Greeting  string `json:"greeting"`
	Body      string `json:"body"`
	Closing   string `json:"closing"`
	Signature string `json:"signature"`
	PS        string `json:"ps"`
}

func (p letterPayload) letter(id int64) *letters.Letter {
	return &letters.Letter{
		ID:        id,
		Date:      letters.Date{Year: p.Year, Month: p.Month, Day: p.Day},
		SourceID:  p.SourceID,
		WriterID:  p.WriterID,
		Heading:   p.Heading,
		Greeting:  p.Greeting,
		Body:      p.Body,
		Closing:   p.Closing,
		Signature: p.Signature,
		PS:        p.PS,
	}
}

func letterJSON(l *letters.Letter) map[string]any {
	return map[string]any{
		"id":        l.ID,
		"year":      l.Date.Year,
		"month":     l.Date.Month,
		"day":       l.Date.Day,
		"list_date": l.Date.ListDate(),
		"source_id": l.SourceID,
		"writer_id": l.WriterID,
		"heading":   l.Heading,
		"greeting":  l.Greeting,
		"body":      l.Body,
		"closing":   l.Closing,
		"signature": l.Signature,
		"ps":        l.PS,
		"contents":  l.Contents(),
	}
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (s *Server) handleLetterCreate(w http.ResponseWriter, r *http.Request) {
	var p letterPayload
	if err := decode(r, &p); err != nil {
		s.badRequest(w, err)
		return
	}
	l := p.letter(0)
	if err := s.store.SaveLetter(r.Context(), l); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.indexer.Create(l); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, letterJSON(l))
}

func (s *Server) handleLetterGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	l, err := s.store.Letter(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, letterJSON(l))
}

func (s *Server) handleLetterUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var p letterPayload
	if err := decode(r, &p); err != nil {
		s.badRequest(w, err)
		return
	}
	l := p.letter(id)
	if err := s.store.SaveLetter(r.Context(), l); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.indexer.Update(l); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, letterJSON(l))
}

func (s *Server) handleLetterDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.store.DeleteLetter(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.indexer.Delete(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type searchPayload struct {
	search.Filter
	Page int `json:"page"`
	Size int `json:"size"`
}

func (s *Server) handleLetterSearch(w http.ResponseWriter, r *http.Request) {
	var p searchPayload
	if err := decode(r, &p); err != nil {
		s.badRequest(w, err)
		return
	}
	page, err := s.search.Search(r.Context(), p.Filter, p.Page, p.Size)
	if err != nil {
		s.writeError(w, err)
		return
	}
	hits := make([]map[string]any, 0, len(page.Hits))
	for _, h := range page.Hits {
		sentiments := make([]string, 0, len(h.Sentiments))
		for _, res := range h.Sentiments {
			sentiments = append(sentiments, res.String())
		}
		hits = append(hits, map[string]any{
			"letter_id":  h.LetterID,
			"score":      h.Score,
			"word_count": h.WordCount,
			"date":       h.Date,
			"highlight":  h.Highlight,
			"sentiments": sentiments,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hits":  hits,
		"total": page.Total,
		"pages": page.Pages,
	})
}

type sentimentPayload struct {
	Name      string `json:"name"`
	MaxWeight int    `json:"max_weight"`
}

func sentimentJSON(cs *sentiment.CustomSentiment, terms []sentiment.Term) map[string]any {
	termList := make([]map[string]any, 0, len(terms))
	for _, t := range terms {
		termList = append(termList, map[string]any{
			"id":            t.ID,
			"text":          t.Text,
			"analyzed_text": t.AnalyzedText,
			"weight":        t.Weight,
		})
	}
	return map[string]any{
		"id":         cs.ID,
		"name":       cs.Name,
		"max_weight": cs.MaxWeight,
		"terms":      termList,
	}
}

func (s *Server) handleSentimentCreate(w http.ResponseWriter, r *http.Request) {
	var p sentimentPayload
	if err := decode(r, &p); err != nil {
		s.badRequest(w, err)
		return
	}
	cs, err := s.store.CreateCustomSentiment(r.Context(), p.Name, p.MaxWeight)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sentimentJSON(cs, nil))
}

func (s *Server) handleSentimentList(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.ListCustomSentiments(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sentiments": all})
}

func (s *Server) handleSentimentGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	cs, terms, err := s.store.CustomSentiment(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if cs == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, sentimentJSON(cs, terms))
}

func (s *Server) handleSentimentUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var p sentimentPayload
	if err := decode(r, &p); err != nil {
		s.badRequest(w, err)
		return
	}
	cs := &sentiment.CustomSentiment{ID: id, Name: p.Name, MaxWeight: p.MaxWeight}
	if err := s.store.UpdateCustomSentiment(r.Context(), cs); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sentimentJSON(cs, nil))
}

func (s *Server) handleSentimentDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.store.DeleteCustomSentiment(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTermSave(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var p struct {
		ID     int64  `json:"id"`
		Text   string `json:"text"`
		Weight int    `json:"weight"`
	}
	if err := decode(r, &p); err != nil {
		s.badRequest(w, err)
		return
	}
	term := &sentiment.Term{ID: p.ID, SentimentID: id, Text: p.Text, Weight: p.Weight}
	if err := s.store.SaveTerm(r.Context(), term); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            term.ID,
		"text":          term.Text,
		"analyzed_text": term.AnalyzedText,
		"weight":        term.Weight,
	})
}

func (s *Server) handleTermDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.store.DeleteTerm(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScoreText(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var p struct {
		Text string `json:"text"`
	}
	if err := decode(r, &p); err != nil {
		s.badRequest(w, err)
		return
	}
	res, err := s.scorer.ScoreText(r.Context(), p.Text, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	metrics.SentimentScores.WithLabelValues("lexicon").Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"sentiment": res.Name,
		"score":     res.Score,
		"display":   res.String(),
	})
}

func (s *Server) handleScoreLetter(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	letterID := chi.URLParam(r, "letterID")

	res, err := s.scorer.ScoreLetter(r.Context(), letterID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	metrics.SentimentScores.WithLabelValues("lexicon").Inc()

	indexScore, err := s.indexScorer.ScoreLetter(r.Context(), letterID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	metrics.SentimentScores.WithLabelValues("index").Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"sentiment":   res.Name,
		"score":       res.Score,
		"display":     res.String(),
		"index_score": indexScore,
	})
}

func (s *Server) handleHighlightText(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var p struct {
		Text string `json:"text"`
	}
	if err := decode(r, &p); err != nil {
		s.badRequest(w, err)
		return
	}
	highlighted, err := s.highlighter.HighlightText(r.Context(), p.Text, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"highlighted": highlighted})
}

func (s *Server) handleWordCounts(w http.ResponseWriter, r *http.Request) {
	var f search.Filter
	if err := decode(r, &f); err != nil {
		s.badRequest(w, err)
		return
	}
	stats, err := s.search.WordCountsPerMonth(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": stats})
}

func (s *Server) handleWordFrequencies(w http.ResponseWriter, r *http.Request) {
	var p struct {
		search.Filter
		Words []string `json:"words"`
	}
	if err := decode(r, &p); err != nil {
		s.badRequest(w, err)
		return
	}
	freqs, err := s.search.WordFrequenciesPerMonth(r.Context(), p.Filter, p.Words)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"frequencies": freqs})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	total, err := s.indexer.Rebuild(r.Context(), s.store)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"indexed": total})
}
