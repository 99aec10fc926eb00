package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clairempr/letterpress-sub000/internal/index"
)

// Wire-protocol handlers: the JSON shapes the scoring and search layers
// depend on, exposed for external clients and diagnostics.

func (s *Server) handleMapping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		s.engine.Name(): map[string]any{"mappings": index.LetterMapping()},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Analyzer string `json:"analyzer"`
		Text     string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	tokens, err := s.engine.Analyze(req.Analyzer, req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req index.SearchRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	res, err := s.engine.Search(&req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type termVectorsRequest struct {
	Text      string `json:"text,omitempty"`
	Field     string `json:"field,omitempty"`
	Analyzer  string `json:"analyzer,omitempty"`
	Offsets   bool   `json:"offsets"`
	Positions bool   `json:"positions"`
}

func termVectorsResponse(field string, tv index.TermVector) map[string]any {
	return map[string]any{
		"term_vectors": map[string]any{
			field: map[string]any{"terms": tv},
		},
	}
}

func (s *Server) handleTermVectorsText(w http.ResponseWriter, r *http.Request) {
	var req termVectorsRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	tv, err := s.engine.TermVectorsForText(req.Text, req.Analyzer, req.Offsets, req.Positions)
	if err != nil {
		s.writeError(w, err)
		return
	}
	field := req.Field
	if field == "" {
		field = index.FieldContents
	}
	writeJSON(w, http.StatusOK, termVectorsResponse(field, tv))
}

func (s *Server) handleTermVectorsDoc(w http.ResponseWriter, r *http.Request) {
	var req termVectorsRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	field := req.Field
	if field == "" {
		field = index.FieldContents
	}
	tv, err := s.engine.TermVectorsForDoc(chi.URLParam(r, "id"), field, req.Analyzer, req.Offsets, req.Positions)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, termVectorsResponse(field, tv))
}

func (s *Server) handleMTermVectors(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs   []string `json:"ids"`
		Field string   `json:"field"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	field := req.Field
	if field == "" {
		field = index.FieldContents
	}
	vectors, err := s.engine.MTermVectors(req.IDs, field)
	if err != nil {
		s.writeError(w, err)
		return
	}
	docs := make([]map[string]any, 0, len(vectors))
	for id, tv := range vectors {
		docs = append(docs, map[string]any{
			"_id":          id,
			"term_vectors": map[string]any{field: map[string]any{"terms": tv}},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"docs": docs})
}

func (s *Server) handleDocCreate(w http.ResponseWriter, r *http.Request) {
	var source map[string]any
	if err := decode(r, &source); err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.engine.Create(chi.URLParam(r, "id"), source); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"result": "created"})
}

func (s *Server) handleDocPut(w http.ResponseWriter, r *http.Request) {
	var source map[string]any
	if err := decode(r, &source); err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.engine.Put(chi.URLParam(r, "id"), source); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "updated"})
}

func (s *Server) handleDocGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	source, ok := s.engine.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"found": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"_id": id, "found": true, "_source": source})
}

func (s *Server) handleDocUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Doc map[string]any `json:"doc"`
	}
	if err := decode(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.engine.Update(chi.URLParam(r, "id"), req.Doc); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "updated"})
}

func (s *Server) handleDocDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "deleted"})
}
