package sentiment

import (
	"strings"
	"sync"

	"github.com/clairempr/letterpress-sub000/internal/analysis"
	"github.com/clairempr/letterpress-sub000/internal/index"
)

// TempDocID is the reserved document id used to borrow the index's analyzer
// and scoring pipeline for text that is not a stored letter.
const TempDocID = "temp"

// TermVectors retrieves term vectors in the shingled sentiment shape, either
// for stored letters or for ad-hoc text. It owns the temp-document slot:
// exactly one caller at a time may hold it.
type TermVectors struct {
	engine *index.Engine
	tempMu sync.Mutex
}

func NewTermVectors(engine *index.Engine) *TermVectors {
	return &TermVectors{engine: engine}
}

// ForText analyzes text with the termvector sentiment analyzer, offsets and
// positions included, without indexing anything.
func (s *TermVectors) ForText(text string) (index.TermVector, error) {
	return s.engine.TermVectorsForText(text, analysis.TermVectorSentiment, true, true)
}

// ForLetter returns the shingled term vector of a stored letter's contents.
func (s *TermVectors) ForLetter(letterID string) (index.TermVector, error) {
	return s.engine.TermVectorsForDoc(letterID, index.FieldCustomSentiment, analysis.TermVectorSentiment, true, true)
}

// ForLetters is the batched variant used by word-frequency aggregation, over
// the plain contents field.
func (s *TermVectors) ForLetters(letterIDs []string) (map[string]index.TermVector, error) {
	return s.engine.MTermVectors(letterIDs, index.FieldContents)
}

// WordCountForLetter reads the stored token count of a letter's contents.
func (s *TermVectors) WordCountForLetter(letterID string) (int, error) {
	fields, err := s.engine.StoredFields(letterID, []string{index.FieldWordCount})
	if err != nil {
		return 0, err
	}
	values := fields[index.FieldWordCount]
	if len(values) == 0 {
		return 0, nil
	}
	count, _ := values[0].(int)
	return count, nil
}

// WordCountForText counts whitespace-separated words, not analyzed tokens.
func (s *TermVectors) WordCountForText(text string) int {
	return len(strings.Fields(text))
}

// WithTempDoc indexes text under the reserved temp id, runs fn against it,
// and removes the document again. The slot is single writer: concurrent
// callers serialize here, and the delete runs on every exit path so a failed
// fn never leaks another caller's text into the next score.
func (s *TermVectors) WithTempDoc(text string, fn func(id string) error) error {
	s.tempMu.Lock()
	defer s.tempMu.Unlock()

	if err := s.engine.Put(TempDocID, map[string]any{index.FieldContents: text}); err != nil {
		return err
	}
	defer s.engine.Delete(TempDocID)
	return fn(TempDocID)
}
