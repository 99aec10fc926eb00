package index

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/rs/zerolog"

	"github.com/clairempr/letterpress-sub000/internal/analysis"
)

// Field names of the letter document projection.
const (
	FieldContents        = "contents"
	FieldCustomSentiment = "contents.custom_sentiment"
	FieldWordCount       = "contents.word_count"
	FieldDate            = "date"
	FieldSource          = "source"
	FieldWriter          = "writer"
)

// analyzedFields binds each indexed token-stream field to its analyzer. This
// is the mapping-time contract: the contents field is analyzed once at ingest
// with the same chain the query side assumes.
var analyzedFields = map[string]string{
	FieldContents:        analysis.LetterContents,
	FieldCustomSentiment: analysis.SentimentTerm,
}

// LetterMapping is the index mapping emitted on rebuild. It is externalized
// because documents indexed under one definition cannot be queried with
// another.
func LetterMapping() map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"contents": map[string]any{
				"type":          "text",
				"analyzer":      analysis.LetterContents,
				"index_options": "offsets",
				"term_vector":   "with_positions_offsets",
				"fields": map[string]any{
					"word_count": map[string]any{
						"type":     "token_count",
						"analyzer": analysis.SentimentTerm,
						"store":    "yes",
					},
					"custom_sentiment": map[string]any{
						"type":        "text",
						"analyzer":    analysis.SentimentTerm,
						"term_vector": "with_positions_offsets",
					},
				},
			},
			"date": map[string]any{
				"type":             "date",
				"format":           "year_month_day||year_month||year",
				"ignore_malformed": "false",
			},
			"source": map[string]any{"type": "integer"},
			"writer": map[string]any{"type": "integer"},
		},
	}
}

type document struct {
	id        string
	internal  uint32
	source    map[string]any
	fields    map[string][]analysis.Token
	wordCount int
}

// Engine is the embedded search index holding the letter projection: analyzed
// token streams per field, roaring bitmaps of document ids per term, and the
// stored word-count subfield.
type Engine struct {
	mu       sync.RWMutex
	name     string
	log      zerolog.Logger
	docs     map[string]*document
	byID     map[uint32]*document
	nextID   uint32
	postings map[string]map[string]*roaring.Bitmap
	scripts  map[string]scriptFunc
}

// New creates an empty index with the given logical name.
func New(name string, log zerolog.Logger) *Engine {
	e := &Engine{
		name:     name,
		log:      log.With().Str("component", "index").Str("index", name).Logger(),
		docs:     make(map[string]*document),
		byID:     make(map[uint32]*document),
		postings: make(map[string]map[string]*roaring.Bitmap),
		scripts:  make(map[string]scriptFunc),
	}
	e.registerScripts()
	return e
}

func (e *Engine) Name() string { return e.name }

// Count returns the number of stored documents.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// Create indexes a new document under id and fails with a conflict if the id
// is already taken.
func (e *Engine) Create(id string, source map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.docs[id]; exists {
		return errConflict("document %q already exists in index %q", id, e.name)
	}
	e.store(id, source)
	return nil
}

// Put indexes a document under id, replacing any existing one.
func (e *Engine) Put(id string, source map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if doc, exists := e.docs[id]; exists {
		e.removePostings(doc)
	}
	e.store(id, source)
	return nil
}

// Update merges a partial document into an existing one and re-analyzes it.
func (e *Engine) Update(id string, partial map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, exists := e.docs[id]
	if !exists {
		return errNotFound("document %q not found in index %q", id, e.name)
	}
	merged := make(map[string]any, len(doc.source))
	for k, v := range doc.source {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}
	e.removePostings(doc)
	e.store(id, merged)
	return nil
}

// Delete removes a document by id.
func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, exists := e.docs[id]
	if !exists {
		return errNotFound("document %q not found in index %q", id, e.name)
	}
	e.removePostings(doc)
	delete(e.docs, id)
	delete(e.byID, doc.internal)
	e.log.Debug().Str("id", id).Msg("document deleted")
	return nil
}

// Get returns a copy of the stored source for id.
func (e *Engine) Get(id string) (map[string]any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, ok := e.docs[id]
	if !ok {
		return nil, false
	}
	source := make(map[string]any, len(doc.source))
	for k, v := range doc.source {
		source[k] = v
	}
	return source, true
}

// StoredFields returns the stored fields of a document; contents.word_count
// is the only stored subfield in the letter mapping.
func (e *Engine) StoredFields(id string, fields []string) (map[string][]any, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, ok := e.docs[id]
	if !ok {
		return nil, errNotFound("document %q not found in index %q", id, e.name)
	}
	result := make(map[string][]any)
	for _, field := range fields {
		if field == FieldWordCount {
			result[field] = []any{doc.wordCount}
		}
	}
	return result, nil
}

// Analyze runs the named analyzer over text, the _analyze endpoint contract.
func (e *Engine) Analyze(analyzer, text string) ([]analysis.Token, error) {
	a, ok := analysis.Get(analyzer)
	if !ok {
		return nil, errBadRequest("unknown analyzer %q", analyzer)
	}
	return a.Analyze(text), nil
}

// store analyzes and records a document. Caller holds the write lock.
func (e *Engine) store(id string, source map[string]any) {
	internal := e.nextID
	if old, exists := e.docs[id]; exists {
		internal = old.internal
	} else {
		e.nextID++
	}

	doc := &document{
		id:       id,
		internal: internal,
		source:   source,
		fields:   make(map[string][]analysis.Token, len(analyzedFields)),
	}

	contents, _ := source[FieldContents].(string)
	for field, analyzerName := range analyzedFields {
		a, ok := analysis.Get(analyzerName)
		if !ok {
			continue
		}
		doc.fields[field] = a.Analyze(contents)
	}
	if a, ok := analysis.Get(analysis.SentimentTerm); ok {
		doc.wordCount = a.TokenCount(contents)
	}

	e.docs[id] = doc
	e.byID[internal] = doc
	e.addPostings(doc)
	e.log.Debug().Str("id", id).Int("word_count", doc.wordCount).Msg("document indexed")
}

func (e *Engine) addPostings(doc *document) {
	for field, tokens := range doc.fields {
		terms := e.postings[field]
		if terms == nil {
			terms = make(map[string]*roaring.Bitmap)
			e.postings[field] = terms
		}
		for _, tok := range tokens {
			bm := terms[tok.Text]
			if bm == nil {
				bm = roaring.NewBitmap()
				terms[tok.Text] = bm
			}
			bm.Add(doc.internal)
		}
	}
}

func (e *Engine) removePostings(doc *document) {
	for field, tokens := range doc.fields {
		terms := e.postings[field]
		if terms == nil {
			continue
		}
		for _, tok := range tokens {
			if bm := terms[tok.Text]; bm != nil {
				bm.Remove(doc.internal)
				if bm.IsEmpty() {
					delete(terms, tok.Text)
				}
			}
		}
	}
}
