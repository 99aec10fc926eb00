package index

import (
	"encoding/json"
	"fmt"
)

// SearchRequest mirrors the search endpoint's JSON body.
type SearchRequest struct {
	Query        *Query                 `json:"query,omitempty"`
	From         int                    `json:"from,omitempty"`
	Size         int                    `json:"size,omitempty"`
	Sort         []SortClause           `json:"sort,omitempty"`
	Highlight    *Highlight             `json:"highlight,omitempty"`
	StoredFields []string               `json:"stored_fields,omitempty"`
	Source       []string               `json:"_source,omitempty"`
	Aggs         map[string]Aggregation `json:"aggs,omitempty"`
}

// Query is a one-of: exactly one member is set.
type Query struct {
	Bool          *BoolQuery            `json:"bool,omitempty"`
	Match         map[string]MatchQuery `json:"match,omitempty"`
	MatchPhrase   map[string]MatchQuery `json:"match_phrase,omitempty"`
	Terms         map[string][]any      `json:"terms,omitempty"`
	Range         map[string]RangeQuery `json:"range,omitempty"`
	FunctionScore *FunctionScore        `json:"function_score,omitempty"`
}

// QueryList accepts either a single query object or an array of them, the way
// the search index treats bool clause values.
type QueryList []*Query

func (l *QueryList) UnmarshalJSON(data []byte) error {
	var list []*Query
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var single Query
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("bool clause is neither query nor list: %w", err)
	}
	*l = QueryList{&single}
	return nil
}

type BoolQuery struct {
	Must   QueryList `json:"must,omitempty"`
	Should QueryList `json:"should,omitempty"`
	Filter QueryList `json:"filter,omitempty"`
}

type MatchQuery struct {
	Query     string  `json:"query"`
	Fuzziness string  `json:"fuzziness,omitempty"`
	Analyzer  string  `json:"analyzer,omitempty"`
	Boost     float64 `json:"boost,omitempty"`
}

type RangeQuery struct {
	GTE string `json:"gte,omitempty"`
	LTE string `json:"lte,omitempty"`
}

type FunctionScore struct {
	Query       *Query       `json:"query"`
	ScriptScore *ScriptScore `json:"script_score,omitempty"`
}

type ScriptScore struct {
	Script Script `json:"script"`
}

type Script struct {
	Lang   string `json:"lang,omitempty"`
	Inline string `json:"inline"`
}

// SortClause is either the literal "_score" or {field: {"order": order}}.
type SortClause struct {
	Field string
	Order string
}

// ByScore sorts descending by relevance.
var ByScore = SortClause{Field: "_score"}

func (s SortClause) MarshalJSON() ([]byte, error) {
	if s.Field == "_score" {
		return json.Marshal("_score")
	}
	return json.Marshal(map[string]map[string]string{
		s.Field: {"order": s.Order},
	})
}

func (s *SortClause) UnmarshalJSON(data []byte) error {
	var field string
	if err := json.Unmarshal(data, &field); err == nil {
		s.Field = field
		return nil
	}
	var m map[string]map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("malformed sort clause: %w", err)
	}
	for field, opts := range m {
		s.Field = field
		s.Order = opts["order"]
	}
	return nil
}

type Highlight struct {
	PreTags  []string                  `json:"pre_tags,omitempty"`
	PostTags []string                  `json:"post_tags,omitempty"`
	Fields   map[string]HighlightField `json:"fields"`
}

type HighlightField struct {
	Type              string `json:"type,omitempty"`
	NumberOfFragments int    `json:"number_of_fragments"`
	PhraseLimit       int    `json:"phrase_limit,omitempty"`
}

type Aggregation struct {
	DateHistogram *DateHistogram         `json:"date_histogram,omitempty"`
	Avg           *FieldAgg              `json:"avg,omitempty"`
	Sum           *FieldAgg              `json:"sum,omitempty"`
	Aggs          map[string]Aggregation `json:"aggs,omitempty"`
}

type DateHistogram struct {
	Field       string `json:"field"`
	Interval    string `json:"interval"`
	MinDocCount int    `json:"min_doc_count"`
}

type FieldAgg struct {
	Field string `json:"field"`
}

// SearchResult mirrors the search endpoint's response body.
type SearchResult struct {
	Hits         HitList              `json:"hits"`
	Aggregations map[string]AggResult `json:"aggregations,omitempty"`
}

type HitList struct {
	Total int   `json:"total"`
	Hits  []Hit `json:"hits"`
}

type Hit struct {
	ID        string              `json:"_id"`
	Score     float64             `json:"_score"`
	Source    map[string]any      `json:"_source,omitempty"`
	Fields    map[string][]any    `json:"fields,omitempty"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

// AggResult is either a bucketed result or a single metric value.
type AggResult struct {
	Buckets []Bucket
	Value   float64
}

func (r AggResult) MarshalJSON() ([]byte, error) {
	if r.Buckets != nil {
		return json.Marshal(map[string]any{"buckets": r.Buckets})
	}
	return json.Marshal(map[string]any{"value": r.Value})
}

// Bucket is one date-histogram bucket; sub-aggregation results appear as
// sibling keys of key_as_string and doc_count, matching the wire shape.
type Bucket struct {
	KeyAsString string
	DocCount    int
	SubAggs     map[string]AggResult
}

func (b Bucket) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(b.SubAggs)+2)
	m["key_as_string"] = b.KeyAsString
	m["doc_count"] = b.DocCount
	for name, sub := range b.SubAggs {
		m[name] = sub
	}
	return json.Marshal(m)
}
