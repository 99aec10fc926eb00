// Package search composes letter-search queries over the index: free text,
// structured filters, sentiment-scored sorting, highlighting, pagination,
// and the per-month statistics aggregations.
package search

import (
	"strconv"
	"strings"

	"github.com/clairempr/letterpress-sub000/internal/analysis"
	"github.com/clairempr/letterpress-sub000/internal/index"
	"github.com/clairempr/letterpress-sub000/internal/sentiment"
)

// Sort policies. A sentiment sort is the prefix followed by the sentiment id.
const (
	SortByDate          = "DATE"
	SortByRelevance     = "RELEVANCE"
	SentimentSortPrefix = "SENTIMENT"
)

// Open-ended date range defaults: the range clause is always present.
const (
	minDate = "0001-01-01"
	maxDate = "9999-12-31"
)

// Highlight tags for sentiment-sorted result lists.
var (
	sentimentPreTags  = []string{`<span class="hlt1">`, `<span class="hlt2">`}
	sentimentPostTags = []string{"</span>", "</span>"}
)

// Filter is the letter search filter record as submitted by the caller.
type Filter struct {
	SearchText   string   `json:"search_text"`
	SourceIDs    []int64  `json:"source_ids"`
	WriterIDs    []int64  `json:"writer_ids"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Words        []string `json:"words"`
	SentimentIDs []int64  `json:"sentiment_ids"`
	SortBy       string   `json:"sort_by"`
}

// SentimentSort renders the sort-by value selecting a sentiment.
func SentimentSort(sentimentID int64) string {
	return SentimentSortPrefix + strconv.FormatInt(sentimentID, 10)
}

// SelectedSentimentID extracts the sentiment id from a sentiment sort value.
func SelectedSentimentID(sortBy string) (int64, bool) {
	if !strings.HasPrefix(sortBy, SentimentSortPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(sortBy, SentimentSortPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// buildQuery assembles the bool query for a filter: optional free text in
// must, the always-present date range plus source and writer sets in filter.
func buildQuery(f Filter) *index.Query {
	b := &index.BoolQuery{}

	if text := strings.TrimSpace(f.SearchText); text != "" {
		if strings.Contains(text, `"`) {
			phrase := strings.ReplaceAll(text, `"`, "")
			b.Must = append(b.Must, &index.Query{
				MatchPhrase: map[string]index.MatchQuery{
					index.FieldContents: {Query: phrase, Analyzer: analysis.Standard},
				},
			})
		} else {
			b.Must = append(b.Must, &index.Query{
				Match: map[string]index.MatchQuery{
					index.FieldContents: {Query: text, Fuzziness: "AUTO"},
				},
			})
		}
	}

	gte := f.StartDate
	if gte == "" {
		gte = minDate
	}
	lte := f.EndDate
	if lte == "" {
		lte = maxDate
	}
	b.Filter = append(b.Filter, &index.Query{
		Range: map[string]index.RangeQuery{index.FieldDate: {GTE: gte, LTE: lte}},
	})

	if len(f.SourceIDs) > 0 {
		b.Filter = append(b.Filter, &index.Query{
			Terms: map[string][]any{index.FieldSource: toAny(f.SourceIDs)},
		})
	}
	if len(f.WriterIDs) > 0 {
		b.Filter = append(b.Filter, &index.Query{
			Terms: map[string][]any{index.FieldWriter: toAny(f.WriterIDs)},
		})
	}
	return &index.Query{Bool: b}
}

// buildRequest produces the complete search request for a filter and page.
// When sorting by a sentiment, the bool query gains that sentiment's phrase
// clauses and is wrapped in the score-normalizing function score, so ranking
// is the lexicon score.
func buildRequest(f Filter, cs *sentiment.CustomSentiment, terms []sentiment.Term, page, size int) *index.SearchRequest {
	query := buildQuery(f)
	req := &index.SearchRequest{
		StoredFields: []string{index.FieldWordCount},
		Source:       []string{index.FieldDate},
		Size:         size,
	}
	if page > 1 {
		req.From = (page - 1) * size
	}

	if cs != nil {
		query.Bool.Should = append(query.Bool.Should, sentiment.PhraseClauses(cs, terms)...)
		req.Query = &index.Query{
			FunctionScore: &index.FunctionScore{
				Query: query,
				ScriptScore: &index.ScriptScore{Script: index.Script{
					Lang:   "painless",
					Inline: index.SentimentScoreScript,
				}},
			},
		}
		req.Sort = []index.SortClause{index.ByScore}
		req.Highlight = &index.Highlight{
			PreTags:  sentimentPreTags,
			PostTags: sentimentPostTags,
			Fields: map[string]index.HighlightField{
				index.FieldCustomSentiment: {Type: "fvh", NumberOfFragments: 0, PhraseLimit: 100},
			},
		}
		return req
	}

	req.Query = query
	switch f.SortBy {
	case SortByDate, "":
		req.Sort = []index.SortClause{{Field: index.FieldDate, Order: "asc"}}
	default:
		req.Sort = []index.SortClause{index.ByScore}
	}
	req.Highlight = &index.Highlight{
		Fields: map[string]index.HighlightField{
			index.FieldContents: {Type: "postings", NumberOfFragments: 6},
		},
	}
	return req
}

func toAny(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
