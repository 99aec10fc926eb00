package search

import (
	"context"
	"strings"

	"github.com/clairempr/letterpress-sub000/internal/index"
)

// Stats queries retrieve every matching letter in one pass.
const statsFetchSize = 10000

// defaultStatsWords tracks the ampersand-versus-and usage shift when the
// caller supplies no words of their own.
var defaultStatsWords = []string{"&", "and"}

// MonthStats is one month's letter and word-count figures.
type MonthStats struct {
	Month      string
	Letters    int
	AvgWords   float64
	TotalWords float64
}

// YearMonth truncates an indexed date to its year-month, unknown parts as
// zero-filled defaults.
func YearMonth(date string) string {
	parts := strings.SplitN(date, "-", 3)
	if len(parts) < 2 || parts[0] == "" {
		if len(parts) > 0 && parts[0] != "" {
			return parts[0] + "-01"
		}
		return "0000-01"
	}
	return parts[0] + "-" + parts[1]
}

// WordCountsPerMonth aggregates letter counts and word-count statistics per
// month over the filtered set. Months with no letters are absent; missing
// metrics read as zero.
func (s *Service) WordCountsPerMonth(ctx context.Context, f Filter) ([]MonthStats, error) {
	req := &index.SearchRequest{
		Query: buildQuery(f),
		Size:  1,
		Aggs: map[string]index.Aggregation{
			"words_per_month": {
				DateHistogram: &index.DateHistogram{
					Field:       index.FieldDate,
					Interval:    "month",
					MinDocCount: 1,
				},
				Aggs: map[string]index.Aggregation{
					"avg_words":   {Avg: &index.FieldAgg{Field: index.FieldWordCount}},
					"total_words": {Sum: &index.FieldAgg{Field: index.FieldWordCount}},
				},
			},
		},
	}
	res, err := s.engine.Search(req)
	if err != nil {
		return nil, err
	}

	agg := res.Aggregations["words_per_month"]
	out := make([]MonthStats, 0, len(agg.Buckets))
	for _, bucket := range agg.Buckets {
		out = append(out, MonthStats{
			Month:      YearMonth(bucket.KeyAsString),
			Letters:    bucket.DocCount,
			AvgWords:   bucket.SubAggs["avg_words"].Value,
			TotalWords: bucket.SubAggs["total_words"].Value,
		})
	}
	return out, nil
}

// WordFrequenciesPerMonth counts, for each requested word, its total term
// frequency in each month's letters. Words absent in a month read as zero
// from the returned map.
func (s *Service) WordFrequenciesPerMonth(ctx context.Context, f Filter, words []string) (map[string]map[string]int, error) {
	if len(words) == 0 {
		words = defaultStatsWords
	}
	req := &index.SearchRequest{
		Query:  buildQuery(f),
		Size:   statsFetchSize,
		Source: []string{index.FieldDate},
	}
	res, err := s.engine.Search(req)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(res.Hits.Hits))
	months := make(map[string]string, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		ids = append(ids, hit.ID)
		date, _ := hit.Source[index.FieldDate].(string)
		months[hit.ID] = YearMonth(date)
	}

	vectors, err := s.engine.MTermVectors(ids, index.FieldContents)
	if err != nil {
		return nil, err
	}

	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = strings.ToLower(w)
	}

	freqs := make(map[string]map[string]int)
	for id, tv := range vectors {
		month := months[id]
		bucket := freqs[month]
		if bucket == nil {
			bucket = make(map[string]int, len(lowered))
			freqs[month] = bucket
		}
		for _, word := range lowered {
			bucket[word] += tv[word].TermFreq
		}
	}
	return freqs, nil
}
