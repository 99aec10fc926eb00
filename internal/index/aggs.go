package index

import (
	"sort"
	"strings"
)

// runAggs evaluates aggregations over the full match set. Only the shapes the
// application composes are supported: a month date_histogram with avg and sum
// metrics over the stored word count. Caller holds the read lock.
func (e *Engine) runAggs(aggs map[string]Aggregation, ids []uint32) map[string]AggResult {
	result := make(map[string]AggResult, len(aggs))
	for name, agg := range aggs {
		switch {
		case agg.DateHistogram != nil:
			result[name] = e.dateHistogram(agg, ids)
		case agg.Avg != nil:
			result[name] = AggResult{Value: e.metric(agg.Avg.Field, ids, true)}
		case agg.Sum != nil:
			result[name] = AggResult{Value: e.metric(agg.Sum.Field, ids, false)}
		}
	}
	return result
}

func (e *Engine) dateHistogram(agg Aggregation, ids []uint32) AggResult {
	groups := make(map[string][]uint32)
	for _, id := range ids {
		date, _ := e.byID[id].source[FieldDate].(string)
		key := monthKey(date)
		groups[key] = append(groups[key], id)
	}
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	buckets := make([]Bucket, 0, len(keys))
	for _, key := range keys {
		members := groups[key]
		if len(members) < agg.DateHistogram.MinDocCount {
			continue
		}
		bucket := Bucket{KeyAsString: key + "-01", DocCount: len(members)}
		if len(agg.Aggs) > 0 {
			bucket.SubAggs = e.runAggs(agg.Aggs, members)
		}
		buckets = append(buckets, bucket)
	}
	return AggResult{Buckets: buckets}
}

func (e *Engine) metric(field string, ids []uint32, average bool) float64 {
	if field != FieldWordCount {
		return 0
	}
	var total float64
	for _, id := range ids {
		total += float64(e.byID[id].wordCount)
	}
	if average {
		if len(ids) == 0 {
			return 0
		}
		return total / float64(len(ids))
	}
	return total
}

// monthKey truncates an indexed date to yyyy-MM, filling missing components
// with zeroes so undated letters still land in a bucket.
func monthKey(date string) string {
	parts := strings.SplitN(date, "-", 3)
	year := "0000"
	month := "01"
	if len(parts) > 0 && parts[0] != "" {
		year = parts[0]
	}
	if len(parts) > 1 && parts[1] != "" {
		month = parts[1]
	}
	for len(year) < 4 {
		year = "0" + year
	}
	return year + "-" + month
}
