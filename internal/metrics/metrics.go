// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LettersIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "letterpress_letters_indexed_total",
		Help: "Letters written through to the search index.",
	})

	RebuildLetters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "letterpress_rebuild_letters",
		Help: "Letters indexed by the most recent rebuild.",
	})

	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "letterpress_search_requests_total",
		Help: "Letter search requests by outcome.",
	}, []string{"status"})

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "letterpress_search_duration_seconds",
		Help:    "Letter search latency.",
		Buckets: prometheus.DefBuckets,
	})

	SentimentScores = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "letterpress_sentiment_scores_total",
		Help: "Sentiment scoring calls by path (lexicon or index).",
	}, []string{"path"})
)
