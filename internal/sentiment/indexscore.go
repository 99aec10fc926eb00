package sentiment

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clairempr/letterpress-sub000/internal/index"
)

// IndexScorer computes a sentiment score inside the search index with a
// function-scored query. It exists because the same shape can be composed
// into the outer letter search for sort-by-sentiment; the in-process Scorer
// remains the authoritative interpretation.
type IndexScorer struct {
	catalog Catalog
	engine  *index.Engine
	vectors *TermVectors
	log     zerolog.Logger
}

func NewIndexScorer(catalog Catalog, engine *index.Engine, vectors *TermVectors, log zerolog.Logger) *IndexScorer {
	return &IndexScorer{
		catalog: catalog,
		engine:  engine,
		vectors: vectors,
		log:     log.With().Str("component", "sentiment-indexscorer").Logger(),
	}
}

// PhraseClauses renders a sentiment's terms as boosted match_phrase clauses
// on the custom sentiment field. The boost weight x words / max_weight makes
// the summed function score proportional to the lexicon numerator.
func PhraseClauses(cs *CustomSentiment, terms []Term) index.QueryList {
	clauses := make(index.QueryList, 0, len(terms))
	for _, term := range terms {
		boost := float64(term.Weight) * float64(term.NumberOfWords()) / float64(cs.MaxWeight)
		clauses = append(clauses, &index.Query{
			MatchPhrase: map[string]index.MatchQuery{
				index.FieldCustomSentiment: {Query: term.Text, Boost: boost},
			},
		})
	}
	return clauses
}

// ScoreQuery wraps an id filter plus the sentiment's phrase clauses in the
// length-normalizing script score. A hit that matches only the id filter
// scores exactly 1, which the script coerces to 0.
func ScoreQuery(letterID string, cs *CustomSentiment, terms []Term) *index.SearchRequest {
	return &index.SearchRequest{
		Query: &index.Query{
			FunctionScore: &index.FunctionScore{
				Query: &index.Query{Bool: &index.BoolQuery{
					Must:   index.QueryList{{Terms: map[string][]any{"_id": {letterID}}}},
					Should: PhraseClauses(cs, terms),
				}},
				ScriptScore: &index.ScriptScore{Script: index.Script{
					Lang:   "painless",
					Inline: index.SentimentScoreScript,
				}},
			},
		},
		StoredFields: []string{index.FieldWordCount},
	}
}

// ScoreLetter returns the index-side score of a stored letter, or 0 when the
// sentiment is unknown, empty, or nothing matched.
func (s *IndexScorer) ScoreLetter(ctx context.Context, letterID string, sentimentID int64) (float64, error) {
	cs, terms, err := s.catalog.CustomSentiment(ctx, sentimentID)
	if err != nil {
		return 0, err
	}
	if cs == nil || len(terms) == 0 {
		return 0, nil
	}
	res, err := s.engine.Search(ScoreQuery(letterID, cs, terms))
	if err != nil {
		return 0, err
	}
	if len(res.Hits.Hits) == 0 {
		return 0, nil
	}
	return res.Hits.Hits[0].Score, nil
}

// ScoreText scores ad-hoc text by parking it in the temp document slot and
// running the same query against it.
func (s *IndexScorer) ScoreText(ctx context.Context, text string, sentimentID int64) (float64, error) {
	cs, terms, err := s.catalog.CustomSentiment(ctx, sentimentID)
	if err != nil {
		return 0, err
	}
	if cs == nil || len(terms) == 0 {
		return 0, nil
	}
	var score float64
	err = s.vectors.WithTempDoc(text, func(id string) error {
		res, err := s.engine.Search(ScoreQuery(id, cs, terms))
		if err != nil {
			return err
		}
		if len(res.Hits.Hits) > 0 {
			score = res.Hits.Hits[0].Score
		}
		return nil
	})
	return score, err
}
