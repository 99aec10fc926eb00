package sentiment

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clairempr/letterpress-sub000/internal/index"
)

// lengthNormDivisor is a numeric contract: published scores depend on it and
// on the (max_weight+1)/2 half-shift, so neither may be retuned without
// re-baselining every stored score.
const lengthNormDivisor = 0.119

// Scorer computes lexicon scores from term vectors. This is the
// authoritative per-letter interpretation of a sentiment; the index-side
// query in indexscore.go must agree with it on sign and ordering.
type Scorer struct {
	catalog Catalog
	vectors *TermVectors
	log     zerolog.Logger
}

func NewScorer(catalog Catalog, vectors *TermVectors, log zerolog.Logger) *Scorer {
	return &Scorer{
		catalog: catalog,
		vectors: vectors,
		log:     log.With().Str("component", "sentiment-scorer").Logger(),
	}
}

// ScoreText scores ad-hoc text under a sentiment. Word count here is the
// whitespace word count of the raw text.
func (s *Scorer) ScoreText(ctx context.Context, text string, sentimentID int64) (Result, error) {
	cs, terms, err := s.catalog.CustomSentiment(ctx, sentimentID)
	if err != nil {
		return Result{}, err
	}
	if cs == nil || len(terms) == 0 {
		return Result{}, nil
	}
	tv, err := s.vectors.ForText(text)
	if err != nil {
		return Result{}, err
	}
	score := scoreTermVector(terms, cs.MaxWeight, tv, s.vectors.WordCountForText(text))
	return Result{Name: cs.Name, Score: score}, nil
}

// ScoreLetter scores a stored letter by its indexed term vector and stored
// word count.
func (s *Scorer) ScoreLetter(ctx context.Context, letterID string, sentimentID int64) (Result, error) {
	cs, terms, err := s.catalog.CustomSentiment(ctx, sentimentID)
	if err != nil {
		return Result{}, err
	}
	if cs == nil || len(terms) == 0 {
		return Result{}, nil
	}
	tv, err := s.vectors.ForLetter(letterID)
	if err != nil {
		return Result{}, err
	}
	wordCount, err := s.vectors.WordCountForLetter(letterID)
	if err != nil {
		return Result{}, err
	}
	score := scoreTermVector(terms, cs.MaxWeight, tv, wordCount)
	return Result{Name: cs.Name, Score: score}, nil
}

// orderByLength sorts terms longest phrase first, stable within a length
// class. Longer phrases are credited before the unigrams and bigrams they
// contain, which the sub-phrase decrement then suppresses.
func orderByLength(terms []Term) []Term {
	ordered := make([]Term, len(terms))
	copy(ordered, terms)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].NumberOfWords() > ordered[j].NumberOfWords()
	})
	return ordered
}

// scoreTermVector is the lexicon scoring core. Each matched term contributes
// term_freq x number_of_words x weight, then every contiguous sub-phrase of
// it loses one occurrence per match so shorter terms cannot re-count the
// same tokens. When two terms share an analyzed form the first visited wins;
// its decrement removes the token from later consideration.
func scoreTermVector(terms []Term, maxWeight int, tv index.TermVector, wordCount int) float64 {
	if wordCount == 0 || len(tv) == 0 {
		return 0
	}
	freqs := make(map[string]int, len(tv))
	for token, info := range tv {
		freqs[token] = info.TermFreq
	}

	score := 0.0
	for _, term := range orderByLength(terms) {
		analyzed := term.AnalyzedText
		if analyzed == "" {
			continue
		}
		freq := freqs[analyzed]
		if freq < 1 {
			continue
		}
		score += float64(freq * term.NumberOfWords() * term.Weight)
		decrementSubPhrases(freqs, analyzed, freq)
	}

	halfShift := (float64(maxWeight) + 1) / 2
	return (score / halfShift) / (float64(wordCount) * lengthNormDivisor)
}

// decrementSubPhrases subtracts count from every contiguous sub-phrase of
// the analyzed phrase, at every start index and every length shorter than
// the phrase itself, deleting entries that drop below one occurrence.
func decrementSubPhrases(freqs map[string]int, analyzed string, count int) {
	words := strings.Fields(analyzed)
	for length := 1; length < len(words); length++ {
		for start := 0; start+length <= len(words); start++ {
			sub := strings.Join(words[start:start+length], " ")
			freq, ok := freqs[sub]
			if !ok {
				continue
			}
			freq -= count
			if freq < 1 {
				delete(freqs, sub)
			} else {
				freqs[sub] = freq
			}
		}
	}
}
