package letters

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/clairempr/letterpress-sub000/internal/index"
	"github.com/clairempr/letterpress-sub000/internal/metrics"
)

const rebuildBatchSize = 500

// Source pages through the authoritative letter store for rebuilds.
type Source interface {
	LettersPage(ctx context.Context, offset, limit int) ([]Letter, error)
}

// Indexer keeps the search index's letter projection in step with the
// authoritative store: write-through on create, update, and delete.
type Indexer struct {
	engine *index.Engine
	log    zerolog.Logger
}

func NewIndexer(engine *index.Engine, log zerolog.Logger) *Indexer {
	return &Indexer{
		engine: engine,
		log:    log.With().Str("component", "letter-indexer").Logger(),
	}
}

// DocID is the index document id for a letter.
func DocID(letterID int64) string {
	return strconv.FormatInt(letterID, 10)
}

// Create indexes a freshly stored letter with create-with-id semantics.
func (ix *Indexer) Create(letter *Letter) error {
	if err := ix.engine.Create(DocID(letter.ID), letter.IndexDoc()); err != nil {
		return fmt.Errorf("failed to index letter %d: %w", letter.ID, err)
	}
	metrics.LettersIndexed.Inc()
	return nil
}

// Update re-projects a changed letter with a partial-document update.
func (ix *Indexer) Update(letter *Letter) error {
	if err := ix.engine.Update(DocID(letter.ID), letter.IndexDoc()); err != nil {
		return fmt.Errorf("failed to update letter %d in index: %w", letter.ID, err)
	}
	return nil
}

// Delete removes a letter's projection by id.
func (ix *Indexer) Delete(letterID int64) error {
	if err := ix.engine.Delete(DocID(letterID)); err != nil {
		return fmt.Errorf("failed to delete letter %d from index: %w", letterID, err)
	}
	return nil
}

// Rebuild replays every letter from the authoritative store into the index
// in batches, replacing whatever is there. It returns the number of letters
// indexed.
func (ix *Indexer) Rebuild(ctx context.Context, src Source) (int, error) {
	total := 0
	for offset := 0; ; offset += rebuildBatchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		page, err := src.LettersPage(ctx, offset, rebuildBatchSize)
		if err != nil {
			return total, fmt.Errorf("failed to read letters at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}
		for i := range page {
			if err := ix.engine.Put(DocID(page[i].ID), page[i].IndexDoc()); err != nil {
				return total, fmt.Errorf("failed to reindex letter %d: %w", page[i].ID, err)
			}
			total++
		}
		ix.log.Info().Int("indexed", total).Msg("rebuild progress")
	}
	metrics.RebuildLetters.Set(float64(total))
	return total, nil
}
