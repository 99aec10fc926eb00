// Package store is the authoritative sqlite-backed catalog of letters,
// custom sentiments, and their terms.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/clairempr/letterpress-sub000/internal/analysis"
	"github.com/clairempr/letterpress-sub000/internal/letters"
	"github.com/clairempr/letterpress-sub000/internal/sentiment"
)

// ErrNotFound marks lookups of ids that do not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens or creates the catalog database at path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	// Cascade deletes from custom_sentiments to sentiment_terms need this.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "store").Logger()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateCustomSentiment inserts a new sentiment and returns it with its id.
func (s *Store) CreateCustomSentiment(ctx context.Context, name string, maxWeight int) (*sentiment.CustomSentiment, error) {
	if maxWeight < 1 {
		maxWeight = 1
	}
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO custom_sentiments (name, max_weight) VALUES (?, ?)",
		name, maxWeight,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentiment %q: %w", name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &sentiment.CustomSentiment{ID: id, Name: name, MaxWeight: maxWeight}, nil
}

// UpdateCustomSentiment writes name and max_weight back.
func (s *Store) UpdateCustomSentiment(ctx context.Context, cs *sentiment.CustomSentiment) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE custom_sentiments SET name = ?, max_weight = ? WHERE id = ?",
		cs.Name, cs.MaxWeight, cs.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sentiment %d: %w", cs.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCustomSentiment removes a sentiment; its terms go with it.
func (s *Store) DeleteCustomSentiment(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM custom_sentiments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete sentiment %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CustomSentiment loads one sentiment and its terms. An unknown id returns
// (nil, nil, nil) so scoring can treat it as neutral.
func (s *Store) CustomSentiment(ctx context.Context, id int64) (*sentiment.CustomSentiment, []sentiment.Term, error) {
	cs := &sentiment.CustomSentiment{ID: id}
	err := s.db.QueryRowContext(ctx,
		"SELECT name, max_weight FROM custom_sentiments WHERE id = ?", id,
	).Scan(&cs.Name, &cs.MaxWeight)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sentiment %d: %w", id, err)
	}
	terms, err := s.Terms(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return cs, terms, nil
}

// ListCustomSentiments returns all sentiments ordered by name.
func (s *Store) ListCustomSentiments(ctx context.Context) ([]sentiment.CustomSentiment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, max_weight FROM custom_sentiments ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list sentiments: %w", err)
	}
	defer rows.Close()

	var out []sentiment.CustomSentiment
	for rows.Next() {
		var cs sentiment.CustomSentiment
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.MaxWeight); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// Terms returns a sentiment's terms in insertion order.
func (s *Store) Terms(ctx context.Context, sentimentID int64) ([]sentiment.Term, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, custom_sentiment_id, text, analyzed_text, weight FROM sentiment_terms WHERE custom_sentiment_id = ? ORDER BY id",
		sentimentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list terms for sentiment %d: %w", sentimentID, err)
	}
	defer rows.Close()

	var out []sentiment.Term
	for rows.Next() {
		var t sentiment.Term
		if err := rows.Scan(&t.ID, &t.SentimentID, &t.Text, &t.AnalyzedText, &t.Weight); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveTerm inserts or updates a term. The analyzed form is always re-derived
// from the current text so it can never go stale in storage. Terms
// containing markup are rejected: the sentiment analyzers disagree on HTML,
// so such a term could never match reliably.
func (s *Store) SaveTerm(ctx context.Context, t *sentiment.Term) error {
	text := strings.TrimSpace(t.Text)
	if text == "" {
		return fmt.Errorf("term text is empty")
	}
	if strings.ContainsAny(text, "<>") {
		return fmt.Errorf("term text %q contains markup", text)
	}
	if t.Weight < 1 {
		t.Weight = 1
	}

	var maxWeight int
	err := s.db.QueryRowContext(ctx,
		"SELECT max_weight FROM custom_sentiments WHERE id = ?", t.SentimentID,
	).Scan(&maxWeight)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load sentiment %d: %w", t.SentimentID, err)
	}
	if t.Weight > maxWeight {
		return fmt.Errorf("term weight %d exceeds sentiment max_weight %d", t.Weight, maxWeight)
	}

	a, ok := analysis.Get(analysis.SentimentTerm)
	if !ok {
		return fmt.Errorf("sentiment term analyzer not registered")
	}
	t.Text = text
	t.AnalyzedText = a.AnalyzeString(text)

	if t.ID == 0 {
		result, err := s.db.ExecContext(ctx,
			"INSERT INTO sentiment_terms (custom_sentiment_id, text, analyzed_text, weight) VALUES (?, ?, ?, ?)",
			t.SentimentID, t.Text, t.AnalyzedText, t.Weight,
		)
		if err != nil {
			return fmt.Errorf("failed to insert term %q: %w", t.Text, err)
		}
		t.ID, err = result.LastInsertId()
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE sentiment_terms SET text = ?, analyzed_text = ?, weight = ? WHERE id = ?",
		t.Text, t.AnalyzedText, t.Weight, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update term %d: %w", t.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTerm removes a single term.
func (s *Store) DeleteTerm(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sentiment_terms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete term %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveLetter inserts a new letter (ID zero) or updates an existing one.
func (s *Store) SaveLetter(ctx context.Context, l *letters.Letter) error {
	if l.ID == 0 {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO letters (year, month, day, source_id, writer_id, heading, greeting, body, closing, signature, ps)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.Date.Year, l.Date.Month, l.Date.Day, l.SourceID, l.WriterID,
			l.Heading, l.Greeting, l.Body, l.Closing, l.Signature, l.PS,
		)
		if err != nil {
			return fmt.Errorf("failed to insert letter: %w", err)
		}
		l.ID, err = result.LastInsertId()
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE letters SET year = ?, month = ?, day = ?, source_id = ?, writer_id = ?,
			heading = ?, greeting = ?, body = ?, closing = ?, signature = ?, ps = ?
		WHERE id = ?`,
		l.Date.Year, l.Date.Month, l.Date.Day, l.SourceID, l.WriterID,
		l.Heading, l.Greeting, l.Body, l.Closing, l.Signature, l.PS, l.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update letter %d: %w", l.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Letter loads one letter by id.
func (s *Store) Letter(ctx context.Context, id int64) (*letters.Letter, error) {
	l := &letters.Letter{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, year, month, day, source_id, writer_id, heading, greeting, body, closing, signature, ps
		FROM letters WHERE id = ?`, id,
	).Scan(&l.ID, &l.Date.Year, &l.Date.Month, &l.Date.Day, &l.SourceID, &l.WriterID,
		&l.Heading, &l.Greeting, &l.Body, &l.Closing, &l.Signature, &l.PS)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load letter %d: %w", id, err)
	}
	return l, nil
}

// DeleteLetter removes a letter by id.
func (s *Store) DeleteLetter(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM letters WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete letter %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LettersPage reads a batch of letters ordered by id, for index rebuilds.
func (s *Store) LettersPage(ctx context.Context, offset, limit int) ([]letters.Letter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, year, month, day, source_id, writer_id, heading, greeting, body, closing, signature, ps
		FROM letters ORDER BY id LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to page letters: %w", err)
	}
	defer rows.Close()

	var out []letters.Letter
	for rows.Next() {
		var l letters.Letter
		if err := rows.Scan(&l.ID, &l.Date.Year, &l.Date.Month, &l.Date.Day, &l.SourceID, &l.WriterID,
			&l.Heading, &l.Greeting, &l.Body, &l.Closing, &l.Signature, &l.PS); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
