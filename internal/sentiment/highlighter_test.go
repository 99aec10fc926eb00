package sentiment

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clairempr/letterpress-sub000/internal/index"
)

func newHighlighter(t *testing.T, catalog Catalog) *Highlighter {
	t.Helper()
	engine := index.New("letterpress-test", zerolog.Nop())
	return NewHighlighter(catalog, NewTermVectors(engine), zerolog.Nop())
}

func TestHighlightEmptySentiment(t *testing.T) {
	catalog := newCatalog()
	catalog.add(1, "Hipster", 1)
	h := newHighlighter(t, catalog)

	got, err := h.HighlightText(context.Background(), "anything at all", 1)
	if err != nil {
		t.Fatalf("highlight: %v", err)
	}
	if got != "anything at all" {
		t.Fatalf("got %q, want input unchanged", got)
	}
}

func TestHighlightUnknownSentiment(t *testing.T) {
	h := newHighlighter(t, newCatalog())
	got, err := h.HighlightText(context.Background(), "anything at all", 42)
	if err != nil {
		t.Fatalf("highlight: %v", err)
	}
	if got != "anything at all" {
		t.Fatalf("got %q, want input unchanged", got)
	}
}

func TestHighlightPhraseWinsOverUnigram(t *testing.T) {
	catalog := newCatalog()
	catalog.add(1, "Hipster", 1, term(t, "pounce box", 1), term(t, "pounce", 1))
	h := newHighlighter(t, catalog)

	got, err := h.HighlightText(context.Background(), "pounce box", 1)
	if err != nil {
		t.Fatalf("highlight: %v", err)
	}
	want := "<span class=\"sentiment-highlight-normal\">pounce box</span>"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if strings.Count(got, "<span") != 1 {
		t.Fatalf("nested spans in %q", got)
	}
}

func TestHighlightWeightClasses(t *testing.T) {
	catalog := newCatalog()
	catalog.add(1, "Equine", 2, term(t, "pony", 2), term(t, "horse", 1))
	h := newHighlighter(t, catalog)

	got, err := h.HighlightText(context.Background(), "the horse and the pony", 1)
	if err != nil {
		t.Fatalf("highlight: %v", err)
	}
	if !strings.Contains(got, "<span class=\"sentiment-highlight-normal\">horse</span>") {
		t.Fatalf("weight-1 term not wrapped normal: %q", got)
	}
	if !strings.Contains(got, "<span class=\"sentiment-highlight-extra\">pony</span>") {
		t.Fatalf("weighted term not wrapped extra: %q", got)
	}
}

func TestHighlightRepeatable(t *testing.T) {
	catalog := newCatalog()
	catalog.add(1, "Hipster", 1, term(t, "pounce box", 1), term(t, "pounce", 1))
	h := newHighlighter(t, catalog)

	first, err := h.HighlightText(context.Background(), "the pounce box and the pounce", 1)
	if err != nil {
		t.Fatalf("highlight: %v", err)
	}
	second, err := h.HighlightText(context.Background(), "the pounce box and the pounce", 1)
	if err != nil {
		t.Fatalf("highlight: %v", err)
	}
	if first != second {
		t.Fatalf("highlighting not deterministic:\n%q\n%q", first, second)
	}
	// The standalone unigram is still wrapped, outside the phrase span.
	if strings.Count(first, "<span") != 2 {
		t.Fatalf("span count = %d in %q", strings.Count(first, "<span"), first)
	}
}

func TestHighlightPreservesCharacters(t *testing.T) {
	catalog := newCatalog()
	catalog.add(1, "Hipster", 1, term(t, "vinyl", 1))
	h := newHighlighter(t, catalog)

	input := "I bought vinyl today, more vinyl tomorrow"
	got, err := h.HighlightText(context.Background(), input, 1)
	if err != nil {
		t.Fatalf("highlight: %v", err)
	}
	stripped := strings.ReplaceAll(got, "<span class=\"sentiment-highlight-normal\">", "")
	stripped = strings.ReplaceAll(stripped, "</span>", "")
	if stripped != input {
		t.Fatalf("characters changed: %q", stripped)
	}
	if strings.Count(got, "<span") != 2 {
		t.Fatalf("span count = %d in %q", strings.Count(got, "<span"), got)
	}
}
