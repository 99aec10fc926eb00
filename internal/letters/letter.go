// Package letters holds the letter entity, its plain-text contents assembly,
// and the projection that keeps the search index coherent with the
// authoritative store.
package letters

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/clairempr/letterpress-sub000/internal/index"
)

// Letter is a catalogued historical letter. The body is stored as HTML; all
// other parts are plain text.
type Letter struct {
	ID        int64
	Date      Date
	SourceID  int64
	WriterID  int64
	Heading   string
	Greeting  string
	Body      string
	Closing   string
	Signature string
	PS        string
}

// BodyAsText strips the body's HTML markup. Malformed markup falls back to
// the raw body rather than losing the text.
func (l *Letter) BodyAsText() string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(l.Body))
	if err != nil {
		return l.Body
	}
	return strings.TrimSpace(doc.Text())
}

// Contents assembles the searchable plain text: heading, greeting, body as
// text, closing, signature, and ps, newline separated with empty parts
// dropped.
func (l *Letter) Contents() string {
	parts := []string{
		l.Heading,
		l.Greeting,
		l.BodyAsText(),
		l.Closing,
		l.Signature,
		l.PS,
	}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// projection maps each indexed field to its value on a letter. The shape is
// explicit so the index contract can be read in one place.
var projection = map[string]func(*Letter) any{
	index.FieldContents: func(l *Letter) any { return l.Contents() },
	index.FieldDate:     func(l *Letter) any { return l.Date.IndexDate() },
	index.FieldSource:   func(l *Letter) any { return l.SourceID },
	index.FieldWriter:   func(l *Letter) any { return l.WriterID },
}

// IndexDoc builds the document indexed for this letter.
func (l *Letter) IndexDoc() map[string]any {
	doc := make(map[string]any, len(projection))
	for field, build := range projection {
		doc[field] = build(l)
	}
	return doc
}
