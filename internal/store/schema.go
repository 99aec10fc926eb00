package store

const schema = `
-- Named groups of weighted phrase terms
CREATE TABLE IF NOT EXISTS custom_sentiments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    max_weight INTEGER NOT NULL DEFAULT 1
);

-- Phrase terms, owned by their sentiment
CREATE TABLE IF NOT EXISTS sentiment_terms (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    custom_sentiment_id INTEGER NOT NULL,
    text TEXT NOT NULL,
    analyzed_text TEXT NOT NULL,   -- sentiment-term analyzer output, kept in step with text
    weight INTEGER NOT NULL DEFAULT 1,
    FOREIGN KEY (custom_sentiment_id) REFERENCES custom_sentiments(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_sentiment_terms_sentiment ON sentiment_terms(custom_sentiment_id);

-- Authoritative letter records; the search index holds a derived projection
CREATE TABLE IF NOT EXISTS letters (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    year INTEGER NOT NULL DEFAULT 0,       -- 0 means unknown
    month INTEGER NOT NULL DEFAULT 0,
    day INTEGER NOT NULL DEFAULT 0,
    source_id INTEGER NOT NULL DEFAULT 0,
    writer_id INTEGER NOT NULL DEFAULT 0,
    heading TEXT NOT NULL DEFAULT '',
    greeting TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    closing TEXT NOT NULL DEFAULT '',
    signature TEXT NOT NULL DEFAULT '',
    ps TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_letters_date ON letters(year, month, day);
CREATE INDEX IF NOT EXISTS idx_letters_source ON letters(source_id);
CREATE INDEX IF NOT EXISTS idx_letters_writer ON letters(writer_id);
`
