// Package archive persists answered questions and their cited articles in a
// local SQLite database and exports the article dataset as CSV.
package archive

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"legiscope/internal/history"
)

// CSVHeader is the first row written by ExportCSV.
var CSVHeader = []string{"article_id", "code", "title", "excerpt", "question", "extracted_at"}

const schema = `
CREATE TABLE IF NOT EXISTS queries (
	id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	code_scope TEXT,
	mode TEXT NOT NULL,
	answered_at TEXT NOT NULL,
	archived_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS articles (
	query_id TEXT NOT NULL REFERENCES queries(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	article_id TEXT NOT NULL,
	code TEXT,
	title TEXT,
	excerpt TEXT,
	source TEXT,
	extracted_at TEXT NOT NULL,
	PRIMARY KEY (query_id, position)
);
CREATE INDEX IF NOT EXISTS idx_articles_article ON articles(article_id);
`

// Store is an open archive. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the source of extraction timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open creates or opens the archive at path.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// Save stores rec and its articles. Saving the same record again replaces
// its articles.
func (s *Store) Save(ctx context.Context, rec history.Record) error {
	stamp := s.now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer tx.Rollback()

	var scope sql.NullString
	if rec.CodeScope != nil {
		scope = sql.NullString{String: *rec.CodeScope, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO queries (id, question, code_scope, mode, answered_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET archived_at = excluded.archived_at`,
		rec.ID, rec.OriginalQuestion, scope, string(rec.Mode), rec.Timestamp, stamp,
	); err != nil {
		return fmt.Errorf("archive: save query %s: %w", rec.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE query_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("archive: clear articles %s: %w", rec.ID, err)
	}
	for i, art := range rec.Articles {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO articles (query_id, position, article_id, code, title, excerpt, source, extracted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, i, art.ID, art.Code, art.Title, art.Excerpt, art.Source, stamp,
		); err != nil {
			return fmt.Errorf("archive: save article %s: %w", art.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit: %w", err)
	}
	return nil
}

// Stats counts archived queries and articles.
func (s *Store) Stats(ctx context.Context) (queries, articles int, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT (SELECT COUNT(*) FROM queries), (SELECT COUNT(*) FROM articles)`)
	if err := row.Scan(&queries, &articles); err != nil {
		return 0, 0, fmt.Errorf("archive: stats: %w", err)
	}
	return queries, articles, nil
}

// ExportCSV writes one row per archived article, oldest first, and returns
// the number of data rows.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.article_id, COALESCE(a.code, ''), COALESCE(a.title, ''), COALESCE(a.excerpt, ''), q.question, a.extracted_at
		FROM articles a
		JOIN queries q ON q.id = a.query_id
		ORDER BY a.extracted_at, q.answered_at, a.query_id, a.position`)
	if err != nil {
		return 0, fmt.Errorf("archive: query articles: %w", err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, fmt.Errorf("archive: write header: %w", err)
	}
	n := 0
	for rows.Next() {
		record := make([]string, len(CSVHeader))
		if err := rows.Scan(&record[0], &record[1], &record[2], &record[3], &record[4], &record[5]); err != nil {
			return n, fmt.Errorf("archive: scan article: %w", err)
		}
		if err := cw.Write(record); err != nil {
			return n, fmt.Errorf("archive: write row: %w", err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("archive: read articles: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("archive: flush: %w", err)
	}
	return n, nil
}
