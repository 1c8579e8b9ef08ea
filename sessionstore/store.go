// Package sessionstore keeps an observational record of quiz chain runs in
// SQLite: one row per session plus one row per solved page, with a readable
// markdown excerpt of each page.
//
// The store is strictly best-effort. Chains are fire-and-forget; a failing
// store logs and moves on, it never blocks or aborts a run.
package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/quizrun/dbopen"
	"github.com/hazyhaar/quizrun/idgen"
)

// maxMarkdownChars caps the stored per-page excerpt.
const maxMarkdownChars = 4000

// SessionRecord is one chain run.
type SessionRecord struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	StartURL    string `json:"start_url"`
	Status      string `json:"status"` // running | completed | failed
	PagesSolved int    `json:"pages_solved"`
	StartedAt   int64  `json:"started_at"`
	FinishedAt  *int64 `json:"finished_at,omitempty"`
}

// PageRecord is one submitted page within a session.
type PageRecord struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	PageURL   string `json:"page_url"`
	Title     string `json:"title"`
	Answer    string `json:"answer"`
	Correct   bool   `json:"correct"`
	Markdown  string `json:"markdown"`
	CreatedAt int64  `json:"created_at"`
}

// Store writes and reads session records.
type Store struct {
	db        *sql.DB
	newID     idgen.Generator
	sanitizer *bluemonday.Policy
	md        *converter.Converter
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets the generator for page-row IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store backed by db. Call ApplySchema first (or open the
// database with dbopen.WithSchema(sessionstore.Schema)).
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:        db,
		newID:     idgen.Prefixed("pg_", idgen.UUIDv7()),
		sanitizer: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schema is the session store DDL. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS quiz_sessions (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL,
	start_url    TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	pages_solved INTEGER NOT NULL DEFAULT 0,
	started_at   INTEGER NOT NULL,
	finished_at  INTEGER
);
CREATE TABLE IF NOT EXISTS quiz_pages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES quiz_sessions(id),
	page_url   TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	answer     TEXT NOT NULL,
	correct    INTEGER NOT NULL,
	markdown   TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quiz_pages_session ON quiz_pages(session_id, created_at);
`

// ApplySchema creates the store tables. Idempotent.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("sessionstore: apply schema: %w", err)
	}
	return nil
}

// StartSession records the beginning of a chain run.
func (s *Store) StartSession(ctx context.Context, id, email, startURL string) {
	_, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO quiz_sessions (id, email, start_url, status, started_at)
		VALUES (?, ?, ?, 'running', ?)`,
		id, email, startURL, time.Now().UnixMilli())
	if err != nil {
		s.logger.Warn("sessionstore: start session failed", "session_id", id, "error", err)
	}
}

// RecordPage records one submitted page. The HTML is sanitised and converted
// to a markdown excerpt; conversion failure degrades to an empty excerpt.
func (s *Store) RecordPage(ctx context.Context, sessionID, pageURL, html, answer string, correct bool) {
	title := pageTitle(html)
	md := s.htmlToMarkdown(html, pageURL)

	_, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO quiz_pages (id, session_id, page_url, title, answer, correct, markdown, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.newID(), sessionID, pageURL, title, answer, boolInt(correct), md, time.Now().UnixMilli())
	if err != nil {
		s.logger.Warn("sessionstore: record page failed", "session_id", sessionID, "error", err)
	}
}

// FinishSession closes a chain run with its final status and page count.
func (s *Store) FinishSession(ctx context.Context, id, status string, pagesSolved int) {
	_, err := dbopen.Exec(ctx, s.db, `
		UPDATE quiz_sessions SET status = ?, pages_solved = ?, finished_at = ?
		WHERE id = ?`,
		status, pagesSolved, time.Now().UnixMilli(), id)
	if err != nil {
		s.logger.Warn("sessionstore: finish session failed", "session_id", id, "error", err)
	}
}

// Get returns one session record.
func (s *Store) Get(ctx context.Context, id string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, start_url, status, pages_solved, started_at, finished_at
		FROM quiz_sessions WHERE id = ?`, id)
	var rec SessionRecord
	var finished sql.NullInt64
	err := row.Scan(&rec.ID, &rec.Email, &rec.StartURL, &rec.Status,
		&rec.PagesSolved, &rec.StartedAt, &finished)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: get %s: %w", id, err)
	}
	if finished.Valid {
		rec.FinishedAt = &finished.Int64
	}
	return &rec, nil
}

// List returns the most recent sessions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, start_url, status, pages_solved, started_at, finished_at
		FROM quiz_sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: list: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var finished sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.StartURL, &rec.Status,
			&rec.PagesSolved, &rec.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("sessionstore: scan: %w", err)
		}
		if finished.Valid {
			rec.FinishedAt = &finished.Int64
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Pages returns the page records of a session in submission order.
func (s *Store) Pages(ctx context.Context, sessionID string) ([]PageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, page_url, title, answer, correct, markdown, created_at
		FROM quiz_pages WHERE session_id = ? ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: pages: %w", err)
	}
	defer rows.Close()

	var out []PageRecord
	for rows.Next() {
		var rec PageRecord
		var correct int
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.PageURL, &rec.Title,
			&rec.Answer, &correct, &rec.Markdown, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("sessionstore: scan page: %w", err)
		}
		rec.Correct = correct != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// htmlToMarkdown sanitises the page and converts it to a bounded markdown
// excerpt. Returns "" when the page yields nothing readable.
func (s *Store) htmlToMarkdown(html, sourceURL string) string {
	if html == "" {
		return ""
	}
	clean := s.sanitizer.Sanitize(html)
	md, err := s.md.ConvertString(clean, converter.WithDomain(sourceURL))
	if err != nil {
		s.logger.Debug("sessionstore: markdown conversion failed", "url", sourceURL, "error", err)
		return ""
	}
	md = strings.TrimSpace(md)
	if len([]rune(md)) > maxMarkdownChars {
		md = string([]rune(md)[:maxMarkdownChars])
	}
	return md
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
