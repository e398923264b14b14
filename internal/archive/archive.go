// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists finished research sessions to SQLite so their
// outlines, query/result history, and reports survive eviction from the
// in-memory session store.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/deep-research/internal/session"
	"github.com/pdiddy/deep-research/internal/synthesize"
	"github.com/pdiddy/deep-research/pkg/types"
)

const dbFile = "research.db"

// Store manages the archive SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the archive database at dir/research.db,
// creating the schema if it does not exist.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening archive database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating archive schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			seed TEXT,
			cycles INTEGER,
			phase TEXT,
			created_at TEXT,
			archived_at TEXT,
			report TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS topics (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			origin TEXT NOT NULL,
			parent_id TEXT,
			relevance REAL,
			seq INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS queries (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			topic_id TEXT,
			text TEXT NOT NULL,
			cycle INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			query_id TEXT,
			url TEXT,
			status TEXT,
			raw_length INTEGER,
			passages TEXT,
			retrieved_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_topics_session ON topics(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_session ON queries(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_session ON results(session_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveSession writes a finished session and its rendered report. Saving the
// same session twice replaces the previous rows.
func (s *Store) SaveSession(sess *session.Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning archive transaction: %w", err)
	}
	defer tx.Rollback()

	var reportText string
	if r := sess.Report(); r != nil {
		reportText = synthesize.Render(r)
	}

	_, err = tx.Exec(
		`INSERT OR REPLACE INTO sessions (id, seed, cycles, phase, created_at, archived_at, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Seed, sess.Cycle(), string(sess.Phase()),
		sess.CreatedAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		reportText,
	)
	if err != nil {
		return fmt.Errorf("archiving session %s: %w", sess.ID, err)
	}

	for _, t := range sess.Outline.Snapshot() {
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO topics (id, session_id, title, status, origin, parent_id, relevance, seq)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, sess.ID, t.Title, string(t.Status), string(t.Origin), t.ParentID, t.Relevance, t.Seq,
		)
		if err != nil {
			return fmt.Errorf("archiving topic %s: %w", t.ID, err)
		}
	}

	for _, q := range sess.Queries() {
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO queries (id, session_id, topic_id, text, cycle)
			 VALUES (?, ?, ?, ?, ?)`,
			q.ID, sess.ID, q.TopicID, q.Text, q.Cycle,
		)
		if err != nil {
			return fmt.Errorf("archiving query %s: %w", q.ID, err)
		}
	}

	for _, r := range sess.Results() {
		passages, err := json.Marshal(r.Passages)
		if err != nil {
			return fmt.Errorf("encoding passages for result %s: %w", r.ID, err)
		}
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO results (id, session_id, query_id, url, status, raw_length, passages, retrieved_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, sess.ID, r.QueryID, r.URL, string(r.Status), r.RawLength, string(passages),
			r.RetrievedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("archiving result %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// SessionSummary is one archived session row.
type SessionSummary struct {
	ID         string
	Seed       string
	Cycles     int
	Phase      types.Phase
	ArchivedAt time.Time
}

// ListSessions returns archived sessions, newest first.
func (s *Store) ListSessions() ([]SessionSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, seed, cycles, phase, archived_at FROM sessions ORDER BY archived_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing archived sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var phase, archived string
		if err := rows.Scan(&sum.ID, &sum.Seed, &sum.Cycles, &phase, &archived); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sum.Phase = types.Phase(phase)
		sum.ArchivedAt, _ = time.Parse(time.RFC3339, archived)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// LoadReport returns the rendered report text of an archived session.
func (s *Store) LoadReport(sessionID string) (string, error) {
	var report string
	err := s.db.QueryRow(`SELECT report FROM sessions WHERE id = ?`, sessionID).Scan(&report)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no archived session %s", sessionID)
	}
	if err != nil {
		return "", fmt.Errorf("loading report for %s: %w", sessionID, err)
	}
	return report, nil
}
