// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists publications, their processing state and the
// internal author registry in SQLite.
package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "affiliation.db"

const timeLayout = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS publications (
	resource_id            TEXT PRIMARY KEY,
	contributors           TEXT NOT NULL DEFAULT '[]',
	wos_affiliation        TEXT NOT NULL DEFAULT '[]',
	scopus_affiliation     TEXT NOT NULL DEFAULT '[]',
	flags                  TEXT NOT NULL DEFAULT '{}',
	heuristic_status       TEXT NOT NULL DEFAULT 'not_processed',
	heuristic_version      TEXT NOT NULL DEFAULT '',
	heuristic_processed_at TEXT NOT NULL DEFAULT '',
	needs_llm              INTEGER NOT NULL DEFAULT 0,
	internal_authors       TEXT NOT NULL DEFAULT '[]',
	faculties              TEXT NOT NULL DEFAULT '[]',
	departments            TEXT NOT NULL DEFAULT '[]',
	llm_result             TEXT NOT NULL DEFAULT '',
	llm_status             TEXT NOT NULL DEFAULT 'not_processed',
	llm_processed_at       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_publications_heuristic_status ON publications(heuristic_status);
CREATE INDEX IF NOT EXISTS idx_publications_llm_status ON publications(needs_llm, llm_status);

CREATE TABLE IF NOT EXISTS internal_authors (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	surname   TEXT NOT NULL,
	firstname TEXT NOT NULL DEFAULT '',
	norm_name TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_internal_authors_norm_name ON internal_authors(norm_name);
`

// Store is the SQLite-backed persistence of the pipeline.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the database at cfg.Path and applies the schema.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Transactions below run on the only connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// jsonList is a string list stored as a JSON array.
type jsonList []string

// Value implements driver.Valuer.
func (l jsonList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *jsonList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scanning json list: unsupported type %T", src)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("scanning json list: %w", err)
	}
	if len(out) == 0 {
		out = nil
	}
	*l = out
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func statusStrings(statuses []types.Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
