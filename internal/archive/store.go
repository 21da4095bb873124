// Package archive persists compiled automation documents locally so
// past recording sessions can be listed and replayed.
package archive

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gravity-api/g4-recorder/internal/automation"
	"github.com/gravity-api/g4-recorder/internal/config"
)

// ErrNotFound reports a session id absent from the archive.
var ErrNotFound = errors.New("session not found in archive")

// Meta summarizes one archived session.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Jobs      int       `json:"jobs"`
	Rules     int       `json:"rules"`
}

// Store is a sqlite-backed archive of compiled sessions.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default archive database location.
func DefaultPath() string {
	return filepath.Join(config.DefaultDir(), "sessions.db")
}

// Open opens (and if needed initializes) the archive at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", path, err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	jobs       INTEGER NOT NULL,
	rules      INTEGER NOT NULL,
	document   TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Save archives one compiled document under the session id.
func (s *Store) Save(id string, doc automation.Automation) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	jobs, ruleCount := 0, 0
	for _, stage := range doc.Stages {
		jobs += len(stage.Jobs)
		for _, job := range stage.Jobs {
			ruleCount += len(job.Rules)
		}
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions (id, created_at, jobs, rules, document) VALUES (?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339), jobs, ruleCount, string(payload),
	)
	if err != nil {
		return fmt.Errorf("archive session %q: %w", id, err)
	}
	return nil
}

// List returns archived session summaries, newest first.
func (s *Store) List() ([]Meta, error) {
	rows, err := s.db.Query(`SELECT id, created_at, jobs, rules FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		var m Meta
		var created string
		if err := rows.Scan(&m.ID, &created, &m.Jobs, &m.Rules); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		m.CreatedAt, err = time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("session %q: parse created_at %q: %w", m.ID, created, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Get loads one archived document.
func (s *Store) Get(id string) (automation.Automation, error) {
	var payload string
	err := s.db.QueryRow(`SELECT document FROM sessions WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return automation.Automation{}, ErrNotFound
	}
	if err != nil {
		return automation.Automation{}, fmt.Errorf("load session %q: %w", id, err)
	}

	var doc automation.Automation
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return automation.Automation{}, fmt.Errorf("decode session %q: %w", id, err)
	}
	return doc, nil
}
