// Package patternstore persists the fetched pattern catalog in sqlite
// so restarts warm-start from the last fetch cycle. Retrieval
// correctness never depends on it; it only saves cold-start feed
// traffic.
package patternstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/patternlens/patternlens/pkg/types"
)

// Store is the sqlite-backed pattern catalog
type Store struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

// QueryOpts filters catalog reads
type QueryOpts struct {
	Sources  []string // Exact source names; empty means all
	MinScore int
	Limit    int // Default 500
}

// Open opens (and if needed creates) the catalog at dbPath
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	s := &Store{readDB: readDB, writeDB: writeDB}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS patterns (
			id              TEXT PRIMARY KEY,
			source          TEXT NOT NULL,
			title           TEXT NOT NULL,
			url             TEXT NOT NULL,
			publish_date    DATETIME NOT NULL,
			excerpt         TEXT NOT NULL DEFAULT '',
			content         TEXT NOT NULL DEFAULT '',
			topics          TEXT NOT NULL DEFAULT '[]',
			relevance_score INTEGER NOT NULL,
			has_code        INTEGER NOT NULL DEFAULT 0,
			fetched_at      DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_patterns_source ON patterns(source);
		CREATE INDEX IF NOT EXISTS idx_patterns_score ON patterns(relevance_score DESC);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Close releases both connections
func (s *Store) Close() error {
	var firstErr error
	for _, db := range []*sql.DB{s.readDB, s.writeDB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// UpsertPatterns writes one fetch cycle's documents for a source.
// Existing rows with the same id are refreshed in place.
func (s *Store) UpsertPatterns(sourceName string, patterns []types.Pattern) error {
	tx, err := s.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO patterns (id, source, title, url, publish_date, excerpt, content, topics, relevance_score, has_code, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			excerpt = excluded.excerpt,
			content = excluded.content,
			topics = excluded.topics,
			relevance_score = excluded.relevance_score,
			has_code = excluded.has_code,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range patterns {
		topics, err := json.Marshal(p.Topics)
		if err != nil {
			return fmt.Errorf("encoding topics for %s: %w", p.ID, err)
		}
		_, err = stmt.Exec(p.ID, sourceName, p.Title, p.URL, p.PublishDate.UTC(), p.Excerpt, p.Content,
			string(topics), p.RelevanceScore, boolToInt(p.HasCode), now)
		if err != nil {
			return fmt.Errorf("upserting pattern %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// GetPatterns reads the catalog with optional filters
func (s *Store) GetPatterns(opts QueryOpts) ([]types.Pattern, error) {
	var (
		where []string
		args  []interface{}
	)

	if len(opts.Sources) > 0 {
		placeholders := make([]string, len(opts.Sources))
		for i, name := range opts.Sources {
			placeholders[i] = "?"
			args = append(args, name)
		}
		where = append(where, "source IN ("+strings.Join(placeholders, ",")+")")
	}
	if opts.MinScore > 0 {
		where = append(where, "relevance_score >= ?")
		args = append(args, opts.MinScore)
	}

	query := "SELECT id, title, url, publish_date, excerpt, content, topics, relevance_score, has_code FROM patterns"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY relevance_score DESC, publish_date DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying patterns: %w", err)
	}
	defer rows.Close()

	var patterns []types.Pattern
	for rows.Next() {
		var (
			p       types.Pattern
			topics  string
			hasCode int
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.URL, &p.PublishDate, &p.Excerpt, &p.Content, &topics, &p.RelevanceScore, &hasCode); err != nil {
			return nil, fmt.Errorf("scanning pattern: %w", err)
		}
		if err := json.Unmarshal([]byte(topics), &p.Topics); err != nil {
			p.Topics = nil
		}
		p.HasCode = hasCode != 0
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// NeedsRefresh reports whether the catalog is older than interval
func (s *Store) NeedsRefresh(interval time.Duration) bool {
	var value string
	err := s.readDB.QueryRow("SELECT value FROM meta WHERE key = 'last_refresh'").Scan(&value)
	if err != nil {
		return true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return true
	}
	return time.Since(t) > interval
}

// SetLastRefresh stamps the catalog as freshly fetched
func (s *Store) SetLastRefresh() error {
	_, err := s.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES ('last_refresh', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, time.Now().UTC().Format(time.RFC3339))
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
