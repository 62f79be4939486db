// Package history persists completed scans to SQLite so past verdicts can
// be listed and fetched by id.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/snbhakti11/PhishScan/internal/logging"
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrScanNotFound = errors.New("scan not found")

// Record is one persisted scan. Result holds the full scan report as JSON
// so the API can return it verbatim without re-running the pipeline.
type Record struct {
	ID            string          `json:"id"`
	URL           string          `json:"url"`
	CanonicalURL  string          `json:"canonical_url"`
	Verdict       string          `json:"verdict"`
	CombinedScore float64         `json:"combined_score"`
	Result        json.RawMessage `json:"result"`
	CreatedAt     int64           `json:"created_at"`
}

// Store manages the scans table. NewStore runs migrations from schema.sql.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

func NewStore(db *sql.DB, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// OpenDB opens (creating parent directories as needed) the SQLite database
// at path and applies the pragmas the store expects.
func OpenDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure db dir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", path, err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return db, nil
}

// SaveScan inserts a completed scan. An empty id gets a generated UUID;
// result is marshalled to JSON and a nil result is stored as an empty
// object.
func (s *Store) SaveScan(ctx context.Context, id, rawURL, canonicalURL, verdict string, combinedScore float64, result any) (*Record, error) {
	resultJSON := []byte("{}")
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal scan result: %w", err)
		}
		resultJSON = b
	}

	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().Unix()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, url, canonical_url, verdict, combined_score, result, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, rawURL, canonicalURL, verdict, combinedScore, string(resultJSON), now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}

	return &Record{
		ID:            id,
		URL:           rawURL,
		CanonicalURL:  canonicalURL,
		Verdict:       verdict,
		CombinedScore: combinedScore,
		Result:        resultJSON,
		CreatedAt:     now,
	}, nil
}

// GetScan returns a scan by id.
func (s *Store) GetScan(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, canonical_url, verdict, combined_score, result, created_at
         FROM scans
         WHERE id = ?
         LIMIT 1`,
		id,
	)
	var rec Record
	var result sql.NullString
	if err := row.Scan(&rec.ID, &rec.URL, &rec.CanonicalURL, &rec.Verdict, &rec.CombinedScore, &result, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrScanNotFound
		}
		return nil, err
	}
	rec.Result = json.RawMessage(result.String)
	return &rec, nil
}

// ListScans returns the most recent scans, newest first. limit <= 0 means
// a default of 50.
func (s *Store) ListScans(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, canonical_url, verdict, combined_score, result, created_at
         FROM scans
         ORDER BY created_at DESC, id
         LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var rec Record
		var result sql.NullString
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.CanonicalURL, &rec.Verdict, &rec.CombinedScore, &result, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Result = json.RawMessage(result.String)
		out = append(out, &rec)
	}
	return out, rows.Err()
}
