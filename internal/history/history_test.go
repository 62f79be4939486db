package history_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/snbhakti11/PhishScan/internal/history"
	"github.com/snbhakti11/PhishScan/internal/interfaces"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		t.Logf("pragmas: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.NewStore(openTestDB(t), interfaces.NewTestLogger(false))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestStore_SaveAndGetScan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result := map[string]any{"combined_score": 0.62, "label": "phishing"}
	rec, err := store.SaveScan(ctx, "", "HTTP://Example.com/login", "http://example.com/login", "phishing", 0.62, result)
	if err != nil {
		t.Fatalf("SaveScan: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("expected generated scan id")
	}

	got, err := store.GetScan(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if got.URL != "HTTP://Example.com/login" || got.CanonicalURL != "http://example.com/login" {
		t.Fatalf("scan urls round-tripped wrong: %+v", got)
	}
	if got.Verdict != "phishing" || got.CombinedScore != 0.62 {
		t.Fatalf("scan verdict round-tripped wrong: %+v", got)
	}

	var decoded map[string]any
	if err := json.Unmarshal(got.Result, &decoded); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if decoded["label"] != "phishing" {
		t.Fatalf("result JSON lost fields: %v", decoded)
	}
}

func TestStore_GetScanNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetScan(context.Background(), "no-such-id")
	if !errors.Is(err, history.ErrScanNotFound) {
		t.Fatalf("expected ErrScanNotFound, got %v", err)
	}
}

func TestStore_ListScans(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"http://a.test", "http://b.test", "http://c.test"} {
		if _, err := store.SaveScan(ctx, "", u, u, "legitimate", 0.1, nil); err != nil {
			t.Fatalf("SaveScan(%s): %v", u, err)
		}
	}

	all, err := store.ListScans(ctx, 0)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 scans, got %d", len(all))
	}

	limited, err := store.ListScans(ctx, 2)
	if err != nil {
		t.Fatalf("ListScans limit: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 scans with limit, got %d", len(limited))
	}
}
