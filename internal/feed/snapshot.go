package feed

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/snbhakti11/PhishScan/internal/urlutil"
)

// On-disk snapshot layout: built_at as epoch seconds plus the merged entry
// map keyed by canonical URL string. TTL is a runtime setting, not persisted.
type snapshotFile struct {
	BuiltAt int64                   `json:"built_at"`
	Entries map[string]snapshotItem `json:"entries"`
}

type snapshotItem struct {
	Source   SourceName     `json:"source"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func writeSnapshot(path string, ix *Index) error {
	sf := snapshotFile{
		BuiltAt: ix.BuiltAt().Unix(),
		Entries: make(map[string]snapshotItem, ix.Len()),
	}
	for key, e := range ix.entries {
		sf.Entries[key] = snapshotItem{Source: e.Source, Metadata: e.Metadata}
	}

	data, err := json.Marshal(sf)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	// Write-then-rename so a crashed write never leaves a torn snapshot.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func readSnapshot(path string, ttl time.Duration) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var sf snapshotFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	entries := make(map[string]Entry, len(sf.Entries))
	for key, item := range sf.Entries {
		entries[key] = Entry{
			Source:   item.Source,
			URL:      urlutil.Canonicalize(key),
			Metadata: item.Metadata,
		}
	}
	return NewIndex(entries, time.Unix(sf.BuiltAt, 0).UTC(), ttl), nil
}
