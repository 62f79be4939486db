// Package feed owns the threat-feed index: a point-in-time snapshot mapping
// canonical URLs to feed entries, built from two prioritized sources,
// refreshed on a TTL and queried by exact canonical equality.
package feed

import (
	"time"

	"github.com/snbhakti11/PhishScan/internal/urlutil"
)

// SourceName identifies which feed an entry came from.
type SourceName string

const (
	// SourcePrimary is the structured feed (PhishTank-shaped JSON entries).
	// On a merge conflict its entry wins.
	SourcePrimary SourceName = "primary"
	// SourceSecondary is the flat URL list (OpenPhish-shaped text feed).
	SourceSecondary SourceName = "secondary"
)

// Entry is one indexed threat-feed record. Immutable after creation.
type Entry struct {
	Source   SourceName           `json:"source"`
	URL      urlutil.CanonicalURL `json:"url"`
	Metadata map[string]any       `json:"metadata,omitempty"`
}

// Index is an immutable snapshot of the merged feeds. A refresh never
// mutates an existing Index; it produces a new one that the cache swaps in
// atomically, so an Index may be read concurrently without locking.
type Index struct {
	entries map[string]Entry // keyed by canonical URL string
	builtAt time.Time
	ttl     time.Duration
}

// NewIndex wraps an already-merged entry map. The map must not be mutated
// after being handed over.
func NewIndex(entries map[string]Entry, builtAt time.Time, ttl time.Duration) *Index {
	if entries == nil {
		entries = map[string]Entry{}
	}
	return &Index{entries: entries, builtAt: builtAt, ttl: ttl}
}

// Lookup canonicalizes raw and checks exact canonical-form equality against
// the index keys. No partial or substring matching.
func (ix *Index) Lookup(raw string) (Entry, bool) {
	e, ok := ix.entries[urlutil.Canonicalize(raw).String()]
	return e, ok
}

// IsStale reports whether the snapshot has outlived its TTL at time now.
func (ix *Index) IsStale(now time.Time) bool {
	return now.Sub(ix.builtAt) > ix.ttl
}

// BuiltAt returns the snapshot's build time.
func (ix *Index) BuiltAt() time.Time { return ix.builtAt }

// TTL returns the snapshot's time-to-live.
func (ix *Index) TTL() time.Duration { return ix.ttl }

// Len returns the number of indexed entries.
func (ix *Index) Len() int { return len(ix.entries) }
