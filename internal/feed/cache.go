package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snbhakti11/PhishScan/internal/logging"
)

// CacheConfig controls the refresh policy of the index holder.
type CacheConfig struct {
	// TTL is the maximum snapshot age before a rebuild is attempted.
	TTL time.Duration

	// RebuildTimeout bounds the network I/O of a single rebuild so a slow
	// feed source cannot stall lookups indefinitely.
	RebuildTimeout time.Duration

	// SnapshotPath, when non-empty, is a JSON file the cache hydrates from
	// at start and persists to after successful rebuilds.
	SnapshotPath string
}

// DefaultCacheConfig mirrors the deployed feed refresh cadence.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:            24 * time.Hour,
		RebuildTimeout: 30 * time.Second,
	}
}

// Cache holds the current *Index and refreshes it on staleness. Readers
// always observe either the fully-old or the fully-new snapshot: the
// reference is swapped atomically, never mutated in place. A rebuild runs at
// most once at a time; while one is in flight other callers keep serving the
// previous snapshot instead of blocking. A failed or timed-out rebuild keeps
// the previous snapshot in place.
type Cache struct {
	cfg       CacheConfig
	primary   PrimarySource
	secondary SecondarySource
	logger    logging.Logger

	current   atomic.Pointer[Index]
	rebuildMu sync.Mutex
}

// NewCache creates the holder and, when a snapshot path is configured,
// hydrates from disk so a restart does not force an immediate network fetch.
func NewCache(cfg CacheConfig, primary PrimarySource, secondary SecondarySource, logger logging.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheConfig().TTL
	}
	if cfg.RebuildTimeout <= 0 {
		cfg.RebuildTimeout = DefaultCacheConfig().RebuildTimeout
	}

	c := &Cache{
		cfg:       cfg,
		primary:   primary,
		secondary: secondary,
		logger:    logger.With(logging.Field{Key: "component", Value: "feed-cache"}),
	}

	if cfg.SnapshotPath != "" {
		if ix, err := readSnapshot(cfg.SnapshotPath, cfg.TTL); err != nil {
			c.logger.Warn("feed snapshot not hydrated",
				logging.Field{Key: "path", Value: cfg.SnapshotPath},
				logging.Field{Key: "error", Value: err.Error()})
		} else if !ix.IsStale(time.Now()) {
			c.current.Store(ix)
			c.logger.Info("feed index hydrated from snapshot",
				logging.Field{Key: "entries", Value: ix.Len()},
				logging.Field{Key: "built_at", Value: ix.BuiltAt()})
		}
	}

	return c
}

// Current returns the currently held snapshot, which may be nil before the
// first successful build.
func (c *Cache) Current() *Index {
	return c.current.Load()
}

// Lookup serves a membership query, refreshing first when the snapshot is
// stale. On rebuild failure the old (stale) snapshot keeps serving; with no
// snapshot at all the lookup degrades to a miss.
func (c *Cache) Lookup(ctx context.Context, raw string) (Entry, bool) {
	ix := c.ensureFresh(ctx)
	if ix == nil {
		return Entry{}, false
	}
	return ix.Lookup(raw)
}

func (c *Cache) ensureFresh(ctx context.Context) *Index {
	now := time.Now()
	if ix := c.current.Load(); ix != nil && !ix.IsStale(now) {
		return ix
	}

	// Only one rebuild at a time; everyone else keeps the old snapshot.
	if c.rebuildMu.TryLock() {
		defer c.rebuildMu.Unlock()
		if ix := c.current.Load(); ix != nil && !ix.IsStale(time.Now()) {
			return ix
		}
		if err := c.rebuild(ctx); err != nil {
			c.logger.Warn("feed rebuild failed, serving previous snapshot",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}
	return c.current.Load()
}

// Refresh forces a rebuild, waiting for any in-flight one to finish first.
// On success the new snapshot is swapped in; on total source failure the
// previous snapshot is retained and the error returned.
func (c *Cache) Refresh(ctx context.Context) error {
	c.rebuildMu.Lock()
	defer c.rebuildMu.Unlock()
	return c.rebuild(ctx)
}

// rebuild must be called with rebuildMu held.
func (c *Cache) rebuild(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RebuildTimeout)
	defer cancel()

	ix, err := Build(ctx, c.primary, c.secondary, c.cfg.TTL, c.logger)
	if err != nil {
		return fmt.Errorf("rebuild feed index: %w", err)
	}

	c.current.Store(ix)

	if c.cfg.SnapshotPath != "" {
		if werr := writeSnapshot(c.cfg.SnapshotPath, ix); werr != nil {
			c.logger.Warn("feed snapshot not persisted",
				logging.Field{Key: "path", Value: c.cfg.SnapshotPath},
				logging.Field{Key: "error", Value: werr.Error()})
		}
	}
	return nil
}
