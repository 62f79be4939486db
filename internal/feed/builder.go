package feed

import (
	"context"
	"errors"
	"time"

	"github.com/snbhakti11/PhishScan/internal/logging"
	"github.com/snbhakti11/PhishScan/internal/urlutil"
)

// Build fetches both sources, canonicalizes every URL and merges with
// primary-wins priority: a secondary entry is inserted only when its
// canonical URL is absent from the primary set. A failing source contributes
// zero entries and the merge proceeds with whatever was obtained; an Index
// is always returned. The error is non-nil only when every configured source
// failed, so callers can distinguish a total failure from a degraded build.
func Build(ctx context.Context, primary PrimarySource, secondary SecondarySource, ttl time.Duration, logger logging.Logger) (*Index, error) {
	entries := map[string]Entry{}
	var primaryErr, secondaryErr error

	if primary != nil {
		raw, err := primary.FetchEntries(ctx)
		if err != nil {
			primaryErr = err
			logger.Warn("primary feed unavailable, building without it",
				logging.Field{Key: "error", Value: err.Error()})
		}
		for _, r := range raw {
			canon := urlutil.Canonicalize(r.URL)
			entries[canon.String()] = Entry{
				Source:   SourcePrimary,
				URL:      canon,
				Metadata: r.Metadata,
			}
		}
	}

	if secondary != nil {
		urls, err := secondary.FetchURLs(ctx)
		if err != nil {
			secondaryErr = err
			logger.Warn("secondary feed unavailable, building without it",
				logging.Field{Key: "error", Value: err.Error()})
		}
		for _, u := range urls {
			canon := urlutil.Canonicalize(u)
			key := canon.String()
			if _, exists := entries[key]; exists {
				// primary wins on conflict
				continue
			}
			entries[key] = Entry{
				Source:   SourceSecondary,
				URL:      canon,
				Metadata: map[string]any{"url": u},
			}
		}
	}

	logger.Info("feed index built",
		logging.Field{Key: "entries", Value: len(entries)},
		logging.Field{Key: "ttl", Value: ttl.String()})

	ix := NewIndex(entries, time.Now().UTC(), ttl)

	configured, failed := 0, 0
	if primary != nil {
		configured++
		if primaryErr != nil {
			failed++
		}
	}
	if secondary != nil {
		configured++
		if secondaryErr != nil {
			failed++
		}
	}
	if configured > 0 && failed == configured {
		return ix, errors.Join(primaryErr, secondaryErr)
	}
	return ix, nil
}
