// Offline demo: runs the scoring pipeline against a few sample URLs with an
// in-process blocklist, no network access required.
package main

import (
	"context"
	"fmt"

	"github.com/snbhakti11/PhishScan/internal/feed"
	"github.com/snbhakti11/PhishScan/internal/interfaces"
	"github.com/snbhakti11/PhishScan/internal/mlmodel"
	"github.com/snbhakti11/PhishScan/internal/scanner"
	"github.com/snbhakti11/PhishScan/internal/scoring"
)

type staticFeed struct{ urls []string }

func (f *staticFeed) FetchEntries(ctx context.Context) ([]feed.RawEntry, error) {
	entries := make([]feed.RawEntry, 0, len(f.urls))
	for _, u := range f.urls {
		entries = append(entries, feed.RawEntry{URL: u})
	}
	return entries, nil
}

func main() {
	logger := interfaces.NewTestLogger(false)

	blocklist := &staticFeed{urls: []string{
		"http://paypal-verify.example.net/login",
	}}
	cache := feed.NewCache(feed.DefaultCacheConfig(), blocklist, nil, logger)

	sc := scanner.NewScanner(cache, nil, nil, mlmodel.NewDefaultModel(), scoring.NewConfig(), logger)

	samples := []string{
		"http://example.com/about",
		"http://paypal-verify.example.net/login",
		"http://192.168.1.10/secure/account/verify?login=1",
	}

	ctx := context.Background()
	for _, u := range samples {
		res := sc.Scan(ctx, u, nil)
		fmt.Printf("%s\n", res.CanonicalURL)
		fmt.Printf("  heuristic score: %d (%s)\n", res.Heuristics.Score, res.Heuristics.Verdict)
		for _, o := range res.Heuristics.Outcomes {
			if o.Triggered {
				fmt.Printf("    - %s: %s\n", o.RuleID, o.Explanation)
			}
		}
		if res.FeedHit {
			fmt.Printf("  blocklist hit (%s)\n", res.FeedSource)
		}
		fmt.Printf("  model score: %.3f\n", res.ModelScore)
		fmt.Printf("  combined: %.3f -> %s\n\n", res.Verdict.CombinedScore, res.Verdict.Label)
	}
}
