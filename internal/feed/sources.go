package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/snbhakti11/PhishScan/internal/logging"
	"github.com/snbhakti11/PhishScan/internal/webclient"
)

// ErrorKind distinguishes "no data" failure modes so callers can tell an
// unreachable source from a malformed payload or a timed-out fetch.
type ErrorKind string

const (
	ErrorUnreachable ErrorKind = "unreachable"
	ErrorMalformed   ErrorKind = "malformed"
	ErrorTimeout     ErrorKind = "timeout"
)

// SourceError wraps a source fetch failure with its kind.
type SourceError struct {
	Source SourceName
	Kind   ErrorKind
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("feed source %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func classify(source SourceName, err error) *SourceError {
	kind := ErrorUnreachable
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrorTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = ErrorTimeout
	}
	return &SourceError{Source: source, Kind: kind, Err: err}
}

// RawEntry is one record from the primary source before canonicalization:
// a URL plus whatever metadata the feed attached.
type RawEntry struct {
	URL      string
	Metadata map[string]any
}

// PrimarySource yields structured entries.
type PrimarySource interface {
	FetchEntries(ctx context.Context) ([]RawEntry, error)
}

// SecondarySource yields bare URLs.
type SecondarySource interface {
	FetchURLs(ctx context.Context) ([]string, error)
}

// HTTPPrimarySource fetches a PhishTank-shaped JSON feed: an array of
// objects each carrying a "url" (or "phish_url") field plus arbitrary
// metadata. Some mirrors wrap the array in an object; the first array value
// found is used then.
type HTTPPrimarySource struct {
	url    string
	client webclient.WebClient
	logger logging.Logger
}

func NewHTTPPrimarySource(url string, client webclient.WebClient, logger logging.Logger) *HTTPPrimarySource {
	return &HTTPPrimarySource{
		url:    url,
		client: client,
		logger: logger.With(logging.Field{Key: "component", Value: "feed-primary"}),
	}
}

func (s *HTTPPrimarySource) FetchEntries(ctx context.Context) ([]RawEntry, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, classify(SourcePrimary, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &SourceError{
			Source: SourcePrimary,
			Kind:   ErrorUnreachable,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	records, err := decodePrimaryPayload(resp.Body)
	if err != nil {
		return nil, &SourceError{Source: SourcePrimary, Kind: ErrorMalformed, Err: err}
	}

	entries := make([]RawEntry, 0, len(records))
	for _, rec := range records {
		u := stringField(rec, "url")
		if u == "" {
			u = stringField(rec, "phish_url")
		}
		if u == "" {
			continue
		}
		entries = append(entries, RawEntry{URL: u, Metadata: rec})
	}

	s.logger.Info("primary feed fetched", logging.Field{Key: "entries", Value: len(entries)})
	return entries, nil
}

func decodePrimaryPayload(body []byte) ([]map[string]any, error) {
	var records []map[string]any
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}

	// Tolerate an object wrapper around the entry list.
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode feed payload: %w", err)
	}
	for _, v := range wrapper {
		if err := json.Unmarshal(v, &records); err == nil {
			return records, nil
		}
	}
	return nil, errors.New("no entry list found in feed payload")
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// HTTPSecondarySource fetches an OpenPhish-shaped feed: one URL per line.
type HTTPSecondarySource struct {
	url    string
	client webclient.WebClient
	logger logging.Logger
}

func NewHTTPSecondarySource(url string, client webclient.WebClient, logger logging.Logger) *HTTPSecondarySource {
	return &HTTPSecondarySource{
		url:    url,
		client: client,
		logger: logger.With(logging.Field{Key: "component", Value: "feed-secondary"}),
	}
}

func (s *HTTPSecondarySource) FetchURLs(ctx context.Context) ([]string, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, classify(SourceSecondary, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &SourceError{
			Source: SourceSecondary,
			Kind:   ErrorUnreachable,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var urls []string
	for _, line := range strings.Split(string(resp.Body), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}

	s.logger.Info("secondary feed fetched", logging.Field{Key: "urls", Value: len(urls)})
	return urls, nil
}
