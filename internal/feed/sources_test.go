package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/snbhakti11/PhishScan/internal/interfaces"
	"github.com/snbhakti11/PhishScan/internal/webclient"
)

func testClient() webclient.WebClient {
	return webclient.NewNetHTTPClient(webclient.DefaultConfig(), interfaces.NewTestLogger(false), nil)
}

func TestHTTPPrimarySourceParsesEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"url": "http://evil.example/login", "phish_id": "123", "verified": "yes"},
			{"phish_url": "http://bad.example/x"},
			{"target": "no url field, skipped"}
		]`))
	}))
	defer srv.Close()

	src := NewHTTPPrimarySource(srv.URL, testClient(), interfaces.NewTestLogger(false))
	entries, err := src.FetchEntries(context.Background())
	if err != nil {
		t.Fatalf("FetchEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].URL != "http://evil.example/login" {
		t.Fatalf("entry URL = %q", entries[0].URL)
	}
	if entries[0].Metadata["phish_id"] != "123" {
		t.Fatalf("metadata not retained: %+v", entries[0].Metadata)
	}
}

func TestHTTPPrimarySourceWrappedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"url": "http://evil.example/a"}]}`))
	}))
	defer srv.Close()

	src := NewHTTPPrimarySource(srv.URL, testClient(), interfaces.NewTestLogger(false))
	entries, err := src.FetchEntries(context.Background())
	if err != nil {
		t.Fatalf("FetchEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

func TestHTTPPrimarySourceMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	src := NewHTTPPrimarySource(srv.URL, testClient(), interfaces.NewTestLogger(false))
	_, err := src.FetchEntries(context.Background())

	var serr *SourceError
	if !errors.As(err, &serr) {
		t.Fatalf("error is %T, want *SourceError", err)
	}
	if serr.Kind != ErrorMalformed {
		t.Fatalf("kind = %s, want malformed", serr.Kind)
	}
}

func TestHTTPSecondarySourceParsesLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("http://a.example/1\n\n  http://b.example/2  \nhttp://c.example/3\n"))
	}))
	defer srv.Close()

	src := NewHTTPSecondarySource(srv.URL, testClient(), interfaces.NewTestLogger(false))
	urls, err := src.FetchURLs(context.Background())
	if err != nil {
		t.Fatalf("FetchURLs: %v", err)
	}
	if len(urls) != 3 {
		t.Fatalf("got %d urls, want 3", len(urls))
	}
	if urls[1] != "http://b.example/2" {
		t.Fatalf("lines not trimmed: %q", urls[1])
	}
}

func TestHTTPSourceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewHTTPSecondarySource(srv.URL, testClient(), interfaces.NewTestLogger(false))
	_, err := src.FetchURLs(context.Background())

	var serr *SourceError
	if !errors.As(err, &serr) {
		t.Fatalf("error is %T, want *SourceError", err)
	}
	if serr.Kind != ErrorUnreachable {
		t.Fatalf("kind = %s, want unreachable", serr.Kind)
	}
}

func TestHTTPSourceTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	src := NewHTTPSecondarySource(srv.URL, testClient(), interfaces.NewTestLogger(false))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := src.FetchURLs(ctx)
	var serr *SourceError
	if !errors.As(err, &serr) {
		t.Fatalf("error is %T, want *SourceError", err)
	}
	if serr.Kind != ErrorTimeout {
		t.Fatalf("kind = %s, want timeout", serr.Kind)
	}
}
