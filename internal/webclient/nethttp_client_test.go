package webclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/snbhakti11/PhishScan/internal/interfaces"
)

func TestNetHTTPClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "PhishScan") {
			t.Errorf("missing user agent, got %q", ua)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	client := NewNetHTTPClient(DefaultConfig(), interfaces.NewTestLogger(false), nil)
	resp, err := client.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != "hello" {
		t.Fatalf("body = %q, want %q", resp.Body, "hello")
	}
	if resp.Truncated {
		t.Fatalf("small body reported truncated")
	}
}

func TestNetHTTPClientBodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 1024
	client := NewNetHTTPClient(cfg, interfaces.NewTestLogger(false), nil)

	resp, err := client.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !resp.Truncated {
		t.Fatalf("oversized body not reported truncated")
	}
	if int64(len(resp.Body)) != cfg.MaxBodyBytes {
		t.Fatalf("body length = %d, want %d", len(resp.Body), cfg.MaxBodyBytes)
	}
}

func TestNetHTTPClientContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	client := NewNetHTTPClient(DefaultConfig(), interfaces.NewTestLogger(false), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Get(ctx, srv.URL); err == nil {
		t.Fatalf("expected error from canceled context")
	}
}
