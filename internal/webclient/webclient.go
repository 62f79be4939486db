// Package webclient is the outbound HTTP surface shared by the feed sources
// and the HTML scanner. It wraps net/http with context awareness, a size cap
// on response bodies, and component-scoped logging.
package webclient

import (
	"context"
	"time"
)

// Request describes one outbound HTTP request.
type Request struct {
	Method  string
	URL     string
	Headers map[string][]string
	Body    []byte
}

// Response is the fetched result. Body is fully read (up to the size cap)
// before the response is returned.
type Response struct {
	Request    *Request
	StatusCode int
	Headers    map[string][]string
	Body       []byte
	Truncated  bool
	FetchedAt  time.Time
}

// WebClient executes requests. Implementations must honor ctx cancellation
// and never return a body larger than the configured cap.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	Get(ctx context.Context, url string) (*Response, error)
	Close() error
}

// Config holds client-level settings.
type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// DefaultConfig returns settings suitable for scanning untrusted sites.
func DefaultConfig() Config {
	return Config{
		Timeout:      15 * time.Second,
		MaxBodyBytes: 1 << 20, // 1 MiB
		UserAgent:    "PhishScan/1.0 (+https://github.com/snbhakti11/PhishScan)",
	}
}
