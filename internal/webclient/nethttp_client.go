package webclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/snbhakti11/PhishScan/internal/logging"
)

// net/http backed implementation of webclient.
type NetHTTPClient struct {
	cfg    Config
	client *http.Client
	logger logging.Logger
}

func NewNetHTTPClient(cfg Config, logger logging.Logger, httpClient *http.Client) *NetHTTPClient {
	componentLogger := logger.With(logging.Field{Key: "component", Value: "webclient"})

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	componentLogger.Info("created nethttp webclient",
		logging.Field{Key: "timeout", Value: cfg.Timeout.String()},
		logging.Field{Key: "max_body_bytes", Value: cfg.MaxBodyBytes})

	return &NetHTTPClient{
		cfg:    cfg,
		client: httpClient,
		logger: componentLogger,
	}
}

// Do executes the request and reads at most cfg.MaxBodyBytes of the body.
func (nhc *NetHTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	nhc.logger.Debug("sending http request",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "url", Value: req.URL})

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if nhc.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", nhc.cfg.UserAgent)
	}
	if req.Headers != nil {
		for k, vs := range req.Headers {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}
	}

	resp, err := nhc.client.Do(httpReq)
	if err != nil {
		nhc.logger.Warn("http request failed",
			logging.Field{Key: "method", Value: method},
			logging.Field{Key: "url", Value: req.URL},
			logging.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	// Read one byte past the cap so truncation is detectable.
	limited := io.LimitReader(resp.Body, nhc.cfg.MaxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		nhc.logger.Warn("failed to read response body",
			logging.Field{Key: "url", Value: req.URL},
			logging.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("read body: %w", err)
	}

	truncated := int64(len(body)) > nhc.cfg.MaxBodyBytes
	if truncated {
		body = body[:nhc.cfg.MaxBodyBytes]
	}

	return &Response{
		Request:    req,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		Truncated:  truncated,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

// Get is a convenience wrapper for simple GET fetches.
func (nhc *NetHTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	return nhc.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}

// Close releases resources (net/http needs none).
func (nhc *NetHTTPClient) Close() error { return nil }
