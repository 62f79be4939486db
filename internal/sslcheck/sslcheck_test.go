package sslcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/snbhakti11/PhishScan/internal/interfaces"
)

func TestCheckUnreachableDegrades(t *testing.T) {
	c := NewChecker(Config{Timeout: 200 * time.Millisecond, Port: "1"}, interfaces.NewTestLogger(false))

	report, err := c.Check(context.Background(), "127.0.0.1")
	if err != nil {
		t.Fatalf("unreachable host must not error: %v", err)
	}
	if report.Risk != riskUnreachable {
		t.Fatalf("risk = %v, want conservative %v", report.Risk, riskUnreachable)
	}
	if report.Summary != "tls_unreachable" {
		t.Fatalf("summary = %q", report.Summary)
	}
}

func TestCheckSelfSignedCertificate(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}

	c := NewChecker(Config{Timeout: 2 * time.Second, Port: u.Port()}, interfaces.NewTestLogger(false))
	report, err := c.Check(context.Background(), u.Hostname())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if !report.SelfSigned {
		t.Fatalf("test server certificate not flagged self-signed: %+v", report)
	}
	if report.Risk <= 0 || report.Risk > 1 {
		t.Fatalf("risk = %v, want in (0,1]", report.Risk)
	}
	if report.Expired {
		t.Fatalf("fresh test certificate flagged expired")
	}
}
