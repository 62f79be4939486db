// Package sslcheck derives a 0..1 risk signal from the TLS certificate a
// domain presents. It is best-effort: an unreachable host or failed
// handshake degrades to a conservative report instead of an error, so the
// scoring pipeline never stalls on a dead site.
package sslcheck

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"time"

	"github.com/snbhakti11/PhishScan/internal/interfaces"
	"github.com/snbhakti11/PhishScan/internal/logging"
)

// Risk contributions per observed certificate issue.
const (
	riskUnreachable  = 0.5
	riskExpired      = 0.4
	riskSelfSigned   = 0.3
	riskCNMismatch   = 0.3
	riskExpiringSoon = 0.2
	expiringSoonDays = 15
)

type Config struct {
	Timeout time.Duration
	Port    string
}

func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second, Port: "443"}
}

// Checker performs the TLS handshake and inspects the presented leaf
// certificate. Verification is done manually after an insecure handshake so
// a broken chain still yields an inspectable report.
type Checker struct {
	cfg    Config
	logger logging.Logger
}

var _ interfaces.SSLChecker = (*Checker)(nil)

func NewChecker(cfg Config, logger logging.Logger) *Checker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Port == "" {
		cfg.Port = DefaultConfig().Port
	}
	return &Checker{
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "sslcheck"}),
	}
}

func (c *Checker) Check(ctx context.Context, domain string) (*interfaces.SSLReport, error) {
	report := &interfaces.SSLReport{Domain: domain}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: c.cfg.Timeout},
		Config: &tls.Config{
			ServerName: domain,
			// Handshake first, verify manually below: a broken chain must
			// still produce an inspectable certificate.
			InsecureSkipVerify: true,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(domain, c.cfg.Port))
	if err != nil {
		c.logger.Debug("tls dial failed",
			logging.Field{Key: "domain", Value: domain},
			logging.Field{Key: "error", Value: err.Error()})
		report.Risk = riskUnreachable
		report.Summary = "tls_unreachable"
		return report, nil
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		report.Risk = riskUnreachable
		report.Summary = "no_certificate"
		return report, nil
	}

	cert := state.PeerCertificates[0]
	now := time.Now()

	report.ExpiryDays = int(cert.NotAfter.Sub(now).Hours() / 24)
	report.Expired = now.After(cert.NotAfter) || now.Before(cert.NotBefore)
	report.SelfSigned = isSelfSigned(cert, state.PeerCertificates)
	report.CNMismatch = cert.VerifyHostname(domain) != nil

	risk := 0.0
	switch {
	case report.Expired:
		risk += riskExpired
	case report.ExpiryDays >= 0 && report.ExpiryDays < expiringSoonDays:
		risk += riskExpiringSoon
	}
	if report.SelfSigned {
		risk += riskSelfSigned
	}
	if report.CNMismatch {
		risk += riskCNMismatch
	}
	if risk > 1 {
		risk = 1
	}
	report.Risk = risk

	if risk == 0 {
		report.Summary = "certificate_ok"
	} else {
		report.Summary = "certificate_issues"
	}
	return report, nil
}

// isSelfSigned reports whether the leaf is its own issuer with no usable
// chain behind it.
func isSelfSigned(cert *x509.Certificate, chain []*x509.Certificate) bool {
	if len(chain) > 1 {
		return false
	}
	if cert.Subject.String() != cert.Issuer.String() {
		return false
	}
	return cert.CheckSignatureFrom(cert) == nil
}
