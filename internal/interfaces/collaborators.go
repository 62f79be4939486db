package interfaces

import "context"

// The scanner composes its final verdict from narrow collaborator contracts.
// Each collaborator produces a pre-normalized 0..1 risk signal; the scoring
// core consumes the signal and never re-derives it from raw collaborator data.

// SSLReport summarizes a TLS/domain inspection for a single host.
type SSLReport struct {
	Domain     string  `json:"domain"`
	Risk       float64 `json:"risk"` // 0..1
	ExpiryDays int     `json:"expiry_days"`
	Expired    bool    `json:"expired"`
	SelfSigned bool    `json:"self_signed"`
	CNMismatch bool    `json:"cn_mismatch"`
	Summary    string  `json:"summary"`
}

// SSLChecker inspects the certificate presented by a domain.
// Implementations must be best-effort: an unreachable host degrades to a
// conservative report, not an error, unless the input itself is unusable.
type SSLChecker interface {
	Check(ctx context.Context, domain string) (*SSLReport, error)
}

// HTMLReport summarizes credential-harvesting indicators found on a page.
type HTMLReport struct {
	Fetched          bool     `json:"fetched"`
	StatusCode       int      `json:"status_code,omitempty"`
	FormCount        int      `json:"form_count"`
	LoginFormPresent bool     `json:"login_form_present"`
	Risk             float64  `json:"risk"` // 0..1
	Findings         []string `json:"findings,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// HTMLScanner fetches and inspects page HTML for login/credential forms.
type HTMLScanner interface {
	Scan(ctx context.Context, url string) (*HTMLReport, error)
}

// ProbabilityModel maps a named feature vector to a phishing probability
// in [0,1]. Implementations do not train; they only serve.
type ProbabilityModel interface {
	Predict(features map[string]float64) float64
}
