// Package heuristics implements the lexical URL rule engine. Evaluation is
// deterministic and explainable: every rule reports the value it measured and
// the threshold it compared against, so a report can be audited without
// re-running the engine.
package heuristics

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/idna"

	"github.com/snbhakti11/PhishScan/internal/urlutil"
)

// Verdict is the engine's own binary classification, independent of the
// aggregator's runtime threshold.
type Verdict string

const (
	VerdictSafe       Verdict = "safe"
	VerdictSuspicious Verdict = "suspicious"
)

// Rule identifiers, in evaluation order.
const (
	RuleLongURL           = "long_url"
	RuleWeirdChars        = "weird_chars"
	RuleIPInDomain        = "ip_in_domain"
	RuleManySubdomains    = "many_subdomains"
	RuleSuspiciousKeyword = "suspicious_keyword"
)

// Tunable weights (0-100 scale).
const (
	weightLongURL           = 15
	weightWeirdChars        = 20
	weightIPInDomain        = 25
	weightManySubdomains    = 15
	weightSuspiciousKeyword = 20

	// suspicious_keyword contributes weightPerKeyword per distinct match,
	// capped at weightSuspiciousKeyword.
	weightPerKeyword = 10
)

const (
	maxComfortableLength = 75
	maxWeirdChars        = 5
	maxSubdomainDepth    = 3

	// suspiciousCut is the engine's internal verdict threshold on the
	// 0..100 score.
	suspiciousCut = 40
)

// Per-character thresholds for the tracked special characters.
var specialCharThresholds = []struct {
	ch  byte
	max int
}{
	{'-', 4},
	{'_', 4},
	{'@', 1},
	{'?', 2},
	{'=', 2},
	{'%', 2},
}

var suspiciousKeywords = []string{
	"login", "signin", "verify", "update", "secure", "account", "bank",
	"paypal", "password", "confirm", "ebay", "amazon", "appleid", "billing",
}

// RuleOutcome records a single rule's decision. Immutable once produced.
type RuleOutcome struct {
	RuleID       string `json:"rule_id"`
	Triggered    bool   `json:"triggered"`
	Contribution int    `json:"contribution"`
	Explanation  string `json:"explanation"`
}

// Report is the aggregate result of one evaluation.
type Report struct {
	URL      string        `json:"url"`
	Outcomes []RuleOutcome `json:"outcomes"`
	Score    int           `json:"score"` // 0..100
	Verdict  Verdict       `json:"verdict"`
}

// Evaluate runs the full rule battery against raw. It is total: malformed
// input degrades to best-effort parsing, never an error.
func Evaluate(raw string) Report {
	raw = strings.TrimSpace(raw)
	canon := urlutil.Canonicalize(raw)

	host := asciiHost(urlutil.HostOnly(canon.Host))
	full := canon.Host + canon.Path
	if canon.Query != "" {
		full += "?" + canon.Query
	}

	outcomes := []RuleOutcome{
		checkLength(raw),
		checkWeirdChars(raw, full),
		checkIPInDomain(host),
		checkSubdomainDepth(host),
		checkKeywords(full),
	}

	score := 0
	for _, o := range outcomes {
		if o.Triggered {
			score += o.Contribution
		}
	}
	score = clampScore(score)

	verdict := VerdictSafe
	if score >= suspiciousCut {
		verdict = VerdictSuspicious
	}

	return Report{URL: raw, Outcomes: outcomes, Score: score, Verdict: verdict}
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// asciiHost converts an IDN host to punycode so the structural rules see the
// same labels a resolver would. Conversion failures keep the original host.
func asciiHost(host string) string {
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		return puny
	}
	return host
}

func checkLength(raw string) RuleOutcome {
	n := len(raw)
	if n > maxComfortableLength {
		return RuleOutcome{
			RuleID:       RuleLongURL,
			Triggered:    true,
			Contribution: weightLongURL,
			Explanation:  fmt.Sprintf("URL length %d > %d", n, maxComfortableLength),
		}
	}
	return RuleOutcome{
		RuleID:      RuleLongURL,
		Explanation: fmt.Sprintf("URL length %d <= %d", n, maxComfortableLength),
	}
}

func isPlainURLChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	return strings.IndexByte("./:?&=_-", b) >= 0
}

func checkWeirdChars(raw, full string) RuleOutcome {
	weird := 0
	for i := 0; i < len(raw); i++ {
		if !isPlainURLChar(raw[i]) {
			weird++
		}
	}

	var issues []string
	if weird > maxWeirdChars {
		issues = append(issues, fmt.Sprintf("%d characters outside the expected set (>%d)", weird, maxWeirdChars))
	}
	for _, sc := range specialCharThresholds {
		if n := strings.Count(full, string(sc.ch)); n > sc.max {
			issues = append(issues, fmt.Sprintf("'%c'=%d (>%d)", sc.ch, n, sc.max))
		}
	}

	if len(issues) > 0 {
		return RuleOutcome{
			RuleID:       RuleWeirdChars,
			Triggered:    true,
			Contribution: weightWeirdChars,
			Explanation:  "too many special characters: " + strings.Join(issues, ", "),
		}
	}
	return RuleOutcome{
		RuleID:      RuleWeirdChars,
		Explanation: fmt.Sprintf("special character counts within thresholds (%d outside expected set, <=%d)", weird, maxWeirdChars),
	}
}

// checkIPInDomain triggers when the host (credentials and port already
// stripped) is a dotted-quad IPv4 address.
func checkIPInDomain(host string) RuleOutcome {
	if isDottedQuad(host) {
		return RuleOutcome{
			RuleID:       RuleIPInDomain,
			Triggered:    true,
			Contribution: weightIPInDomain,
			Explanation:  fmt.Sprintf("host %q is an IP address", host),
		}
	}
	return RuleOutcome{
		RuleID:      RuleIPInDomain,
		Explanation: fmt.Sprintf("host %q is a hostname", host),
	}
}

func isDottedQuad(host string) bool {
	parts := strings.Split(host, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if len(p) == 0 || len(p) > 3 {
			return false
		}
		n := 0
		for i := 0; i < len(p); i++ {
			if p[i] < '0' || p[i] > '9' {
				return false
			}
			n = n*10 + int(p[i]-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}

// checkSubdomainDepth counts host labels beyond a crude domain+TLD pair.
func checkSubdomainDepth(host string) RuleOutcome {
	host = strings.TrimRight(host, ".")
	depth := 0
	if host != "" {
		depth = len(strings.Split(host, ".")) - 2
		if depth < 0 {
			depth = 0
		}
	}
	if depth > maxSubdomainDepth {
		return RuleOutcome{
			RuleID:       RuleManySubdomains,
			Triggered:    true,
			Contribution: weightManySubdomains,
			Explanation:  fmt.Sprintf("host has %d subdomain parts (>%d)", depth, maxSubdomainDepth),
		}
	}
	return RuleOutcome{
		RuleID:      RuleManySubdomains,
		Explanation: fmt.Sprintf("host has %d subdomain parts (<=%d)", depth, maxSubdomainDepth),
	}
}

// checkKeywords matches the fixed keyword set against the percent-decoded,
// lowercased host+path+query. The contribution grows with the number of
// distinct matches, capped at the rule's weight.
func checkKeywords(full string) RuleOutcome {
	decoded := full
	if d, err := url.PathUnescape(full); err == nil {
		decoded = d
	}
	decoded = strings.ToLower(decoded)

	var found []string
	for _, kw := range suspiciousKeywords {
		if strings.Contains(decoded, kw) {
			found = append(found, kw)
		}
	}
	// Order by first appearance for stable, readable explanations.
	sort.Slice(found, func(i, j int) bool {
		return strings.Index(decoded, found[i]) < strings.Index(decoded, found[j])
	})

	if len(found) > 0 {
		contribution := weightPerKeyword * len(found)
		if contribution > weightSuspiciousKeyword {
			contribution = weightSuspiciousKeyword
		}
		return RuleOutcome{
			RuleID:       RuleSuspiciousKeyword,
			Triggered:    true,
			Contribution: contribution,
			Explanation:  fmt.Sprintf("suspicious keywords found: %s", strings.Join(found, ", ")),
		}
	}
	return RuleOutcome{
		RuleID:      RuleSuspiciousKeyword,
		Explanation: "no suspicious keywords found",
	}
}
