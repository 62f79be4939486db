package mlmodel

import (
	"math"
	"strings"

	"github.com/snbhakti11/PhishScan/internal/urlutil"
)

// Feature names produced by ExtractFeatures. The model only reads features
// it has a coefficient for, so producers and models can evolve separately.
const (
	FeatureURLLength       = "url_length"
	FeatureNumDots         = "num_dots"
	FeatureNumSlashes      = "num_slashes"
	FeatureNumDigits       = "num_digits"
	FeatureNumSpecialChars = "num_special_chars"
	FeatureHasIP           = "has_ip"
	FeatureEntropy         = "entropy"
	FeatureKeywordLogin    = "keyword_login"
	FeatureKeywordVerify   = "keyword_verify"
	FeatureKeywordSecure   = "keyword_secure"
)

// ExtractFeatures derives the lexical feature vector the model consumes.
// It is total; any string yields a vector.
func ExtractFeatures(raw string) map[string]float64 {
	canon := urlutil.Canonicalize(raw)
	lower := strings.ToLower(raw)

	digits, special := 0, 0
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		default:
			special++
		}
	}

	hasIP := 0.0
	if isDottedQuad(urlutil.HostOnly(canon.Host)) {
		hasIP = 1.0
	}

	return map[string]float64{
		FeatureURLLength:       float64(len(raw)),
		FeatureNumDots:         float64(strings.Count(raw, ".")),
		FeatureNumSlashes:      float64(strings.Count(raw, "/")),
		FeatureNumDigits:       float64(digits),
		FeatureNumSpecialChars: float64(special),
		FeatureHasIP:           hasIP,
		FeatureEntropy:         shannonEntropy(raw),
		FeatureKeywordLogin:    boolFeature(strings.Contains(lower, "login")),
		FeatureKeywordVerify:   boolFeature(strings.Contains(lower, "verify")),
		FeatureKeywordSecure:   boolFeature(strings.Contains(lower, "secure")),
	}
}

func boolFeature(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// shannonEntropy measures byte-level randomness, a cheap proxy for generated
// hostnames and paths.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0.0
	}
	var counts [256]int
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}
	entropy := 0.0
	n := float64(len(s))
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
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
