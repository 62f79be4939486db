package urlutil

import (
	"net/url"
	"strings"
)

// DefaultScheme is assumed for inputs that carry no scheme of their own.
const DefaultScheme = "http"

// CanonicalURL is the structurally normalized form of a URL used for equality
// comparisons across the rule engine and the feed index. Two canonical URLs
// are equal iff all four fields are equal as strings; no percent-decoding is
// applied here (keyword matching decodes separately in the rule engine).
type CanonicalURL struct {
	Scheme string `json:"scheme"`
	Host   string `json:"host"` // lowercased authority, credentials retained
	Path   string `json:"path"` // no trailing slash, "" for root
	Query  string `json:"query,omitempty"`
}

// Canonicalize normalizes raw into its canonical form. It is a total
// function: unparseable input degrades to a best-effort split, never an
// error. Canonicalizing the String() of a canonical form yields the same
// value.
func Canonicalize(raw string) CanonicalURL {
	raw = strings.TrimSpace(raw)
	if raw != "" && !strings.Contains(raw, "://") {
		raw = DefaultScheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return splitFallback(raw)
	}

	authority := u.Host
	if u.User != nil {
		authority = u.User.String() + "@" + authority
	}

	return CanonicalURL{
		Scheme: strings.ToLower(u.Scheme),
		Host:   strings.ToLower(authority),
		Path:   trimTrailingSlash(u.EscapedPath()),
		Query:  u.RawQuery,
	}
}

// splitFallback approximates canonicalization for input net/url rejects.
// It splits on the first occurrence of each delimiter, in URL order.
func splitFallback(raw string) CanonicalURL {
	raw, _, _ = strings.Cut(raw, "#")

	scheme := DefaultScheme
	rest := raw
	if s, r, ok := strings.Cut(raw, "://"); ok {
		scheme = strings.ToLower(s)
		rest = r
	}

	rest, query, _ := strings.Cut(rest, "?")

	authority := rest
	path := ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		authority = rest[:i]
		path = rest[i:]
	}

	return CanonicalURL{
		Scheme: scheme,
		Host:   strings.ToLower(authority),
		Path:   trimTrailingSlash(path),
		Query:  query,
	}
}

func trimTrailingSlash(p string) string {
	return strings.TrimRight(p, "/")
}

// String renders the canonical form. Root paths render with no trailing
// slash; the query is appended with '?' only when non-empty.
func (c CanonicalURL) String() string {
	var b strings.Builder
	b.WriteString(c.Scheme)
	b.WriteString("://")
	b.WriteString(c.Host)
	b.WriteString(c.Path)
	if c.Query != "" {
		b.WriteByte('?')
		b.WriteString(c.Query)
	}
	return b.String()
}

// Equal reports structural equality of two canonical forms.
func (c CanonicalURL) Equal(o CanonicalURL) bool {
	return c == o
}

// HostOnly strips credentials and a port from an authority string, leaving
// the bare host for comparisons and collaborator calls.
func HostOnly(authority string) string {
	if i := strings.IndexByte(authority, '@'); i >= 0 {
		authority = authority[i+1:]
	}
	// IPv6 literals keep their brackets; only a trailing :port is removed.
	if strings.HasPrefix(authority, "[") {
		if i := strings.LastIndexByte(authority, ']'); i >= 0 {
			return authority[:i+1]
		}
		return authority
	}
	if i := strings.IndexByte(authority, ':'); i >= 0 {
		authority = authority[:i]
	}
	return authority
}
