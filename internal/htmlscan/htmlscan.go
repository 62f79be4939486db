// Package htmlscan fetches page HTML and looks for credential-harvesting
// indicators: login forms, cross-origin form actions, hidden inputs next to
// password fields. The boolean login-form presence maps to a 1.0/0.0 risk
// signal for the aggregator.
package htmlscan

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/snbhakti11/PhishScan/internal/interfaces"
	"github.com/snbhakti11/PhishScan/internal/logging"
	"github.com/snbhakti11/PhishScan/internal/webclient"
)

const manyScriptsThreshold = 10

var tokenLikeNames = []string{"token", "auth", "session", "csrf"}

type Scanner struct {
	client webclient.WebClient
	logger logging.Logger
}

var _ interfaces.HTMLScanner = (*Scanner)(nil)

func NewScanner(client webclient.WebClient, logger logging.Logger) *Scanner {
	return &Scanner{
		client: client,
		logger: logger.With(logging.Field{Key: "component", Value: "htmlscan"}),
	}
}

// Scan fetches rawURL and inspects its forms. Fetch or parse failures
// degrade to an unfetched report with zero risk; Scan never returns an error
// for an unreachable or garbled page.
func (s *Scanner) Scan(ctx context.Context, rawURL string) (*interfaces.HTMLReport, error) {
	resp, err := s.client.Get(ctx, rawURL)
	if err != nil {
		s.logger.Debug("page fetch failed",
			logging.Field{Key: "url", Value: rawURL},
			logging.Field{Key: "error", Value: err.Error()})
		return &interfaces.HTMLReport{Fetched: false, Error: err.Error()}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return &interfaces.HTMLReport{
			Fetched:    true,
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("parse html: %v", err),
		}, nil
	}

	report := s.analyze(doc, rawURL)
	report.StatusCode = resp.StatusCode
	return report, nil
}

func (s *Scanner) analyze(doc *goquery.Document, pageURL string) *interfaces.HTMLReport {
	report := &interfaces.HTMLReport{Fetched: true}

	base, _ := url.Parse(pageURL)
	pageOrigin := ""
	if base != nil {
		pageOrigin = strings.ToLower(base.Host)
	}

	scripts := doc.Find("script").Length()

	doc.Find("form").Each(func(i int, form *goquery.Selection) {
		report.FormCount++

		hasPassword := false
		var hiddenInputs, tokenNames []string
		form.Find("input").Each(func(_ int, input *goquery.Selection) {
			typ := strings.ToLower(input.AttrOr("type", ""))
			name := input.AttrOr("name", "")
			if typ == "password" {
				hasPassword = true
			}
			if typ == "hidden" && name != "" {
				hiddenInputs = append(hiddenInputs, name)
			}
			lower := strings.ToLower(name)
			for _, tok := range tokenLikeNames {
				if strings.Contains(lower, tok) {
					tokenNames = append(tokenNames, name)
					break
				}
			}
		})

		if hasPassword {
			report.LoginFormPresent = true
		}

		action := form.AttrOr("action", "")
		if actionOrigin := resolveOrigin(base, action); hasPassword && actionOrigin != "" && actionOrigin != pageOrigin {
			report.Findings = append(report.Findings,
				fmt.Sprintf("form %d posts credentials to external origin %s", i, actionOrigin))
		}
		if hasPassword && len(hiddenInputs) > 0 {
			report.Findings = append(report.Findings,
				fmt.Sprintf("form %d mixes hidden inputs (%s) with a password field", i, strings.Join(hiddenInputs, ", ")))
		}
		if len(tokenNames) > 0 {
			report.Findings = append(report.Findings,
				fmt.Sprintf("form %d has token-like input names: %s", i, strings.Join(tokenNames, ", ")))
		}
	})

	if scripts > manyScriptsThreshold {
		report.Findings = append(report.Findings,
			fmt.Sprintf("page has %d scripts (>%d), possible obfuscation", scripts, manyScriptsThreshold))
	}

	if report.LoginFormPresent {
		report.Risk = 1.0
	}
	return report
}

// resolveOrigin resolves a form action against the page URL and returns the
// lowercased host it would submit to, or "" when unresolvable.
func resolveOrigin(base *url.URL, action string) string {
	if action == "" {
		return ""
	}
	ref, err := url.Parse(action)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	return strings.ToLower(ref.Host)
}
