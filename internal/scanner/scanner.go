// Package scanner runs the full scan pipeline: heuristics, feed lookup,
// TLS and page inspection, model prediction, then score aggregation. Each
// collaborator is optional and best-effort; a failed or missing stage
// contributes a zero signal instead of failing the scan.
package scanner

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/snbhakti11/PhishScan/internal/feed"
	"github.com/snbhakti11/PhishScan/internal/heuristics"
	"github.com/snbhakti11/PhishScan/internal/interfaces"
	"github.com/snbhakti11/PhishScan/internal/logging"
	"github.com/snbhakti11/PhishScan/internal/mlmodel"
	"github.com/snbhakti11/PhishScan/internal/scoring"
	"github.com/snbhakti11/PhishScan/internal/urlutil"
)

type Stage string

const (
	StageHeuristics Stage = "heuristics"
	StageFeed       Stage = "feed"
	StageSSL        Stage = "ssl"
	StageHTML       Stage = "html"
	StageModel      Stage = "model"
	StageAggregate  Stage = "aggregate"
)

type StageStatus string

const (
	StageRunning  StageStatus = "running"
	StageDone     StageStatus = "done"
	StageSkipped  StageStatus = "skipped"
	StageDegraded StageStatus = "degraded"
)

// StageEvent reports pipeline progress. Scan emits one running and one
// terminal event per stage, in pipeline order.
type StageEvent struct {
	ScanID string      `json:"scan_id"`
	Stage  Stage       `json:"stage"`
	Status StageStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// EventFunc receives stage events during a scan. Implementations must not
// block; the pipeline calls it inline.
type EventFunc func(StageEvent)

// Result is the full output of one scan.
type Result struct {
	ScanID       string `json:"scan_id"`
	URL          string `json:"url"`
	CanonicalURL string `json:"canonical_url"`

	Heuristics heuristics.Report      `json:"heuristics"`
	FeedHit    bool                   `json:"feed_hit"`
	FeedSource string                 `json:"feed_source,omitempty"`
	SSL        *interfaces.SSLReport  `json:"ssl,omitempty"`
	HTML       *interfaces.HTMLReport `json:"html,omitempty"`
	ModelScore float64                `json:"model_score"`

	Verdict   scoring.Verdict `json:"verdict"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
}

// Prediction is the lightweight two-signal output: heuristics plus model,
// no network stages.
type Prediction struct {
	URL            string          `json:"url"`
	CanonicalURL   string          `json:"canonical_url"`
	HeuristicScore int             `json:"heuristic_score"`
	ModelScore     float64         `json:"model_score"`
	Verdict        scoring.Verdict `json:"verdict"`
}

// Scanner ties the collaborators together. Feed, ssl, html and model may
// each be nil; the corresponding stage is then skipped and its signal is
// zero.
type Scanner struct {
	feed   *feed.Cache
	ssl    interfaces.SSLChecker
	html   interfaces.HTMLScanner
	model  interfaces.ProbabilityModel
	cfg    *scoring.Config
	logger logging.Logger
}

func NewScanner(feedCache *feed.Cache, ssl interfaces.SSLChecker, html interfaces.HTMLScanner, model interfaces.ProbabilityModel, cfg *scoring.Config, logger logging.Logger) *Scanner {
	if cfg == nil {
		cfg = scoring.NewConfig()
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("scanner")
	}
	return &Scanner{
		feed:   feedCache,
		ssl:    ssl,
		html:   html,
		model:  model,
		cfg:    cfg,
		logger: logger,
	}
}

// ScoringConfig exposes the live scoring configuration for runtime reads
// and updates.
func (s *Scanner) ScoringConfig() *scoring.Config { return s.cfg }

// Scan runs every stage against raw and aggregates with the five-signal
// strategy. emit may be nil.
func (s *Scanner) Scan(ctx context.Context, raw string, emit EventFunc) *Result {
	started := time.Now().UTC()
	canon := urlutil.Canonicalize(raw)
	res := &Result{
		ScanID:       uuid.New().String(),
		URL:          raw,
		CanonicalURL: canon.String(),
		StartedAt:    started,
	}
	send := func(stage Stage, status StageStatus, detail string) {
		if emit != nil {
			emit(StageEvent{ScanID: res.ScanID, Stage: stage, Status: status, Detail: detail})
		}
	}

	var signals scoring.SignalBundle

	send(StageHeuristics, StageRunning, "")
	res.Heuristics = heuristics.Evaluate(raw)
	signals.Heuristic = float64(res.Heuristics.Score) / 100.0
	send(StageHeuristics, StageDone, string(res.Heuristics.Verdict))

	if s.feed != nil {
		send(StageFeed, StageRunning, "")
		if entry, ok := s.feed.Lookup(ctx, raw); ok {
			res.FeedHit = true
			res.FeedSource = string(entry.Source)
			signals.FeedHit = true
			send(StageFeed, StageDone, "hit:"+res.FeedSource)
		} else {
			send(StageFeed, StageDone, "miss")
		}
	} else {
		send(StageFeed, StageSkipped, "")
	}

	host := urlutil.HostOnly(canon.Host)
	if s.ssl != nil && host != "" {
		send(StageSSL, StageRunning, "")
		report, err := s.ssl.Check(ctx, host)
		if err != nil || report == nil {
			s.warn("ssl check failed", raw, err)
			send(StageSSL, StageDegraded, errDetail(err))
		} else {
			res.SSL = report
			signals.SSLRisk = report.Risk
			send(StageSSL, StageDone, report.Summary)
		}
	} else {
		send(StageSSL, StageSkipped, "")
	}

	if s.html != nil {
		send(StageHTML, StageRunning, "")
		report, err := s.html.Scan(ctx, res.CanonicalURL)
		if err != nil || report == nil {
			s.warn("html scan failed", raw, err)
			send(StageHTML, StageDegraded, errDetail(err))
		} else {
			res.HTML = report
			signals.HTMLRisk = report.Risk
			send(StageHTML, StageDone, "")
		}
	} else {
		send(StageHTML, StageSkipped, "")
	}

	if s.model != nil {
		send(StageModel, StageRunning, "")
		res.ModelScore = s.model.Predict(mlmodel.ExtractFeatures(raw))
		signals.MLProbability = res.ModelScore
		send(StageModel, StageDone, "")
	} else {
		send(StageModel, StageSkipped, "")
	}

	send(StageAggregate, StageRunning, "")
	res.Verdict = scoring.Aggregate(signals, s.cfg, scoring.FiveSignal{})
	res.Duration = time.Since(started)
	send(StageAggregate, StageDone, string(res.Verdict.Label))

	s.logger.Info("scan complete",
		logging.Field{Key: "url", Value: res.CanonicalURL},
		logging.Field{Key: "label", Value: string(res.Verdict.Label)},
		logging.Field{Key: "combined_score", Value: res.Verdict.CombinedScore},
	)
	return res
}

// Predict runs only the offline stages and aggregates with the two-signal
// strategy.
func (s *Scanner) Predict(_ context.Context, raw string) *Prediction {
	canon := urlutil.Canonicalize(raw)
	report := heuristics.Evaluate(raw)

	signals := scoring.SignalBundle{
		Heuristic: float64(report.Score) / 100.0,
	}
	var modelScore float64
	if s.model != nil {
		modelScore = s.model.Predict(mlmodel.ExtractFeatures(raw))
		signals.MLProbability = modelScore
	}

	return &Prediction{
		URL:            raw,
		CanonicalURL:   canon.String(),
		HeuristicScore: report.Score,
		ModelScore:     modelScore,
		Verdict:        scoring.Aggregate(signals, s.cfg, scoring.TwoSignal{}),
	}
}

func (s *Scanner) warn(msg, url string, err error) {
	s.logger.Warn(msg,
		logging.Field{Key: "url", Value: url},
		logging.Field{Key: "error", Value: errDetail(err)},
	)
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
