// Package scoring fuses pre-normalized 0..1 risk signals into one bounded
// combined score and a binary verdict under runtime-mutable configuration.
package scoring

// Label is the final binary classification of a scan.
type Label string

const (
	LabelLegitimate Label = "legitimate"
	LabelPhishing   Label = "phishing"
)

// Strategy is a named weighting function over a signal bundle. Both
// strategies the upstream callers use are exposed here; callers pick one
// rather than the aggregator guessing.
type Strategy interface {
	Name() string
	Combine(s SignalBundle, cfg Snapshot) float64
}

// TwoSignal combines the ML probability with the normalized heuristic score
// under the runtime-configurable ml/heuristic weights. The weights need not
// sum to 1; the result is clamped.
type TwoSignal struct{}

func (TwoSignal) Name() string { return "two_signal" }

func (TwoSignal) Combine(s SignalBundle, cfg Snapshot) float64 {
	return clamp01(cfg.Weights[WeightML]*s.MLProbability + cfg.Weights[WeightHeuristic]*s.Heuristic)
}

// FiveSignal combines all five signals with fixed coefficients that sum
// to 1.0 by construction.
type FiveSignal struct{}

func (FiveSignal) Name() string { return "five_signal" }

func (FiveSignal) Combine(s SignalBundle, cfg Snapshot) float64 {
	feed := 0.0
	if s.FeedHit {
		feed = 1.0
	}
	return clamp01(0.30*s.Heuristic +
		0.15*s.SSLRisk +
		0.15*s.HTMLRisk +
		0.20*s.MLProbability +
		0.20*feed)
}

// Verdict is the outcome of one aggregation: the combined score, the label
// derived from the threshold, the contributing signals after clamping, and
// the configuration snapshot the decision was made under.
type Verdict struct {
	CombinedScore float64      `json:"combined_score"`
	Label         Label        `json:"label"`
	Strategy      string       `json:"strategy"`
	Contributing  SignalBundle `json:"contributing"`
	Config        Snapshot     `json:"config"`
}

// Aggregate fuses the bundle under cfg using the given strategy. It is
// total: out-of-range signals are clamped, never rejected, and the label is
// phishing exactly when the combined score reaches the threshold.
func Aggregate(signals SignalBundle, cfg *Config, strategy Strategy) Verdict {
	snap := cfg.Snapshot()
	clamped := signals.Clamped()
	combined := clamp01(strategy.Combine(clamped, snap))

	label := LabelLegitimate
	if combined >= snap.Threshold {
		label = LabelPhishing
	}

	return Verdict{
		CombinedScore: combined,
		Label:         label,
		Strategy:      strategy.Name(),
		Contributing:  clamped,
		Config:        snap,
	}
}
