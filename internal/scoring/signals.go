package scoring

// SignalBundle carries the heterogeneous 0..1 risk signals that feed one
// verdict. Producers normalize before handing signals over; the aggregator
// only clamps, it never rescales.
type SignalBundle struct {
	Heuristic     float64 `json:"heuristic"`
	FeedHit       bool    `json:"feed_hit"`
	SSLRisk       float64 `json:"ssl_risk"`
	HTMLRisk      float64 `json:"html_risk"`
	MLProbability float64 `json:"ml_probability"`
}

// Clamped returns a copy with every numeric signal forced into [0,1].
// Out-of-range producer output is tolerated silently per the error contract.
func (s SignalBundle) Clamped() SignalBundle {
	s.Heuristic = clamp01(s.Heuristic)
	s.SSLRisk = clamp01(s.SSLRisk)
	s.HTMLRisk = clamp01(s.HTMLRisk)
	s.MLProbability = clamp01(s.MLProbability)
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
