package scoring

import (
	"fmt"
	"sync"
)

// Weight names accepted by Config.SetWeight.
const (
	WeightML        = "ml"
	WeightHeuristic = "heuristic"
)

// Defaults tuned from the deployed grid-search results.
const (
	DefaultThreshold       = 0.45
	DefaultWeightML        = 0.8
	DefaultWeightHeuristic = 0.2
)

// ValidationError reports a rejected configuration update. The prior value
// is always retained when one of these is returned.
type ValidationError struct {
	Field string
	Value float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scoring: %s must be in [0,1], got %v", e.Field, e.Value)
}

// Config is the process-wide aggregation configuration: weights and the
// verdict threshold. It is read on every request and mutated rarely, so a
// single RWMutex guards all fields. Never copy a Config; share the pointer.
type Config struct {
	mu        sync.RWMutex
	threshold float64
	weights   map[string]float64
}

// NewConfig returns a Config populated with the deployment defaults.
func NewConfig() *Config {
	return &Config{
		threshold: DefaultThreshold,
		weights: map[string]float64{
			WeightML:        DefaultWeightML,
			WeightHeuristic: DefaultWeightHeuristic,
		},
	}
}

// Threshold returns the current verdict threshold.
func (c *Config) Threshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.threshold
}

// SetThreshold updates the verdict threshold. Values outside [0,1] are
// rejected with a ValidationError and the prior threshold is unchanged.
func (c *Config) SetThreshold(t float64) error {
	if t < 0 || t > 1 {
		return &ValidationError{Field: "threshold", Value: t}
	}
	c.mu.Lock()
	c.threshold = t
	c.mu.Unlock()
	return nil
}

// Weight returns the weight registered under name, or 0 when absent.
func (c *Config) Weight(name string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.weights[name]
}

// SetWeight updates a named weight. Values outside [0,1] are rejected with a
// ValidationError; the weight set is never observed half-written.
func (c *Config) SetWeight(name string, w float64) error {
	if w < 0 || w > 1 {
		return &ValidationError{Field: "weight " + name, Value: w}
	}
	c.mu.Lock()
	c.weights[name] = w
	c.mu.Unlock()
	return nil
}

// Snapshot is an immutable copy of the configuration taken at verdict time,
// embedded in the verdict for auditability.
type Snapshot struct {
	Threshold float64            `json:"threshold"`
	Weights   map[string]float64 `json:"weights"`
}

// Snapshot returns a consistent point-in-time copy of the configuration.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	weights := make(map[string]float64, len(c.weights))
	for k, v := range c.weights {
		weights[k] = v
	}
	return Snapshot{Threshold: c.threshold, Weights: weights}
}
