// Package mlmodel serves a pre-trained phishing probability model over
// lexical URL features. Training happens offline; this package only loads
// coefficients and predicts.
package mlmodel

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/snbhakti11/PhishScan/internal/interfaces"
)

// LogisticModel is a logistic regression over named features. Features
// without a coefficient are ignored; coefficients without a feature
// contribute nothing, so model and extractor versions can drift safely.
type LogisticModel struct {
	Bias         float64            `json:"bias"`
	Coefficients map[string]float64 `json:"coefficients"`
}

var _ interfaces.ProbabilityModel = (*LogisticModel)(nil)

// Predict returns the phishing probability in [0,1].
func (m *LogisticModel) Predict(features map[string]float64) float64 {
	z := m.Bias
	for name, coef := range m.Coefficients {
		z += coef * features[name]
	}
	return 1.0 / (1.0 + math.Exp(-z))
}

// LoadModel reads model coefficients from a JSON file.
func LoadModel(path string) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	var m LogisticModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model file: %w", err)
	}
	if len(m.Coefficients) == 0 {
		return nil, fmt.Errorf("model file %s has no coefficients", path)
	}
	return &m, nil
}

// NewDefaultModel returns the built-in coefficients used when no model file
// is configured. They approximate the offline-trained model closely enough
// for development and for deployments that skip model distribution.
func NewDefaultModel() *LogisticModel {
	return &LogisticModel{
		Bias: -4.0,
		Coefficients: map[string]float64{
			FeatureURLLength:       0.012,
			FeatureNumDots:         0.15,
			FeatureNumSlashes:      0.05,
			FeatureNumDigits:       0.03,
			FeatureNumSpecialChars: 0.06,
			FeatureHasIP:           1.6,
			FeatureEntropy:         0.25,
			FeatureKeywordLogin:    0.9,
			FeatureKeywordVerify:   0.9,
			FeatureKeywordSecure:   0.5,
		},
	}
}
