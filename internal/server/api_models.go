package server

// ScanRequest is the payload for POST /scan and POST /predict.
type ScanRequest struct {
	URL string `json:"url"`
}

// ThresholdResponse reports the live scoring configuration.
type ThresholdResponse struct {
	Threshold float64            `json:"threshold"`
	Weights   map[string]float64 `json:"weights"`
}

// ThresholdUpdateRequest carries a new decision threshold.
type ThresholdUpdateRequest struct {
	Threshold float64 `json:"threshold"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}
