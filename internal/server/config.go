package server

import "github.com/snbhakti11/PhishScan/internal/logging"

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string

	// StorageRoot is the base path where the scan history database lives.
	StorageRoot string

	// APIKey, when non-empty, is required in the X-API-Key header on every
	// route except /health.
	APIKey string

	Logger logging.Logger
}
