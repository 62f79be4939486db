// Package server exposes the scan pipeline over HTTP and WebSocket.
package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/snbhakti11/PhishScan/internal/history"
	"github.com/snbhakti11/PhishScan/internal/logging"
	"github.com/snbhakti11/PhishScan/internal/scanner"

	_ "modernc.org/sqlite" // SQLite driver
)

// Server is the HTTP + WebSocket API surface for PhishScan.
type Server struct {
	cfg       Config
	scanner   *scanner.Scanner
	history   *history.Store
	router    chi.Router
	upgrader  websocket.Upgrader
	logger    logging.Logger
	historyDB *sql.DB
}

// NewServer wires the API around an already-constructed scanner and opens
// the scan history database under cfg.StorageRoot.
func NewServer(cfg Config, sc *scanner.Scanner) (*Server, error) {
	if sc == nil {
		return nil, fmt.Errorf("scanner is nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	storageRoot, err := expandPath(cfg.StorageRoot)
	if err != nil {
		return nil, fmt.Errorf("expanding storage root path: %w", err)
	}
	cfg.StorageRoot = storageRoot
	if err := os.MkdirAll(cfg.StorageRoot, 0755); err != nil {
		logger.Warn("creating storage root directory", logging.Field{Key: "path", Value: cfg.StorageRoot}, logging.Field{Key: "error", Value: err.Error()})
	}

	db, err := history.OpenDB(filepath.Join(cfg.StorageRoot, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	store, err := history.NewStore(db, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history store: %w", err)
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:     cfg,
		scanner: sc,
		history: store,
		router:  r,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
		historyDB: db,
	}

	s.routes()
	return s, nil
}

// Scanner returns the underlying scanner for advanced use (tests, etc.).
func (s *Server) Scanner() *scanner.Scanner {
	return s.scanner
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)
	r.Use(s.apiKeyMiddleware)

	// CORS preflight
	r.Options("/scan", s.optionsHandler("POST"))
	r.Options("/predict", s.optionsHandler("POST"))
	r.Options("/scans", s.optionsHandler("GET"))
	r.Options("/scans/{scanID}", s.optionsHandler("GET"))
	r.Options("/config/threshold", s.optionsHandler("GET, POST"))
	r.Options("/ws/scan", s.optionsHandler("GET"))

	r.Get("/health", s.handleHealth)

	// Scanning
	r.Post("/scan", s.handleScan)
	r.Post("/predict", s.handlePredict)

	// History
	r.Get("/scans", s.handleListScans)
	r.Get("/scans/{scanID}", s.handleGetScan)

	// Runtime configuration
	r.Get("/config/threshold", s.handleGetThreshold)
	r.Post("/config/threshold", s.handleSetThreshold)

	// WebSocket for scan progress
	r.Get("/ws/scan", s.handleScanWS)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" && r.URL.Path != "/health" && r.Method != http.MethodOptions {
			if r.Header.Get("X-API-Key") != s.cfg.APIKey {
				writeError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && r.Method == http.MethodPost {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close releases the history database.
func (s *Server) Close() {
	if s.historyDB != nil {
		s.historyDB.Close()
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- HTTP handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var body ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}

	res := s.scanner.Scan(r.Context(), body.URL, nil)

	if _, err := s.history.SaveScan(r.Context(), res.ScanID, res.URL, res.CanonicalURL, string(res.Verdict.Label), res.Verdict.CombinedScore, res); err != nil {
		s.logger.Warn("persisting scan", logging.Field{Key: "error", Value: err.Error()})
	}

	s.logger.Info("scanned url",
		logging.Field{Key: "url", Value: res.CanonicalURL},
		logging.Field{Key: "label", Value: string(res.Verdict.Label)})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var body ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}

	pred := s.scanner.Predict(r.Context(), body.URL)
	s.logger.Info("predicted url",
		logging.Field{Key: "url", Value: pred.CanonicalURL},
		logging.Field{Key: "label", Value: string(pred.Verdict.Label)})
	writeJSON(w, http.StatusOK, pred)
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	scans, err := s.history.ListScans(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing scans", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if scans == nil {
		scans = []*history.Record{}
	}
	s.logger.Info("listed scans", logging.Field{Key: "count", Value: len(scans)})
	writeJSON(w, http.StatusOK, scans)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")

	rec, err := s.history.GetScan(r.Context(), scanID)
	if err != nil {
		if errors.Is(err, history.ErrScanNotFound) {
			writeError(w, http.StatusNotFound, "scan not found")
			return
		}
		s.logger.Warn("getting scan", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetThreshold(w http.ResponseWriter, r *http.Request) {
	snap := s.scanner.ScoringConfig().Snapshot()
	writeJSON(w, http.StatusOK, ThresholdResponse{
		Threshold: snap.Threshold,
		Weights:   snap.Weights,
	})
}

func (s *Server) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	var body ThresholdUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := s.scanner.ScoringConfig().SetThreshold(body.Threshold); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("updated threshold", logging.Field{Key: "threshold", Value: body.Threshold})
	snap := s.scanner.ScoringConfig().Snapshot()
	writeJSON(w, http.StatusOK, ThresholdResponse{
		Threshold: snap.Threshold,
		Weights:   snap.Weights,
	})
}

// WebSocket

func (s *Server) handleScanWS(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	ctx := r.Context()

	events := make(chan scanner.StageEvent, 32)
	done := make(chan *scanner.Result, 1)
	go func() {
		res := s.scanner.Scan(ctx, raw, func(ev scanner.StageEvent) {
			// Non-blocking send; drop if buffer is full.
			select {
			case events <- ev:
			default:
			}
		})
		close(events)
		done <- res
	}()

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; drain the scan result.
			<-done
			return
		}
	}

	res := <-done
	if _, err := s.history.SaveScan(ctx, res.ScanID, res.URL, res.CanonicalURL, string(res.Verdict.Label), res.Verdict.CombinedScore, res); err != nil {
		s.logger.Warn("persisting scan", logging.Field{Key: "error", Value: err.Error()})
	}
	_ = conn.WriteJSON(res)
}

func expandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
