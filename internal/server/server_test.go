package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/snbhakti11/PhishScan/internal/interfaces"
	"github.com/snbhakti11/PhishScan/internal/scanner"
	"github.com/snbhakti11/PhishScan/internal/scoring"
	"github.com/snbhakti11/PhishScan/internal/server"
)

type fixedModel struct{ p float64 }

func (m *fixedModel) Predict(features map[string]float64) float64 { return m.p }

func newTestServer(t *testing.T, apiKey string, model interfaces.ProbabilityModel) *server.Server {
	t.Helper()

	sc := scanner.NewScanner(nil, nil, nil, model, scoring.NewConfig(), interfaces.NewTestLogger(false))
	cfg := server.Config{
		ListenAddr:  ":0",
		StorageRoot: t.TempDir(),
		APIKey:      apiKey,
		Logger:      interfaces.NewTestLogger(false),
	}

	s, err := server.NewServer(cfg, sc)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func doJSON(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON response: %v (body: %s)", err, rec.Body.String())
	}
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "", nil)

	rec := doJSON(t, s, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	decodeJSON(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestServer_CORS_HeaderPresent(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "", nil)

	rec := doJSON(t, s, "GET", "/health", "")
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected CORS origin *, got %q", origin)
	}
}

func TestServer_Scan(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "", &fixedModel{p: 0.1})

	rec := doJSON(t, s, "POST", "/scan", `{"url":"http://example.com/about"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res map[string]any
	decodeJSON(t, rec, &res)
	if res["scan_id"] == "" || res["scan_id"] == nil {
		t.Errorf("expected scan_id in response")
	}
	verdict, ok := res["verdict"].(map[string]any)
	if !ok {
		t.Fatalf("expected verdict object, got %v", res["verdict"])
	}
	if verdict["label"] != "legitimate" {
		t.Errorf("expected legitimate, got %v", verdict["label"])
	}
}

func TestServer_Scan_PersistsHistory(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "", nil)

	rec := doJSON(t, s, "POST", "/scan", `{"url":"http://example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("scan: expected 200, got %d", rec.Code)
	}
	var res map[string]any
	decodeJSON(t, rec, &res)
	scanID, _ := res["scan_id"].(string)
	if scanID == "" {
		t.Fatalf("expected scan_id")
	}

	rec = doJSON(t, s, "GET", "/scans", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list scans: expected 200, got %d", rec.Code)
	}
	var scans []map[string]any
	decodeJSON(t, rec, &scans)
	if len(scans) != 1 {
		t.Fatalf("expected 1 scan in history, got %d", len(scans))
	}

	rec = doJSON(t, s, "GET", "/scans/"+scanID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get scan: expected 200, got %d", rec.Code)
	}
	var stored map[string]any
	decodeJSON(t, rec, &stored)
	if stored["id"] != scanID {
		t.Errorf("stored id = %v, want %v", stored["id"], scanID)
	}
}

func TestServer_Scan_InvalidRequests(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "", nil)

	if rec := doJSON(t, s, "POST", "/scan", `{invalid}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON: expected 400, got %d", rec.Code)
	}
	if rec := doJSON(t, s, "POST", "/scan", `{"url":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty url: expected 400, got %d", rec.Code)
	}
}

func TestServer_GetScan_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "", nil)

	rec := doJSON(t, s, "GET", "/scans/no-such-id", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServer_Predict(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "", &fixedModel{p: 1.0})

	rec := doJSON(t, s, "POST", "/predict", `{"url":"http://example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var pred map[string]any
	decodeJSON(t, rec, &pred)
	verdict, ok := pred["verdict"].(map[string]any)
	if !ok {
		t.Fatalf("expected verdict object, got %v", pred["verdict"])
	}
	// model 1.0, heuristic 0: combined 0.8 over the 0.45 threshold
	if verdict["label"] != "phishing" {
		t.Errorf("expected phishing, got %v", verdict["label"])
	}
	if verdict["strategy"] != "two_signal" {
		t.Errorf("expected two_signal strategy, got %v", verdict["strategy"])
	}
}

func TestServer_ThresholdReadAndUpdate(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "", nil)

	rec := doJSON(t, s, "GET", "/config/threshold", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp server.ThresholdResponse
	decodeJSON(t, rec, &resp)
	if resp.Threshold != 0.45 {
		t.Fatalf("default threshold = %v, want 0.45", resp.Threshold)
	}

	rec = doJSON(t, s, "POST", "/config/threshold", `{"threshold":0.42}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeJSON(t, rec, &resp)
	if resp.Threshold != 0.42 {
		t.Fatalf("updated threshold = %v, want 0.42", resp.Threshold)
	}
}

func TestServer_ThresholdRejectsOutOfRange(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "", nil)

	rec := doJSON(t, s, "POST", "/config/threshold", `{"threshold":1.5}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	// prior value must be retained
	rec = doJSON(t, s, "GET", "/config/threshold", "")
	var resp server.ThresholdResponse
	decodeJSON(t, rec, &resp)
	if resp.Threshold != 0.45 {
		t.Fatalf("threshold after rejected update = %v, want 0.45", resp.Threshold)
	}
}

func TestServer_OptionsPreflight(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "", nil)

	rec := doJSON(t, s, "OPTIONS", "/scan", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for OPTIONS, got %d", rec.Code)
	}
	if methods := rec.Header().Get("Access-Control-Allow-Methods"); methods == "" {
		t.Error("expected Allow-Methods header on OPTIONS")
	}
}

func TestServer_ScanWS_StreamsStages(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "", &fixedModel{p: 0.2})

	ts := httptest.NewServer(s)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/scan?url=" + url.QueryEscape("http://example.com")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	sawAggregate := false
	var final map[string]any
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg["stage"] == "aggregate" {
			sawAggregate = true
		}
		if _, ok := msg["verdict"]; ok {
			final = msg
			break
		}
	}

	if !sawAggregate {
		t.Error("expected an aggregate stage event before the result")
	}
	if final == nil {
		t.Fatal("expected a final scan result on the socket")
	}
	if final["canonical_url"] != "http://example.com" {
		t.Errorf("final canonical_url = %v", final["canonical_url"])
	}
}

func TestServer_APIKey(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "sekrit", nil)

	// health stays open
	if rec := doJSON(t, s, "GET", "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health with api key configured: expected 200, got %d", rec.Code)
	}

	if rec := doJSON(t, s, "POST", "/scan", `{"url":"http://example.com"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest("POST", "/scan", strings.NewReader(`{"url":"http://example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "sekrit")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with key: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
