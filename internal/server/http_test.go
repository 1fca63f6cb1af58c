package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hackerzhuli/editor-messaging-service/internal/config"
	"github.com/hackerzhuli/editor-messaging-service/internal/messenger"
	"github.com/hackerzhuli/editor-messaging-service/internal/metrics"
	"github.com/hackerzhuli/editor-messaging-service/internal/sched"
)

type stubHost struct{}

func (stubHost) IsPlaying() bool                              { return false }
func (stubHost) SetPlaying(bool)                              {}
func (stubHost) SetPaused(bool)                               {}
func (stubHost) RequestRefresh()                              {}
func (stubHost) IsSafeMode() bool                             { return false }
func (stubHost) AutoRefreshPolicy() messenger.RefreshPolicy   { return messenger.RefreshAlways }
func (stubHost) ProjectPath() string                          { return "/projects/demo" }
func (stubHost) Version() string                              { return "2.0.9" }

type stubRunner struct{}

func (stubRunner) ExecuteTests(string)     {}
func (stubRunner) RetrieveTestList(string) {}
func (stubRunner) ShowUsage(string)        {}

func newTestServer(t *testing.T) (*HTTPServer, *messenger.Session, *sched.Loop) {
	t.Helper()

	cfg := config.Default()
	cfg.Messaging.Port = 0

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	loop := sched.NewLoop(cfg.Messaging.GetTickInterval())

	session := messenger.NewSession(cfg.Messaging, logger, m, nil, stubHost{}, stubRunner{}, loop)
	t.Cleanup(session.Stop)

	return NewHTTPServer(cfg, logger, m, session, registry), session, loop
}

func TestHealthReflectsSessionState(t *testing.T) {
	srv, session, loop := newTestServer(t)

	session.Start()
	loop.Tick()

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from healthy session, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if body["state"] != "active" {
		t.Errorf("Expected active state, got %v", body["state"])
	}

	session.Stop()

	rec = httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 from closed session, got %d", rec.Code)
	}
}

func TestClientsEndpointEmptyRegistry(t *testing.T) {
	srv, session, loop := newTestServer(t)
	session.Start()
	loop.Tick()

	rec := httptest.NewRecorder()
	srv.handleClients(rec, httptest.NewRequest(http.MethodGet, "/clients", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Count   int              `json:"count"`
		Clients []map[string]any `json:"clients"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode clients response: %v", err)
	}
	if body.Count != 0 || len(body.Clients) != 0 {
		t.Errorf("Expected empty registry, got count=%d", body.Count)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, session, loop := newTestServer(t)
	session.Start()
	loop.Tick()

	rec := httptest.NewRecorder()
	srv.handleStats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var stats messenger.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats response: %v", err)
	}
	if stats.State != "active" {
		t.Errorf("Expected active state, got %q", stats.State)
	}
	if stats.SessionID != session.ID() {
		t.Errorf("Expected session id %q, got %q", session.ID(), stats.SessionID)
	}
}

func TestConfigEndpointOmitsStoragePath(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleConfig(rec, httptest.NewRequest(http.MethodGet, "/config", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode config response: %v", err)
	}
	if _, ok := body["storage"]; ok {
		t.Error("Expected storage section to be omitted")
	}
	if _, ok := body["messaging"]; !ok {
		t.Error("Expected messaging section to be present")
	}
}

func TestIndexListsEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Endpoints []string `json:"endpoints"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode index response: %v", err)
	}
	if len(body.Endpoints) == 0 {
		t.Error("Expected endpoint list to be non-empty")
	}

	rec = httptest.NewRecorder()
	srv.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", rec.Code)
	}
}

func TestEndpointsRejectNonGet(t *testing.T) {
	srv, _, _ := newTestServer(t)

	handlers := map[string]http.HandlerFunc{
		"/health":  srv.handleHealth,
		"/clients": srv.handleClients,
		"/stats":   srv.handleStats,
		"/config":  srv.handleConfig,
	}

	for path, handler := range handlers {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, path, nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405 for POST %s, got %d", path, rec.Code)
		}
	}
}
