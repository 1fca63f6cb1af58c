package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackerzhuli/editor-messaging-service/internal/config"
	"github.com/hackerzhuli/editor-messaging-service/internal/messenger"
	"github.com/hackerzhuli/editor-messaging-service/internal/metrics"
)

// HTTPServer exposes the monitoring API: health, client registry,
// session stats, sanitized config and Prometheus metrics.
type HTTPServer struct {
	config   *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	session  *messenger.Session
	gatherer prometheus.Gatherer
	server   *http.Server
	started  time.Time
}

// NewHTTPServer creates the monitoring API server.
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, session *messenger.Session, gatherer prometheus.Gatherer) *HTTPServer {
	s := &HTTPServer{
		config:   cfg,
		logger:   logger,
		metrics:  m,
		session:  session,
		gatherer: gatherer,
		started:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.withMetrics("/", s.handleIndex))
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))
	mux.HandleFunc("/clients", s.withMetrics("/clients", s.handleClients))
	mux.HandleFunc("/stats", s.withMetrics("/stats", s.handleStats))
	mux.HandleFunc("/config", s.withMetrics("/config", s.handleConfig))
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start begins serving. It blocks until the server stops.
func (s *HTTPServer) Start() error {
	s.logger.Info("Starting HTTP monitoring server",
		slog.String("address", s.server.Addr),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP monitoring server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop http server: %w", err)
	}
	return nil
}

// responseWriter captures the status code for request metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// withMetrics wraps a handler with request counting and latency
// observation.
func (s *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(wrapped, r)

		s.metrics.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(wrapped.statusCode), time.Since(start).Seconds())
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "healthy"
	code := http.StatusOK
	if s.session.State() == messenger.StateClosed {
		status = "closed"
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, r, code, map[string]any{
		"status":         status,
		"session_id":     s.session.ID(),
		"state":          s.session.State().String(),
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *HTTPServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"service": "editor-messaging-service",
		"endpoints": []string{
			"/health",
			"/clients",
			"/stats",
			"/config",
			"/metrics",
		},
	})
}

func (s *HTTPServer) handleClients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clients := s.session.Clients()
	entries := make([]map[string]any, 0, len(clients))
	for i := range clients {
		entries = append(entries, map[string]any{
			"endpoint":  clients[i].Endpoint.String(),
			"last_seen": clients[i].LastSeen.UTC().Format(time.RFC3339Nano),
		})
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"count":   len(entries),
		"clients": entries,
	})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, r, http.StatusOK, s.session.GetStats())
}

func (s *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Storage path stays private; everything else is safe to expose.
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"messaging": map[string]any{
			"bind_address":     s.config.Messaging.BindAddress,
			"port":             s.session.Port(),
			"buffer_size":      s.config.Messaging.BufferSize,
			"client_timeout":   s.config.Messaging.ClientTimeout,
			"tick_interval_ms": s.config.Messaging.TickIntervalMS,
			"queue_capacity":   s.config.Messaging.QueueCapacity,
		},
		"host": map[string]any{
			"auto_refresh": s.config.Host.AutoRefresh,
			"safe_mode":    s.config.Host.SafeMode,
		},
	})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.metrics.RecordHTTPError(r.Method, r.URL.Path, "encode_error")
		s.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}
