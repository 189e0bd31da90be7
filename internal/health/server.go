// Package health provides the worker's HTTP server: container health checks,
// the pipeline trigger endpoint and Prometheus metrics.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-reels/internal/models"
)

const (
	defaultMaxBodyBytes   = 1 << 20
	defaultInvokeTimeout  = 15 * time.Minute
	defaultMetricsPath    = "/metrics"
	invokePath            = "/invoke"
	contentTypeHeader     = "Content-Type"
	applicationJSONHeader = "application/json"
)

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// Invoker handles one raw pipeline request body.
type Invoker interface {
	DispatchJSON(ctx context.Context, body []byte) (interface{}, error)
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Server serves health checks and, when configured, the /invoke trigger and metrics.
type Server struct {
	serviceName    string
	version        string
	commit         string
	port           string
	server         *http.Server
	logger         *logrus.Logger
	db             DatabasePinger
	invoker        Invoker
	metricsPath    string
	metricsHandler http.Handler
	invokeTimeout  time.Duration
	maxBodyBytes   int64
	mu             sync.RWMutex
	ready          bool
}

// Config holds the configuration for the server.
type Config struct {
	ServiceName    string
	Version        string
	Commit         string
	Port           string
	Logger         *logrus.Logger
	DB             DatabasePinger
	Invoker        Invoker
	MetricsPath    string
	MetricsHandler http.Handler
	InvokeTimeout  time.Duration
	MaxBodyBytes   int64
}

// NewServer creates a new server.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = os.Getenv("HEALTH_PORT")
	}
	if port == "" {
		port = "8080"
	}
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = defaultMetricsPath
	}
	invokeTimeout := cfg.InvokeTimeout
	if invokeTimeout <= 0 {
		invokeTimeout = defaultInvokeTimeout
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	return &Server{
		serviceName:    cfg.ServiceName,
		version:        cfg.Version,
		commit:         cfg.Commit,
		port:           port,
		logger:         cfg.Logger,
		db:             cfg.DB,
		invoker:        cfg.Invoker,
		metricsPath:    metricsPath,
		metricsHandler: cfg.MetricsHandler,
		invokeTimeout:  invokeTimeout,
		maxBodyBytes:   maxBody,
		ready:          false,
	}
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	if s.invoker != nil {
		mux.HandleFunc(invokePath, s.handleInvoke)
	}
	if s.metricsHandler != nil {
		mux.Handle(s.metricsPath, s.metricsHandler)
	}
	return mux
}

// Start starts the server in the background.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.invokeTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"port":    s.port,
				"service": s.serviceName,
			}).Info("HTTP server starting")
		}

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.WithError(err).Error("HTTP server error")
			}
		}
	}()

	go s.shutdownWhenDone(ctx, s.Shutdown)

	return nil
}

func (s *Server) shutdownWhenDone(ctx context.Context, shutdown func() error) {
	<-ctx.Done()
	if err := shutdown(); err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("HTTP server shutdown failed")
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	if s.logger != nil {
		s.logger.Info("HTTP server shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles the /health endpoint - basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
		Commit:    s.commit,
	})
}

// handleLive handles the /live endpoint - kubernetes liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: s.serviceName,
	})
}

// handleReady handles the /ready endpoint - checks ledger connectivity.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	if !s.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := s.db.Ping(ctx); err != nil {
			allHealthy = false
			checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["database"] = "ok"
		}
	}

	response := ReadyResponse{
		Service:  s.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}

	status := http.StatusOK
	response.Status = "ok"
	if !allHealthy {
		response.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// handleInvoke handles POST /invoke - one pipeline request per call.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, models.ErrorResponse{Error: "method not allowed"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, models.ErrorResponse{
			ErrorKind: models.KindInvalidInput,
			Error:     err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.invokeTimeout)
	defer cancel()

	result, err := s.invoker.DispatchJSON(ctx, body)
	if err != nil {
		kind := models.KindOf(err)
		writeJSON(w, StatusForKind(kind), models.ErrorResponse{
			ErrorKind: kind,
			Error:     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// StatusForKind maps an error kind to an HTTP status. Request faults are
// 400, collaborator faults 502, everything else 500.
func StatusForKind(kind models.ErrorKind) int {
	switch {
	case kind.IsClientError():
		return http.StatusBadRequest
	case kind == models.KindSourceFetchFailed,
		kind == models.KindStoreFailed,
		kind == models.KindLedgerFailed,
		kind == models.KindMaterialFetchFailed,
		kind == models.KindPublishFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set(contentTypeHeader, applicationJSONHeader)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
