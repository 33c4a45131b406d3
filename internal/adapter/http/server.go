package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nikhaldi/mobility-growth/internal/domain"
)

// SnapshotService recomputes aggregation snapshots on demand.
type SnapshotService interface {
	CheckReadiness(ctx context.Context) error
	Defaults() domain.Params
	States() ([]string, error)
	Recompute(ctx context.Context, p domain.Params) (domain.Snapshot, error)
}

// Renderer draws a snapshot as a PNG.
type Renderer interface {
	Render(snap domain.Snapshot) ([]byte, error)
}

// Server exposes the interactive aggregation surface plus health, readiness,
// and metrics endpoints. Every parameterized request is one "parameter
// change" event: a synchronous recompute, optionally a render.
type Server struct {
	httpServer *http.Server
	svc        SnapshotService
	renderer   Renderer
	logger     *slog.Logger
}

// NewServer creates the HTTP server and routes.
func NewServer(addr string, svc SnapshotService, renderer Renderer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:      svc,
		renderer: renderer,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/states", s.handleStates)
	mux.HandleFunc("GET /api/aggregate", s.handleAggregate)
	mux.HandleFunc("GET /plot.png", s.handlePlot)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStates(w http.ResponseWriter, _ *http.Request) {
	states, err := s.svc.States()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"states": states})
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.recompute(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.recompute(w, r)
	if !ok {
		return
	}

	png, err := s.renderer.Render(snap)
	if err != nil {
		s.logger.Error("render failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "render failed"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png) //nolint:errcheck // best-effort image response
}

// recompute parses request parameters and runs one recomputation. On failure
// it writes the error response and returns ok=false.
func (s *Server) recompute(w http.ResponseWriter, r *http.Request) (domain.Snapshot, bool) {
	params, err := s.parseParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return domain.Snapshot{}, false
	}

	snap, err := s.svc.Recompute(r.Context(), params)
	if err != nil {
		// Parameters were validated above, so a failure here means the
		// datasets are not loaded yet.
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return domain.Snapshot{}, false
	}
	return snap, true
}

// parseParams reads the five aggregation parameters from the query string,
// falling back to the configured defaults for any that are absent.
func (s *Server) parseParams(r *http.Request) (domain.Params, error) {
	p := s.svc.Defaults()
	q := r.URL.Query()

	if v := q.Get("state"); v != "" {
		p.State = v
	}
	if v := q.Get("min_cases"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil {
			return domain.Params{}, fmt.Errorf("min_cases: %w", err)
		}
		p.MinCases = n
	}

	var err error
	if p.GrowthWindow, err = parseWindowParams(q.Get("growth_start"), q.Get("growth_end"), p.GrowthWindow); err != nil {
		return domain.Params{}, fmt.Errorf("growth window: %w", err)
	}
	if p.MobilityWindow, err = parseWindowParams(q.Get("mobility_start"), q.Get("mobility_end"), p.MobilityWindow); err != nil {
		return domain.Params{}, fmt.Errorf("mobility window: %w", err)
	}

	if err := p.Validate(); err != nil {
		return domain.Params{}, err
	}
	return p, nil
}

func parseNonNegativeInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("must be non-negative, got %d", n)
	}
	return n, nil
}

func parseWindowParams(start, end string, fallback domain.DateRange) (domain.DateRange, error) {
	window := fallback
	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("start: %w", err)
		}
		window.Start = t
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("end: %w", err)
		}
		window.End = t
	}
	return window, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
