// Package server hosts a plugin registry over HTTP.
//
//	GET  /plugins                 descriptors, filtered by ?type=, with activation for ?dataset=&view=
//	GET  /plugins/{name}          render a plugin without a schema (panels)
//	POST /plugins/{name}/render   render with {"schema": ..., "values": ...}
//	GET  /metrics                 Prometheus metrics
//	GET  /healthz                 liveness
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goliatone/go-operatorio/pkg/logging"
	"github.com/goliatone/go-operatorio/pkg/operator"
	"github.com/goliatone/go-operatorio/pkg/plugins"
)

const maxBodyBytes = 1 << 20

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logging.OrNop(l)
	}
}

// WithMetricsRegistry registers metrics on reg instead of a private registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.metrics = reg
		}
	}
}

// WithTimeouts sets the read timeout and the graceful shutdown budget used by
// Run.
func WithTimeouts(read, shutdown time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if shutdown > 0 {
			s.shutdownTimeout = shutdown
		}
	}
}

// Server serves a plugins.Registry.
type Server struct {
	registry        *plugins.Registry
	logger          *zap.Logger
	metrics         *prometheus.Registry
	renders         *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	readTimeout     time.Duration
	shutdownTimeout time.Duration
	router          chi.Router
}

// New builds a server for reg.
func New(reg *plugins.Registry, options ...Option) (*Server, error) {
	if reg == nil {
		return nil, errors.New("server: registry is required")
	}
	s := &Server{
		registry:        reg,
		logger:          zap.NewNop(),
		metrics:         prometheus.NewRegistry(),
		readTimeout:     10 * time.Second,
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	factory := promauto.With(s.metrics)
	s.renders = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "operatorio_plugin_renders_total",
		Help: "Plugin renders by plugin and outcome.",
	}, []string{"plugin", "outcome"})
	s.duration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "operatorio_plugin_render_duration_seconds",
		Help:    "Plugin render latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"plugin"})

	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.readTimeout,
		ReadTimeout:       s.readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))

	r.Route("/plugins", func(r chi.Router) {
		r.Get("/", s.listPlugins)
		r.Get("/{name}", s.renderPlugin)
		r.Post("/{name}/render", s.renderPlugin)
	})
	return r
}

type pluginView struct {
	Name   string                `json:"name"`
	Label  string                `json:"label"`
	Type   plugins.ComponentType `json:"type"`
	Active bool                  `json:"active"`
}

func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	descs := s.registry.List()
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, err := plugins.ParseComponentType(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		descs = s.registry.ByType(t)
	}

	actx := activationFrom(r)
	out := make([]pluginView, 0, len(descs))
	for _, d := range descs {
		out = append(out, pluginView{Name: d.Name, Label: d.Label, Type: d.Type, Active: d.Active(actx)})
	}
	writeJSON(w, http.StatusOK, out)
}

type renderRequest struct {
	Schema json.RawMessage `json:"schema"`
	Values map[string]any  `json:"values"`
}

func (s *Server) renderPlugin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var props plugins.Props

	if r.Method == http.MethodPost {
		var req renderRequest
		body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("server: decode request: %w", err))
			return
		}
		if len(req.Schema) > 0 && string(req.Schema) != "null" {
			prop, err := operator.FromJSON(req.Schema)
			if err != nil {
				s.observe(name, "invalid", 0)
				writeError(w, http.StatusUnprocessableEntity, err)
				return
			}
			props.Schema = prop
		}
		props.Values = req.Values
	}

	start := time.Now()
	out, err := s.registry.Render(r.Context(), name, activationFrom(r), props)
	elapsed := time.Since(start)
	if err != nil {
		status := statusFor(err)
		s.observe(name, outcomeFor(status), elapsed)
		s.logger.Warn("plugin render failed",
			zap.String("plugin", name),
			zap.Int("status", status),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, status, err)
		return
	}
	s.observe(name, "ok", elapsed)

	w.Header().Set("Content-Type", out.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Body)
}

// unknownPlugin labels renders of names missing from the registry so request
// paths cannot grow the label set.
const unknownPlugin = "unknown"

func (s *Server) observe(name, outcome string, elapsed time.Duration) {
	label := name
	if _, err := s.registry.Get(name); err != nil {
		label = unknownPlugin
	}
	s.renders.WithLabelValues(label, outcome).Inc()
	if outcome == "ok" {
		s.duration.WithLabelValues(label).Observe(elapsed.Seconds())
	}
}

func activationFrom(r *http.Request) plugins.ActivationContext {
	q := r.URL.Query()
	return plugins.ActivationContext{Dataset: q.Get("dataset"), View: q.Get("view")}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, plugins.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, plugins.ErrInactive):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}

func outcomeFor(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "inactive"
	case http.StatusServiceUnavailable:
		return "cancelled"
	default:
		return "invalid"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
