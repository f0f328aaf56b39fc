// Package httpapi serves the dashboard operations over HTTP and streams the
// live feed over a websocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rcliao/mission-control/internal/app"
	"github.com/rcliao/mission-control/internal/feed"
	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/search"
	"github.com/rcliao/mission-control/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Server exposes an app.Service over HTTP.
type Server struct {
	svc       *app.Service
	logger    *log.Logger
	registry  *prometheus.Registry
	feedOpts  []feed.Option
	metrics   *Metrics
	startedAt time.Time
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry serves reg on /metrics and registers the server metrics on it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithFeedOptions applies opts to every websocket feed session.
func WithFeedOptions(opts ...feed.Option) Option {
	return func(s *Server) { s.feedOpts = append(s.feedOpts, opts...) }
}

func New(svc *app.Service, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		logger:    log.New(io.Discard),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = NewMetrics(s.registry)
	return s
}

// Handler returns the router with every route wired.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth())
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/ws/feed", s.handleFeedSocket())

	r.Route("/api", func(r chi.Router) {
		r.Route("/activities", func(r chi.Router) {
			r.Get("/", s.handleListActivities())
			r.Post("/", s.handleCreateActivity())
			r.Get("/range", s.handleActivitiesInRange())
			r.Get("/stats", s.handleActivityStats())
			r.Get("/{id}", s.handleGetActivity())
			r.Patch("/{id}/status", s.handleActivityStatus())
		})
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleUpcomingTasks())
			r.Post("/", s.handleCreateTask())
			r.Get("/range", s.handleTasksInRange())
			r.Get("/week", s.handleTasksByWeek())
			r.Get("/month", s.handleTasksByMonth())
			r.Get("/stats", s.handleTaskStats())
			r.Get("/{id}", s.handleGetTask())
			r.Patch("/{id}", s.handleUpdateTask())
			r.Delete("/{id}", s.handleDeleteTask())
			r.Post("/{id}/complete", s.handleCompleteTask())
			r.Post("/{id}/cancel", s.handleCancelTask())
		})
		r.Route("/memories", func(r chi.Router) {
			r.Get("/", s.handleListMemories())
			r.Post("/", s.handleCreateMemory())
			r.Get("/{id}", s.handleGetMemory())
			r.Patch("/{id}", s.handleUpdateMemory())
			r.Delete("/{id}", s.handleDeleteMemory())
		})
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments())
			r.Put("/", s.handleUpsertDocument())
			r.Get("/by-path", s.handleGetDocument())
			r.Delete("/by-path", s.handleDeleteDocument())
		})
		r.Get("/search", s.handleSearch())
		r.Get("/search/history", s.handleSearchHistory())
		r.Get("/feed", s.handleFeed())
	})

	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status    string    `json:"status"` // "ok" or "degraded"
	StartedAt time.Time `json:"started_at"`
	Error     string    `json:"error,omitempty"`
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", StartedAt: s.startedAt}
		status := http.StatusOK
		if _, err := s.svc.SearchHistory(r.Context(), 1); err != nil {
			resp.Status = "degraded"
			resp.Error = err.Error()
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a service error onto an HTTP status code.
func statusFor(err error) int {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, store.ErrStoreUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// searchResponse carries results with any per-collection failures.
type searchResponse struct {
	*search.Results
	Warnings []string `json:"warnings,omitempty"`
}

// splitSearchError separates a partial failure, which still yields
// results, from errors that fail the request.
func splitSearchError(err error) (warnings []string, fatal error) {
	if err == nil {
		return nil, nil
	}
	var partial *search.PartialSearchError
	if !errors.As(err, &partial) {
		return nil, err
	}
	for _, t := range partial.Types() {
		warnings = append(warnings, string(t)+": "+partial.Failed[t].Error())
	}
	if _, direct := err.(*search.PartialSearchError); direct {
		return warnings, nil
	}
	// A history write failure is joined next to the partial error.
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !errors.As(e, &partial) {
				return warnings, e
			}
		}
	}
	return warnings, nil
}
