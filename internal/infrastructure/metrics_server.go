package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MetricsServer exposes /metrics and /healthz while a run is in progress.
type MetricsServer struct {
	Router *chi.Mux
	server *http.Server
	logger *slog.Logger
}

// NewMetricsServer builds the router. metrics may be nil when metrics are
// disabled, in which case /metrics answers 404.
func NewMetricsServer(addr string, metrics http.Handler, logger *slog.Logger) *MetricsServer {
	if logger == nil {
		logger = GetLogger()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	return &MetricsServer{
		Router: r,
		server: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: WithComponent(logger, "metrics_server"),
	}
}

// Start listens on the configured address and serves in the background.
// Listen errors are returned immediately.
func (s *MetricsServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.logger.InfoContext(ctx, "Serving metrics", slog.String("addr", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.ErrorContext(ctx, "Metrics server error", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully
func (s *MetricsServer) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown error: %w", err)
	}
	return nil
}
