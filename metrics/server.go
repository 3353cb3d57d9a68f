package metrics

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is a standalone metrics listener, typically bound to a private
// address separate from the API port. It serves the same registry as the
// main router's /metrics endpoint and optionally the pprof handlers.
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics server on addr. The pprof handlers are mounted
// under /debug when enablePprof is set.
func NewServer(m *Metrics, addr string, enablePprof bool) *Server {
	mux := chi.NewRouter()
	mux.Method(http.MethodGet, "/metrics", m.Handler())
	if enablePprof {
		mux.Mount("/debug", middleware.Profiler())
	}

	return &Server{
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// ListenAndServe blocks serving the metrics endpoint until Shutdown or
// failure.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
