package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"

	"github.com/ruteri/api-server-template/config"
	"github.com/ruteri/api-server-template/metrics"
)

// APIPrefix is the path prefix application routes are mounted under.
const APIPrefix = "/api"

// HTTPServerConfig carries the process-level settings of the server shell,
// as opposed to config.Config which holds the deployment's configuration
// file.
type HTTPServerConfig struct {
	ListenAddr  string
	MetricsAddr string
	EnablePprof bool
	Log         *slog.Logger

	// TLS material resolved by the certificate bootstrap before New is
	// called. The server always serves HTTPS.
	TLSCertFile string
	TLSKeyFile  string

	// TrustProxy enables client addressing via X-Real-Ip/X-Forwarded-For.
	// Leave off unless a reverse proxy sets those headers.
	TrustProxy bool

	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

// RouteRegistrar adds application routes to the API router. Registrars run
// once during construction with the /api subrouter and the authentication
// middleware: wrap protected routes with auth, leave public ones unwrapped.
type RouteRegistrar func(r chi.Router, auth func(http.Handler) http.Handler)

// Server composes the middleware stack, built-in endpoints and
// caller-supplied routes around one HTTPS listener.
type Server struct {
	cfg     *HTTPServerConfig
	appCfg  *config.Config
	isReady atomic.Bool
	log     *slog.Logger

	writer   *JSONWriter
	verifier *APIKeyVerifier
	limiter  *rateLimiter

	srv        *http.Server
	metricsSrv *metrics.Server
}

// New assembles the server from the loaded configuration, the metrics
// handle and the token hash loaded at startup. An empty tokenHash is not an
// error: the server runs but reports unhealthy and rejects protected
// requests.
func New(cfg *HTTPServerConfig, appCfg *config.Config, m *metrics.Metrics, tokenHash string, registrars ...RouteRegistrar) (*Server, error) {
	writer := NewJSONWriter(appCfg.JSONResponse)

	srv := &Server{
		cfg:      cfg,
		appCfg:   appCfg,
		log:      cfg.Log,
		writer:   writer,
		verifier: NewAPIKeyVerifier(DefaultAPIKeyHeader, tokenHash, m, writer, cfg.Log),
	}

	if appCfg.RateLimit.Enabled {
		if appCfg.RateLimit.StorageURI != "" {
			return nil, fmt.Errorf("unsupported rate limit storage URI %q: only in-memory rate limiting is supported", appCfg.RateLimit.StorageURI)
		}
		limiter, err := newRateLimiter(appCfg.RateLimit, cfg.TrustProxy, m, writer, cfg.Log)
		if err != nil {
			return nil, err
		}
		srv.limiter = limiter
		srv.log.Info("Rate limiting enabled",
			slog.String("rate", appCfg.RateLimit.RateLimit),
			slog.String("storage", "in-memory"))
	} else {
		srv.log.Info("Rate limiting is disabled")
	}

	if cfg.MetricsAddr != "" {
		srv.metricsSrv = metrics.NewServer(m, cfg.MetricsAddr, cfg.EnablePprof)
	}

	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(m, registrars),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return srv, nil
}

// getRouter builds the middleware chain and route table. Middleware order is
// load-bearing: logging first so rejected requests are still logged,
// security headers on every response after that, CORS only when enabled,
// and rate limiting only on the API group so health and metrics stay
// reachable for probes and scrapers.
func (srv *Server) getRouter(m *metrics.Metrics, registrars []RouteRegistrar) http.Handler {
	mux := chi.NewRouter()

	mux.Use(srv.httpLogger)
	srv.log.Info("Request logging enabled")

	mux.Use(securityHeaders(srv.appCfg.Security))
	srv.log.Info("Security headers enabled",
		slog.Int("hstsMaxAge", srv.appCfg.Security.HSTSMaxAge),
		slog.String("csp", srv.appCfg.Security.ContentSecurityPolicy))

	if srv.appCfg.CORS.Enabled {
		mux.Use(corsHandler(srv.appCfg.CORS))
		srv.log.Info("CORS enabled",
			slog.Any("origins", srv.appCfg.CORS.AllowOrigins),
			slog.Bool("credentials", srv.appCfg.CORS.AllowCredentials),
			slog.Any("methods", srv.appCfg.CORS.AllowMethods),
			slog.Any("headers", srv.appCfg.CORS.AllowHeaders))
	} else {
		srv.log.Info("CORS is disabled")
	}

	mux.Method(http.MethodGet, "/metrics", m.Handler())
	mux.Get("/health", srv.handleHealthCheck)
	mux.Get("/livez", srv.handleLivenessCheck)
	mux.Get("/readyz", srv.handleReadinessCheck)

	// The custom not-found handler must be registered before the API group
	// is mounted so the subrouter inherits it.
	if static := newStaticHandler(srv.appCfg.Static.Directory); static != nil {
		srv.log.Info("Serving static files", slog.String("directory", srv.appCfg.Static.Directory))
		mux.NotFound(static.ServeHTTP)
	}

	mux.Route(APIPrefix, func(r chi.Router) {
		if srv.limiter != nil {
			r.Use(srv.limiter.middleware)
		}
		r.With(srv.verifier.Middleware).Get("/drain", srv.handleDrain)
		r.With(srv.verifier.Middleware).Get("/undrain", srv.handleUndrain)
		for _, register := range registrars {
			register(r, srv.verifier.Middleware)
		}
	})

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}

	return mux
}

func (srv *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.verifier.TokenConfigured() {
		srv.writer.Write(w, http.StatusInternalServerError, HealthResponse{
			BaseResponse: BaseResponse{
				Code:      http.StatusInternalServerError,
				Message:   "Server token is not configured",
				Timestamp: CurrentTimestamp(),
			},
			Status: StatusUnhealthy,
		})
		return
	}

	srv.writer.Write(w, http.StatusOK, HealthResponse{
		BaseResponse: BaseResponse{
			Code:      http.StatusOK,
			Message:   "Server is healthy",
			Timestamp: CurrentTimestamp(),
		},
		Status: StatusHealthy,
	})
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"alive"}`))
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"already draining"}`))
		return
	}

	srv.log.Info("Server marked as not ready")

	// Readiness flips immediately; the drain window just gives load
	// balancers time to notice before shutdown proceeds.
	go func() {
		time.Sleep(srv.cfg.DrainDuration)
		srv.log.Info("Drain period completed")
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"draining"}`))
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"already ready"}`))
		return
	}

	srv.log.Info("Server marked as ready")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// RunInBackground starts the HTTPS listener and, when configured, the
// standalone metrics listener. It returns immediately; use Shutdown to stop.
func (srv *Server) RunInBackground() {
	if srv.metricsSrv != nil {
		go func() {
			srv.log.With("metricsAddress", srv.cfg.MetricsAddr).Info("Starting metrics server")
			err := srv.metricsSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				srv.log.Error("Metrics server failed", "err", err)
			}
		}()
	}

	go func() {
		srv.log.Info("Starting HTTPS server", "listenAddress", srv.cfg.ListenAddr)
		err := srv.srv.ListenAndServeTLS(srv.cfg.TLSCertFile, srv.cfg.TLSKeyFile)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTPS server failed", "err", err)
		}
	}()
}

// Shutdown gracefully stops the HTTPS listener and the metrics listener,
// each within the configured graceful shutdown window.
func (srv *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}

	if srv.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
		defer cancel()

		if err := srv.metricsSrv.Shutdown(ctx); err != nil {
			srv.log.Error("Graceful metrics server shutdown failed", "err", err)
		} else {
			srv.log.Info("Metrics server gracefully stopped")
		}
	}
}
