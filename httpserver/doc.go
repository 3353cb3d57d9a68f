/*
Package httpserver implements the HTTPS server shell: a fixed middleware
stack, built-in operational endpoints, and an API route group that callers
populate with their own handlers.

The shell owns every cross-cutting concern so applications built on it only
supply routes and handlers:

  - Request logging for every request, including rejected ones
  - Security headers (HSTS, CSP, frame/content-type/XSS/referrer policies)
    on every response
  - Optional CORS handling, mounted only when enabled in configuration
  - Optional per-client rate limiting on the API group
  - API-key authentication for protected routes
  - Prometheus metrics exposition
  - Health, liveness, readiness and drain lifecycle endpoints
  - TLS serving from the certificate material resolved at startup

# Endpoints

  - GET /metrics - Metrics exposition (unauthenticated, unlimited)
  - GET /health - Token-store health (unauthenticated, unlimited)
  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /api/drain - Gracefully mark server as not ready (protected)
  - GET /api/undrain - Mark server as ready (protected)
  - /api/... - Application routes supplied via RouteRegistrar callbacks

The health endpoint reflects the token store: 200/healthy when a token hash
was loaded at startup, 500/unhealthy when not. A server without a token
still serves traffic, but every protected route rejects with 401 until a
token is generated and the process restarted.

# Authentication

Protected routes require the X-API-Key header. The verifier distinguishes
four outcomes - success, missing key, invalid key, and verification error
(no token configured) - and each outcome is counted in metrics and logged.
Registrars choose per route whether to apply the gate:

	server, err := httpserver.New(cfg, appCfg, m, tokenHash,
		func(r chi.Router, auth func(http.Handler) http.Handler) {
			r.With(auth).Get("/login", handleLogin) // protected
			r.Get("/version", handleVersion)        // public
		},
	)
	if err != nil {
		log.Fatal(err)
	}

	server.RunInBackground()
	defer server.Shutdown()

# Static Assets

When the configured static directory exists its files are served at the
site root with index.html directory defaults, and a 404.html file inside it
replaces the plain not-found response.
*/
package httpserver
