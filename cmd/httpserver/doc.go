// Package main (cmd/httpserver) implements the HTTPS API server.
//
// On startup the server loads and validates the JSON configuration file,
// resolves its TLS material, loads the persisted API token hash, and then
// serves the API over TLS. The startup sequence is strict: configuration
// errors, certificate bootstrap failures and token store failures all
// terminate the process with exit code 1 before the listener binds.
//
// TLS material is bootstrapped automatically: when the configured key or
// certificate file is missing, a self-signed RSA-4096 pair is generated.
// With --bootstrap-certs=false the server instead refuses to start until
// certificates are provisioned out of band.
//
// An empty token store is not fatal. The server starts, reports unhealthy
// on /health, and rejects every protected request until an operator runs
// gentoken and restarts the server.
//
// Configuration is handled through the JSON configuration file plus
// command-line flags for process-level settings (logging, token store
// location, metrics listener, drain timing). A non-zero --port overrides
// the configured port and is persisted back to the configuration file.
//
// The server implements graceful shutdown on receiving termination signals
// (SIGINT/SIGTERM) and supports health checks, metrics collection, and
// optional profiling endpoints.
//
// Example usage:
//
//	api-server --config=configuration/config.json \
//	    --token-store=file://.env \
//	    --log-json \
//	    --metrics-addr=127.0.0.1:8090
package main
