package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ruteri/api-server-template/metrics"
	"github.com/ruteri/api-server-template/tokenstore"
)

// DefaultAPIKeyHeader is the request header protected routes read the token
// from.
const DefaultAPIKeyHeader = "X-API-Key"

var (
	// ErrMissingAPIKey reports a request without the API key header.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidAPIKey reports a key that does not match the stored hash.
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// Client-facing rejection bodies. The misconfigured-store body carries the
// underlying cause so it stays distinguishable from a plain invalid key.
const (
	detailMissingAPIKey     = "Missing API key"
	detailInvalidAPIKey     = "Invalid API key"
	detailNoTokenConfigured = "No stored token hash found for verification."
)

// APIKeyVerifier authenticates protected requests against the token hash
// loaded at startup. Every verification outcome is counted; non-success
// outcomes are logged at warning level and rejected with 401.
type APIKeyVerifier struct {
	headerName string
	tokenHash  string
	metrics    *metrics.Metrics
	writer     *JSONWriter
	log        *slog.Logger
}

// NewAPIKeyVerifier creates a verifier for tokenHash. An empty headerName
// selects DefaultAPIKeyHeader. An empty tokenHash is allowed: the server
// starts but every protected request is rejected with the error outcome and
// the health endpoint reports unhealthy.
func NewAPIKeyVerifier(headerName, tokenHash string, m *metrics.Metrics, writer *JSONWriter, log *slog.Logger) *APIKeyVerifier {
	if headerName == "" {
		headerName = DefaultAPIKeyHeader
	}
	return &APIKeyVerifier{
		headerName: headerName,
		tokenHash:  tokenHash,
		metrics:    m,
		writer:     writer,
		log:        log,
	}
}

// TokenConfigured reports whether a token hash was loaded at startup.
func (v *APIKeyVerifier) TokenConfigured() bool {
	return v.tokenHash != ""
}

// VerifyRequest classifies the request's authentication outcome: nil on
// success, ErrMissingAPIKey or ErrInvalidAPIKey on client failures, and
// tokenstore.ErrNoTokenConfigured when no hash is stored.
func (v *APIKeyVerifier) VerifyRequest(r *http.Request) error {
	key := r.Header.Get(v.headerName)
	if key == "" {
		return ErrMissingAPIKey
	}

	ok, err := tokenstore.Verify(key, v.tokenHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidAPIKey
	}
	return nil
}

// Middleware gates a route on a valid API key. Rejections return 401 with a
// detail body naming the failure.
func (v *APIKeyVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := v.VerifyRequest(r)
		switch {
		case err == nil:
			v.metrics.RecordAuthSuccess()
			v.log.Debug("API key validated successfully")
			next.ServeHTTP(w, r)
		case errors.Is(err, ErrMissingAPIKey):
			v.metrics.RecordAuthFailure(metrics.ReasonMissing)
			v.log.Warn("Missing API key in request")
			v.writer.WriteDetail(w, http.StatusUnauthorized, detailMissingAPIKey)
		case errors.Is(err, ErrInvalidAPIKey):
			v.metrics.RecordAuthFailure(metrics.ReasonInvalid)
			v.log.Warn("Invalid API key attempt")
			v.writer.WriteDetail(w, http.StatusUnauthorized, detailInvalidAPIKey)
		default:
			v.metrics.RecordAuthFailure(metrics.ReasonError)
			v.log.Error("Error verifying API key", "err", err)
			v.writer.WriteDetail(w, http.StatusUnauthorized, detailNoTokenConfigured)
		}
	})
}
