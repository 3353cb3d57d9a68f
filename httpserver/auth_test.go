package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/api-server-template/config"
	"github.com/ruteri/api-server-template/metrics"
	"github.com/ruteri/api-server-template/tokenstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWriter() *JSONWriter {
	return NewJSONWriter(config.Default().JSONResponse)
}

func newTestVerifier(tokenHash string) (*APIKeyVerifier, *metrics.Metrics) {
	m := metrics.New()
	return NewAPIKeyVerifier("", tokenHash, m, testWriter(), testLogger()), m
}

// protectedProbe wraps a sentinel handler in the verifier's middleware and
// reports whether the request got through.
func protectedProbe(v *APIKeyVerifier, apiKey string) (*httptest.ResponseRecorder, bool) {
	reached := false
	handler := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/login", nil)
	if apiKey != "" {
		req.Header.Set(DefaultAPIKeyHeader, apiKey)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr, reached
}

func assertFailureCounted(t *testing.T, m *metrics.Metrics, reason string) {
	t.Helper()
	expected := `
# HELP auth_failure_total Total number of failed authentication attempts
# TYPE auth_failure_total counter
auth_failure_total{reason="` + reason + `"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "auth_failure_total"))
}

func TestAPIKeyVerifier_ValidKey(t *testing.T) {
	token := "correct-api-token"
	v, m := newTestVerifier(tokenstore.Hash(token))

	rr, reached := protectedProbe(v, token)

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rr.Code)

	expected := `
# HELP auth_success_total Total number of successful authentication attempts
# TYPE auth_success_total counter
auth_success_total 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "auth_success_total"))
}

func TestAPIKeyVerifier_MissingKey(t *testing.T) {
	v, m := newTestVerifier(tokenstore.Hash("correct-api-token"))

	rr, reached := protectedProbe(v, "")

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, `{"detail":"Missing API key"}`, rr.Body.String())
	assertFailureCounted(t, m, "missing")
}

func TestAPIKeyVerifier_InvalidKey(t *testing.T) {
	v, m := newTestVerifier(tokenstore.Hash("correct-api-token"))

	rr, reached := protectedProbe(v, "wrong-api-token")

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, `{"detail":"Invalid API key"}`, rr.Body.String())
	assertFailureCounted(t, m, "invalid")
}

// No stored hash: any presented key is rejected with the error outcome, not
// the invalid one.
func TestAPIKeyVerifier_NoTokenConfigured(t *testing.T) {
	v, m := newTestVerifier("")

	assert.False(t, v.TokenConfigured())

	rr, reached := protectedProbe(v, "some-api-token")

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, `{"detail":"No stored token hash found for verification."}`, rr.Body.String())
	assertFailureCounted(t, m, "error")
}

// The header check runs before the store check, so an absent key on an
// unconfigured server still counts as missing.
func TestAPIKeyVerifier_MissingKeyBeforeStoreCheck(t *testing.T) {
	v, m := newTestVerifier("")

	rr, _ := protectedProbe(v, "")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, `{"detail":"Missing API key"}`, rr.Body.String())
	assertFailureCounted(t, m, "missing")
}

func TestVerifyRequest_ErrorKinds(t *testing.T) {
	token := "correct-api-token"
	v, _ := newTestVerifier(tokenstore.Hash(token))

	req := httptest.NewRequest(http.MethodGet, "/api/login", nil)
	require.ErrorIs(t, v.VerifyRequest(req), ErrMissingAPIKey)

	req.Header.Set(DefaultAPIKeyHeader, "wrong-api-token")
	require.ErrorIs(t, v.VerifyRequest(req), ErrInvalidAPIKey)

	req.Header.Set(DefaultAPIKeyHeader, token)
	require.NoError(t, v.VerifyRequest(req))

	unconfigured, _ := newTestVerifier("")
	req.Header.Set(DefaultAPIKeyHeader, token)
	require.ErrorIs(t, unconfigured.VerifyRequest(req), tokenstore.ErrNoTokenConfigured)
}

func TestAPIKeyVerifier_CustomHeaderName(t *testing.T) {
	token := "correct-api-token"
	m := metrics.New()
	v := NewAPIKeyVerifier("X-Service-Token", tokenstore.Hash(token), m, testWriter(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/login", nil)
	req.Header.Set("X-Service-Token", token)
	require.NoError(t, v.VerifyRequest(req))

	// The default header name is ignored once a custom one is set.
	req = httptest.NewRequest(http.MethodGet, "/api/login", nil)
	req.Header.Set(DefaultAPIKeyHeader, token)
	require.ErrorIs(t, v.VerifyRequest(req), ErrMissingAPIKey)

	assert.True(t, v.TokenConfigured())
}
