package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/api-server-template/config"
	"github.com/ruteri/api-server-template/metrics"
)

func newTestRateLimiter(t *testing.T, expr string, trustProxy bool) (*rateLimiter, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	rl, err := newRateLimiter(config.RateLimitConfig{Enabled: true, RateLimit: expr}, trustProxy, m, testWriter(), testLogger())
	require.NoError(t, err)
	return rl, m
}

func TestNewRateLimiter_InvalidExpression(t *testing.T) {
	_, err := newRateLimiter(config.RateLimitConfig{Enabled: true, RateLimit: "fast"}, false, metrics.New(), testWriter(), testLogger())
	require.Error(t, err)
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	rl, _ := newTestRateLimiter(t, "2/minute", false)

	_, ok := rl.reserve("10.0.0.1")
	assert.True(t, ok)
	_, ok = rl.reserve("10.0.0.1")
	assert.True(t, ok)

	delay, ok := rl.reserve("10.0.0.1")
	assert.False(t, ok)
	assert.Greater(t, delay, time.Duration(0))
}

// Rejected reservations are cancelled, so repeated over-limit requests keep
// seeing the wait for the next token instead of queueing behind each other.
func TestRateLimiter_RejectionConsumesNoQuota(t *testing.T) {
	rl, _ := newTestRateLimiter(t, "2/minute", false)

	rl.reserve("10.0.0.1")
	rl.reserve("10.0.0.1")

	// One token refills every 30s at 2/minute.
	delay1, ok := rl.reserve("10.0.0.1")
	require.False(t, ok)
	delay2, ok := rl.reserve("10.0.0.1")
	require.False(t, ok)

	assert.LessOrEqual(t, delay1, 30*time.Second)
	assert.LessOrEqual(t, delay2, 30*time.Second)
}

func TestRateLimiter_PerClientBuckets(t *testing.T) {
	rl, _ := newTestRateLimiter(t, "1/minute", false)

	_, ok := rl.reserve("10.0.0.1")
	require.True(t, ok)
	_, ok = rl.reserve("10.0.0.1")
	require.False(t, ok)

	_, ok = rl.reserve("10.0.0.2")
	assert.True(t, ok)
}

func TestRateLimiter_DropsStaleVisitors(t *testing.T) {
	rl, _ := newTestRateLimiter(t, "2/minute", false)

	rl.reserve("10.0.0.1")
	rl.visitors["10.0.0.1"].lastSeen = time.Now().Add(-11 * time.Minute)
	rl.lastCleanup = time.Now().Add(-6 * time.Minute)

	rl.reserve("10.0.0.2")

	_, stale := rl.visitors["10.0.0.1"]
	assert.False(t, stale)
	_, fresh := rl.visitors["10.0.0.2"]
	assert.True(t, fresh)
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl, m := newTestRateLimiter(t, "2/minute", false)

	handler := rl.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/login", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, do().Code)
	assert.Equal(t, http.StatusOK, do().Code)

	rr := do()
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, `{"detail":"Rate limit exceeded"}`, rr.Body.String())

	retryAfter, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)

	expected := `
# HELP rate_limit_exceeded_total Total number of requests that exceeded rate limits
# TYPE rate_limit_exceeded_total counter
rate_limit_exceeded_total{endpoint="/api/login"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "rate_limit_exceeded_total"))
}

func TestClientIP_ProxyHeaders(t *testing.T) {
	req := func(remoteAddr string, headers map[string]string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/login", nil)
		r.RemoteAddr = remoteAddr
		for k, v := range headers {
			r.Header.Set(k, v)
		}
		return r
	}

	untrusted, _ := newTestRateLimiter(t, "2/minute", false)
	trusted, _ := newTestRateLimiter(t, "2/minute", true)

	// Proxy headers are ignored unless the server is proxy-fronted.
	assert.Equal(t, "10.0.0.1", untrusted.clientIP(req("10.0.0.1:9999", map[string]string{
		"X-Forwarded-For": "198.51.100.4",
	})))

	assert.Equal(t, "203.0.113.7", trusted.clientIP(req("10.0.0.1:9999", map[string]string{
		"X-Real-Ip": "203.0.113.7",
	})))

	// First hop of X-Forwarded-For is the client.
	assert.Equal(t, "198.51.100.4", trusted.clientIP(req("10.0.0.1:9999", map[string]string{
		"X-Forwarded-For": "198.51.100.4, 10.0.0.1",
	})))

	// Unparseable header values fall back to the socket address.
	assert.Equal(t, "10.0.0.1", trusted.clientIP(req("10.0.0.1:9999", map[string]string{
		"X-Forwarded-For": "not-an-ip",
	})))

	assert.Equal(t, "10.0.0.5", untrusted.clientIP(req("10.0.0.5", nil)))
}
