package httpserver

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ruteri/api-server-template/config"
	"github.com/ruteri/api-server-template/metrics"
)

const (
	rateLimiterCleanupInterval = 5 * time.Minute
	rateLimiterStaleThreshold  = 10 * time.Minute
)

// visitor holds the token bucket and last-seen time for one client address.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter applies a per-client token bucket sized from the configured
// "<count>/<period>" expression: each client starts with count tokens which
// refill evenly over the period. Stale clients are dropped inline during
// reservation, so no janitor goroutine is needed.
type rateLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	lastCleanup time.Time

	limit      rate.Limit
	burst      int
	trustProxy bool
	metrics    *metrics.Metrics
	writer     *JSONWriter
	log        *slog.Logger
}

func newRateLimiter(cfg config.RateLimitConfig, trustProxy bool, m *metrics.Metrics, writer *JSONWriter, log *slog.Logger) (*rateLimiter, error) {
	count, window, err := config.ParseRate(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	return &rateLimiter{
		visitors:    make(map[string]*visitor),
		lastCleanup: time.Now(),
		limit:       rate.Limit(float64(count) / window.Seconds()),
		burst:       count,
		trustProxy:  trustProxy,
		metrics:     m,
		writer:      writer,
		log:         log,
	}, nil
}

// reserve takes one token for addr. When the bucket is empty it returns
// false and the wait until the next token; the reservation is cancelled so a
// rejected request does not consume future quota.
func (rl *rateLimiter) reserve(addr string) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastCleanup) > rateLimiterCleanupInterval {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rateLimiterStaleThreshold {
				delete(rl.visitors, k)
			}
		}
		rl.lastCleanup = now
	}

	v, ok := rl.visitors[addr]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[addr] = v
	}
	v.lastSeen = now

	res := v.limiter.Reserve()
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return delay, false
	}
	return 0, true
}

// middleware rejects over-limit requests with 429, a Retry-After header and
// the endpoint-labelled counter.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delay, ok := rl.reserve(rl.clientIP(r))
		if !ok {
			retryAfter := int(math.Ceil(delay.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}

			rl.log.Warn("Rate limit exceeded", slog.String("path", r.URL.Path))
			rl.metrics.RecordRateLimitExceeded(r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			rl.writer.WriteDetail(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP keys the limiter by client address. Proxy headers are honored
// only when the server is configured as proxy-fronted; header values must
// parse as IPs so arbitrary strings cannot inflate the visitor map.
func (rl *rateLimiter) clientIP(r *http.Request) string {
	if rl.trustProxy {
		if xri := r.Header.Get("X-Real-Ip"); xri != "" {
			if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
				return ip.String()
			}
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			raw := xff
			if first, _, ok := strings.Cut(xff, ","); ok {
				raw = first
			}
			if ip := net.ParseIP(strings.TrimSpace(raw)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
