package transport

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/lancerkit/esign/internal/config"
	"github.com/lancerkit/esign/model"
)

// RateLimiter is a per-client-IP fixed-window counter. View traffic and
// mutating traffic carry separate limiters so a noisy reader cannot starve
// legitimate signing attempts, and vice versa.
type RateLimiter struct {
	mu        sync.Mutex
	counts    map[string]int
	lastReset time.Time
	scope     string
	limit     int
	window    time.Duration
	now       func() time.Time

	// OnLimited, when set, is invoked with the limiter scope for every
	// rejected request.
	OnLimited func(scope string)
}

// NewRateLimiter creates a limiter allowing limit requests per window per IP.
func NewRateLimiter(scope string, cfg config.RateScopeConfig) *RateLimiter {
	return &RateLimiter{
		counts:    make(map[string]int),
		lastReset: time.Now(),
		scope:     scope,
		limit:     cfg.Requests,
		window:    cfg.Window,
		now:       time.Now,
	}
}

// allow records one request for ip and reports whether it is within limits.
func (l *RateLimiter) allow(ip string) bool {
	if l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastReset) > l.window {
		l.counts = make(map[string]int)
		l.lastReset = now
	}
	if l.counts[ip] >= l.limit {
		return false
	}
	l.counts[ip]++
	return true
}

// Middleware rejects over-limit callers with 429 and a Retry-After hint.
// No state changes for a rate-limited request.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.allow(ip) {
			slog.Warn("rate limit exceeded",
				"scope", l.scope,
				"client_ip", ip,
				"correlation_id", CorrelationIDFrom(r.Context()),
			)
			if l.OnLimited != nil {
				l.OnLimited(l.scope)
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			WriteError(w, model.NewRateLimitedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}
