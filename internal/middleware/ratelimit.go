package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sakif/book-catalog/internal/apperror"
	"github.com/sakif/book-catalog/internal/response"
)

// RateLimiter throttles requests per client IP with a token bucket
// (golang.org/x/time/rate). It guards the unauthenticated credential
// endpoints, where password guessing would otherwise be free.
//
// Each IP gets its own limiter. A janitor goroutine drops limiters that
// have been idle for longer than idleTTL so the map cannot grow without
// bound. Call Stop when the server shuts down.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	logger   *slog.Logger

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// DefaultIdleTTL is how long an idle client's limiter is kept.
const DefaultIdleTTL = 10 * time.Minute

// NewRateLimiter allows rps requests per second per IP with bursts of up to
// burst requests, and starts the janitor.
func NewRateLimiter(rps float64, burst int, idleTTL time.Duration, logger *slog.Logger) *RateLimiter {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  idleTTL,
		logger:   logger,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	go rl.janitor(idleTTL / 2)

	return rl
}

// Allow reports whether a request from key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

// Handler is the middleware. Over-limit requests get 429 with the standard
// envelope and a Retry-After hint.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !rl.Allow(key) {
			rl.logger.Warn("rate limit exceeded",
				slog.String("ip", key),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			response.Error(w, apperror.RateLimited("Too many requests, slow down"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stop shuts the janitor down and waits for it to exit. Safe to call twice.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.done)
	})
	<-rl.stopped
}

func (rl *RateLimiter) janitor(interval time.Duration) {
	defer close(rl.stopped)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.evictIdle(now)
		}
	}
}

// evictIdle drops every limiter not used since now - idleTTL.
func (rl *RateLimiter) evictIdle(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	evicted := 0
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.visitors, key)
			evicted++
		}
	}
	return evicted
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware runs
// first and has already replaced RemoteAddr with the forwarded address when
// the request came through a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
