package security

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pantrypilot/web/internal/infrastructure/config"
	"github.com/pantrypilot/web/internal/infrastructure/monitoring"
)

// visitor tracks one client's token bucket
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a per-IP token bucket to incoming requests
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	logger   *zap.Logger
	metrics  *monitoring.MetricsCollector
}

// NewRateLimiter creates a limiter allowing RequestsPerMin per client with
// BurstSize headroom. metrics may be nil.
func NewRateLimiter(cfg config.RateLimitConfig, logger *zap.Logger, metrics *monitoring.MetricsCollector) *RateLimiter {
	perMin := cfg.RequestsPerMin
	if perMin <= 0 {
		perMin = 300
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = perMin / 5
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMin) / 60),
		burst:    burst,
		logger:   logger,
		metrics:  metrics,
	}
}

// Allow reports whether the client identified by key may proceed
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	v, ok := r.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.visitors[key] = v
	}
	v.lastSeen = time.Now()
	r.mu.Unlock()

	return v.limiter.Allow()
}

// Middleware rejects requests over the limit with 429
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		key := clientIP(req)
		if r.Allow(key) {
			next.ServeHTTP(w, req)
			return
		}

		r.logger.Warn("Rate limit exceeded",
			zap.String("ip", key),
			zap.String("path", req.URL.Path),
			zap.String("user_agent", req.UserAgent()),
		)
		if r.metrics != nil {
			r.metrics.RateLimited()
		}

		retry := time.Duration(float64(time.Second) / float64(r.limit))
		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
		http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
	})
}

// Cleanup drops visitors idle for longer than idle
func (r *RateLimiter) Cleanup(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-idle)
	for key, v := range r.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(r.visitors, key)
			removed++
		}
	}
	return removed
}

// RunCleanup runs Cleanup every interval until ctx is done
func (r *RateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Cleanup(interval); n > 0 {
				r.logger.Debug("Dropped idle rate limit buckets", zap.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

// clientIP returns the host part of RemoteAddr, which chi's RealIP
// middleware has already rewritten from forwarding headers
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
