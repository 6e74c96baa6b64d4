package rest

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/davidleathers/contact-guardian/internal/infrastructure/cache"
)

// Limiter decides whether a client may make another request
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Name() string
}

type localLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter creates a per-process token bucket per client
func NewLocalLimiter(rps float64, burst int) Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &localLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

func (l *localLimiter) Name() string { return "local" }

func (l *localLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cl, ok := l.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1), nil
}

// evict drops clients idle for longer than the idle window
func (l *localLimiter) evict() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idle)
	n := 0
	for key, cl := range l.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			n++
		}
	}
	return n
}

// RunEviction periodically forgets idle clients until ctx is done. It is a
// no-op for limiters that keep no local state.
func RunEviction(ctx context.Context, l Limiter, interval time.Duration) {
	local, ok := l.(*localLimiter)
	if !ok || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			local.evict()
		}
	}
}

type distributedLimiter struct {
	backend cache.RateLimiter
	limit   int
	window  time.Duration
	logger  *zap.Logger
}

// NewDistributedLimiter shares a sliding window per client across
// processes through redis. Backend errors let the request through.
func NewDistributedLimiter(backend cache.RateLimiter, limit int, window time.Duration, logger *zap.Logger) Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = time.Minute
	}
	return &distributedLimiter{backend: backend, limit: limit, window: window, logger: logger}
}

func (d *distributedLimiter) Name() string { return "redis" }

func (d *distributedLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := d.backend.Allow(ctx, "api:"+key, d.limit, d.window)
	if err != nil {
		d.logger.Warn("distributed rate limit check failed, allowing request",
			zap.String("client", key), zap.Error(err))
		return true, err
	}
	return ok, nil
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
