package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests a client may make per window.
	Max int
	// WriteMax, when positive, is a separate and usually lower budget for
	// POST, PUT, PATCH and DELETE requests. Writes then do not consume Max.
	WriteMax int
	// Window defaults to DefaultRateLimitWindow when not positive.
	Window time.Duration
	// KeyFunc identifies the client. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
	// Skip exempts requests from limiting, e.g. health checks.
	Skip func(*http.Request) bool
	// Meter records rejected requests. Optional.
	Meter metric.MeterProvider
}

// DefaultRateLimitWindow is used when RateLimitConfig.Window is not positive.
const DefaultRateLimitWindow = time.Minute

// SkipPaths returns a Skip func matching the exact paths given.
func SkipPaths(paths ...string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.URL.Path]
		return ok
	}
}

// window counts requests of one client in the current and previous fixed
// windows. The effective count weights the previous window by how much of it
// still overlaps the sliding window ending now.
type window struct {
	prev, curr float64
	start      time.Time
}

func (w *window) rotate(now time.Time, size time.Duration) {
	elapsed := now.Sub(w.start)
	switch {
	case elapsed >= 2*size:
		w.prev, w.curr = 0, 0
		w.start = now.Truncate(size)
	case elapsed >= size:
		w.prev, w.curr = w.curr, 0
		w.start = now.Truncate(size)
	}
}

func (w *window) effective(now time.Time, size time.Duration) float64 {
	overlap := 1 - now.Sub(w.start).Seconds()/size.Seconds()
	return w.prev*max(overlap, 0) + w.curr
}

type bucket struct {
	limit   int
	mu      sync.Mutex
	windows map[string]*window
}

type rateLimiter struct {
	size    time.Duration
	key     func(*http.Request) string
	skip    func(*http.Request) bool
	reads   *bucket
	writes  *bucket
	limited metric.Int64Counter
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{
		size:  cfg.Window,
		key:   cfg.KeyFunc,
		skip:  cfg.Skip,
		reads: &bucket{limit: cfg.Max, windows: map[string]*window{}},
	}
	if rl.size <= 0 {
		rl.size = DefaultRateLimitWindow
	}
	if rl.key == nil {
		rl.key = ClientIP
	}
	if cfg.WriteMax > 0 {
		rl.writes = &bucket{limit: cfg.WriteMax, windows: map[string]*window{}}
	}

	mp := cfg.Meter
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	counter, err := mp.Meter("httpmiddleware").Int64Counter("http.server.rate_limited",
		metric.WithDescription("Requests rejected by the rate limiter"),
	)
	if err != nil {
		counter, _ = noop.NewMeterProvider().Meter("httpmiddleware").Int64Counter("http.server.rate_limited")
	}
	rl.limited = counter
	return rl
}

func (rl *rateLimiter) bucketFor(r *http.Request) (*bucket, string) {
	if rl.writes == nil {
		return rl.reads, "all"
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return rl.writes, "write"
	default:
		return rl.reads, "read"
	}
}

// take consumes one request from key's budget in b. It reports the remaining
// budget, when the current window ends and whether the request may proceed.
func (rl *rateLimiter) take(b *bucket, key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w, found := b.windows[key]
	if !found {
		w = &window{start: now}
		b.windows[key] = w
	}
	w.rotate(now, rl.size)

	reset = w.start.Add(rl.size)
	used := w.effective(now, rl.size)
	if used >= float64(b.limit) {
		return 0, reset, false
	}
	w.curr++
	return max(int(float64(b.limit)-used-1), 0), reset, true
}

// evict drops clients idle for two windows.
func (rl *rateLimiter) evict(now time.Time) {
	for _, b := range []*bucket{rl.reads, rl.writes} {
		if b == nil {
			continue
		}
		b.mu.Lock()
		for key, w := range b.windows {
			if now.Sub(w.start) >= 2*rl.size {
				delete(b.windows, key)
			}
		}
		b.mu.Unlock()
	}
}

func (rl *rateLimiter) runEviction(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(2 * rl.size)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.evict(now)
			}
		}
	}()
}

// RateLimit limits requests per client with a sliding window. Responses carry
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset; rejected
// ones get 429 with Retry-After.
//
// Idle clients are never evicted. Long running servers should use
// RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newRateLimiter(cfg).middleware
}

// RateLimitWithCleanup is RateLimit plus a goroutine evicting idle clients
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	rl.runEviction(ctx)
	return rl.middleware
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.skip != nil && rl.skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		b, class := rl.bucketFor(r)
		key := rl.key(r)
		remaining, reset, ok := rl.take(b, key, time.Now())

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(b.limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		rl.limited.Add(ctx, 1, metric.WithAttributes(attribute.String("class", class)))
		zctx.From(ctx).Debug("Rate limited",
			zap.String("client", key),
			zap.String("class", class),
		)

		wait := max(time.Until(reset), 0)
		h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})
}

// ClientIP identifies a client by the first X-Forwarded-For hop, then
// X-Real-IP, then the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
