// Package health serves the /livez and /readyz endpoints backed by periodic checks.
//
// Every check runs in its own goroutine. A check turns unhealthy only after
// FailureThreshold consecutive failures and healthy again after
// SuccessThreshold consecutive successes, so a single slow ping does not
// flap readiness.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// CheckOption configures a registered check.
type CheckOption func(c *check)

// WithFailureThreshold sets how many consecutive failures mark a check
// unhealthy. Defaults to 3.
func WithFailureThreshold(n int) CheckOption {
	return func(c *check) {
		if n > 0 {
			c.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes mark a check
// healthy again. Defaults to 1.
func WithSuccessThreshold(n int) CheckOption {
	return func(c *check) {
		if n > 0 {
			c.successThreshold = n
		}
	}
}

type check struct {
	name             string
	timeout          time.Duration
	fn               CheckFunc
	failureThreshold int
	successThreshold int

	// Read by HTTP handlers, written by run.
	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	// Owned by the goroutine calling run.
	fails int
	oks   int
}

// run executes the check once and reports whether its health flipped.
func (c *check) run(ctx context.Context) (changed bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)

	was := c.healthy.Load()
	if err != nil {
		c.oks = 0
		c.fails++
		if c.fails >= c.failureThreshold {
			c.healthy.Store(false)
		}
	} else {
		c.fails = 0
		c.oks++
		if c.oks >= c.successThreshold {
			c.healthy.Store(true)
		}
	}
	return was != c.healthy.Load()
}

func (c *check) failure() (string, bool) {
	if c.healthy.Load() {
		return "", false
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error(), true
	}
	return "check is unhealthy", true
}

// Health tracks liveness and readiness of the service.
type Health struct {
	lg    *zap.Logger
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New creates a Health in the not-ready state. State changes of checks are
// logged to lg.
func New(lg *zap.Logger) *Health {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Health{lg: lg}
}

// AddLivenessCheck registers a check that decides whether the process should
// be restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...CheckOption) {
	c := newCheck(name, timeout, fn, opts)
	h.mu.Lock()
	h.liveness = append(h.liveness, c)
	h.mu.Unlock()
}

// AddReadinessCheck registers a check that decides whether the service may
// receive traffic, e.g. database or broker connectivity.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...CheckOption) {
	c := newCheck(name, timeout, fn, opts)
	h.mu.Lock()
	h.readiness = append(h.readiness, c)
	h.mu.Unlock()
}

func newCheck(name string, timeout time.Duration, fn CheckFunc, opts []CheckOption) *check {
	c := &check{
		name:             name,
		timeout:          timeout,
		fn:               fn,
		failureThreshold: 3,
		successThreshold: 1,
	}
	for _, o := range opts {
		o(c)
	}
	c.healthy.Store(true)
	return c
}

// Start runs every registered check immediately and then once per interval
// until Stop is called or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := slices.Concat(h.liveness, h.readiness)
	h.mu.Unlock()

	for _, c := range checks {
		go h.loop(ctx, c, interval)
	}
}

func (h *Health) loop(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if c.run(ctx) {
			h.logChange(c)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *Health) logChange(c *check) {
	if msg, failed := c.failure(); failed {
		h.lg.Warn("Health check failing", zap.String("check", c.name), zap.String("error", msg))
		return
	}
	h.lg.Info("Health check recovered", zap.String("check", c.name))
}

// Stop cancels the check goroutines. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady marks the service ready after start-up or not ready while
// draining on shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(failures(h.snapshot(&h.readiness))) == 0
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.snapshot(&h.liveness)))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := failures(h.snapshot(&h.readiness))
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

func (h *Health) snapshot(list *[]*check) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(*list)
}

func failures(checks []*check) map[string]string {
	out := make(map[string]string)
	for _, c := range checks {
		if msg, failed := c.failure(); failed {
			out[c.name] = msg
		}
	}
	return out
}

// writeStatus renders {"status":"ok"} or {"status":"unhealthy","checks":{...}}
// with checks in name order.
func writeStatus(w http.ResponseWriter, failed map[string]string) {
	status, code := "ok", http.StatusOK
	if len(failed) > 0 {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(status) })
		if len(failed) == 0 {
			return
		}
		names := make([]string, 0, len(failed))
		for name := range failed {
			names = append(names, name)
		}
		slices.Sort(names)
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, name := range names {
					e.Field(name, func(e *jx.Encoder) { e.Str(failed[name]) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
