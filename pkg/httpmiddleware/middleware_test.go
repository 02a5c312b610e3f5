package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// --- Helpers ---

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sales/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})
	mux.HandleFunc("POST /api/sales", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})
	return mux
}

// --- Tests ---

func TestWrap_Order(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), mark("outer"), mark("middle"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "middle", "inner"}, calls)
}

func TestRouteFinder(t *testing.T) {
	find := MakeRouteFinder(newMux())

	assert.Equal(t, "GET /api/sales/{id}", find(httptest.NewRequest(http.MethodGet, "/api/sales/42", nil)))
	assert.Equal(t, "POST /api/sales", find(httptest.NewRequest(http.MethodPost, "/api/sales", nil)))
	assert.Empty(t, find(httptest.NewRequest(http.MethodGet, "/nowhere", nil)))
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{name: "generated when missing", incoming: "", reuse: false},
		{name: "reused when valid", incoming: "till-7-0001", reuse: true},
		{name: "replaced when too long", incoming: strings.Repeat("a", 129), reuse: false},
		{name: "replaced when not printable", incoming: "bad\x01id", reuse: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-ID", tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
			if tt.reuse {
				assert.Equal(t, tt.incoming, seen)
			} else {
				assert.NotEqual(t, tt.incoming, seen)
			}
		})
	}
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mux := newMux()
	find := MakeRouteFinder(mux)

	h := Wrap(mux,
		RequestID(),
		InjectLogger(zap.New(core)),
		LogRequests(find),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/sales/42", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/sales", nil))

	entries := logs.FilterMessage("Request").All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "req-1", first["request_id"])
	assert.Equal(t, "GET /api/sales/{id}", first["route"])
	assert.Equal(t, int64(http.StatusOK), first["status"])
	assert.Equal(t, int64(2), first["bytes"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusUnprocessableEntity), entries[1].ContextMap()["status"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })

	h := Wrap(panicking, InjectLogger(zap.New(core)), Recovery())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sales", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal error"}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestInstrument(t *testing.T) {
	mux := newMux()
	find := MakeRouteFinder(mux)

	tests := []struct {
		name        string
		middlewares []Middleware
	}{
		{name: "instrumented", middlewares: []Middleware{Instrument("sales-api", find, noopTelemetry{}), Labeler(find)}},
		{name: "labeler alone", middlewares: []Middleware{Labeler(find)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Wrap(mux, tt.middlewares...).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sales/1", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{
		AllowOrigins:     []string{"https://POS.example.com"},
		AllowCredentials: true,
		MaxAge:           600,
	})(okHandler())

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/sales", nil)
		req.Header.Set("Origin", "https://pos.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://POS.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
		assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("actual request exposes headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/sales", nil)
		req.Header.Set("Origin", "https://pos.example.com")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://POS.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Location")
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-RateLimit-Remaining")
	})

	t.Run("credentials disable wildcard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sales", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		w := httptest.NewRecorder()
		CORS(CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true})(okHandler()).ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sales", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("wildcard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sales", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		w := httptest.NewRecorder()
		CORS(CORSConfig{})(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
