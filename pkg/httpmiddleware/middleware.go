// Package httpmiddleware contains net/http middlewares shared by the API
// server: panic recovery, CORS, rate limiting, request ids, logging and
// OpenTelemetry instrumentation.
package httpmiddleware

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Wrap applies middlewares to h. The first middleware is the outermost one.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RouteFinder returns the route pattern serving r, or "" when none matches.
type RouteFinder func(r *http.Request) string

// MakeRouteFinder returns a RouteFinder resolving patterns registered on mux.
func MakeRouteFinder(mux *http.ServeMux) RouteFinder {
	return func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}
}

// InjectLogger stores lg in the request context, tagged with the request id
// when RequestID runs earlier in the chain.
func InjectLogger(lg *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLg := lg
			if id := RequestIDFromContext(r.Context()); id != "" {
				reqLg = lg.With(zap.String("request_id", id))
			}
			next.ServeHTTP(w, r.WithContext(zctx.Base(r.Context(), reqLg)))
		})
	}
}

// LogRequests logs every request with its route, status and duration.
func LogRequests(find RouteFinder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", find(r)),
				zap.Int("status", m.Code),
				zap.Int64("bytes", m.Written),
				zap.Duration("duration", m.Duration),
			}
			lg := zctx.From(r.Context())
			switch {
			case m.Code >= http.StatusInternalServerError:
				lg.Error("Request", fields...)
			case m.Code >= http.StatusBadRequest:
				lg.Warn("Request", fields...)
			default:
				lg.Info("Request", fields...)
			}
		})
	}
}

// Telemetry provides the OpenTelemetry providers used by Instrument.
type Telemetry interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

// Instrument traces and measures requests with otelhttp. Spans are named
// after the matched route so that ids in paths do not explode cardinality.
func Instrument(service string, find RouteFinder, t Telemetry) Middleware {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, service,
			otelhttp.WithTracerProvider(t.TracerProvider()),
			otelhttp.WithMeterProvider(t.MeterProvider()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if route := find(r); route != "" {
					return route
				}
				return r.Method + " unknown"
			}),
		)
	}
}

// Labeler adds the matched route to the otelhttp metric attributes. It must
// run inside Instrument.
func Labeler(find RouteFinder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if route := find(r); route != "" {
				labeler, _ := otelhttp.LabelerFromContext(r.Context())
				labeler.Add(attribute.String("http.route", route))
			}
			next.ServeHTTP(w, r)
		})
	}
}
