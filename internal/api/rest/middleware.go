package rest

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/domain/errors"
	"github.com/davidleathers/contact-guardian/internal/infrastructure/telemetry"
)

// Middleware wraps a handler
type Middleware func(http.Handler) http.Handler

// HTTPObserver records served requests
type HTTPObserver interface {
	ObserveHTTP(ctx context.Context, method, handler string, status int, d time.Duration)
	ObserveRateLimited(limiter string)
}

type contextKey int

const requestStateKey contextKey = iota

// requestState is shared by every middleware handling one request. The
// route is filled in once the mux has matched a pattern.
type requestState struct {
	id    string
	start time.Time
	route string
}

// RequestIDFromContext returns the request id assigned by the server
func RequestIDFromContext(ctx context.Context) string {
	if st, ok := ctx.Value(requestStateKey).(*requestState); ok {
		return st.id
	}
	return ""
}

func startTimeFromContext(ctx context.Context) (time.Time, bool) {
	if st, ok := ctx.Value(requestStateKey).(*requestState); ok {
		return st.start, true
	}
	return time.Time{}, false
}

func routeFromContext(ctx context.Context) string {
	if st, ok := ctx.Value(requestStateKey).(*requestState); ok && st.route != "" {
		return st.route
	}
	return "unmatched"
}

func chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// requestIDMiddleware assigns each request an id, reusing a valid incoming
// X-Request-ID
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)

		st := &requestState{id: id, start: time.Now()}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestStateKey, st)))
	})
}

// routeMiddleware sits directly in front of the mux and records the
// matched pattern for the outer middleware
func routeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if st, ok := r.Context().Value(requestStateKey).(*requestState); ok {
			st.route = r.Pattern
		}
	})
}

func recoveryMiddleware(base *BaseHandler) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					base.logger.Error("panic recovered",
						zap.String("request_id", RequestIDFromContext(r.Context())),
						zap.Any("panic", rec),
						zap.ByteString("stack", debug.Stack()))
					base.writeError(w, r, errors.NewInternalError(fmt.Sprintf("panic: %v", rec)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func loggingMiddleware(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrapResponseWriter(w)
			next.ServeHTTP(rw, r)

			fields := []zap.Field{
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", routeFromContext(r.Context())),
				zap.Int("status", rw.status),
				zap.Int("bytes", rw.written),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", clientIP(r)),
			}
			l := telemetry.WithTrace(r.Context(), logger)
			switch {
			case rw.status >= 500:
				l.Error("request completed", fields...)
			case rw.status >= 400:
				l.Warn("request completed", fields...)
			default:
				l.Info("request completed", fields...)
			}
		})
	}
}

func tracingMiddleware(tracer trace.Tracer) Middleware {
	propagator := otel.GetTextMapPropagator()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
					attribute.String("http.request_id", RequestIDFromContext(r.Context())),
				))
			defer span.End()

			rw := wrapResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			route := routeFromContext(ctx)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", rw.status),
			)
			if rw.status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(rw.status))
			}
		})
	}
}

func metricsMiddleware(observer HTTPObserver) Middleware {
	return func(next http.Handler) http.Handler {
		if observer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrapResponseWriter(w)
			next.ServeHTTP(rw, r)
			observer.ObserveHTTP(r.Context(), r.Method, routeFromContext(r.Context()), rw.status, time.Since(start))
		})
	}
}

// rateLimitMiddleware rejects clients over their limit. Probe endpoints are
// never limited.
func rateLimitMiddleware(limiter Limiter, observer HTTPObserver, base *BaseHandler, exempt ...string) Middleware {
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			allowed, _ := limiter.Allow(r.Context(), clientIP(r))
			if !allowed {
				if observer != nil {
					observer.ObserveRateLimited(limiter.Name())
				}
				w.Header().Set("Retry-After", "1")
				base.writeError(w, r, errors.NewRateLimitError("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter captures the status and size written by a handler
type responseWriter struct {
	http.ResponseWriter
	status      int
	written     int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

// Hijack lets the websocket upgrader take over the connection
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.status = http.StatusSwitchingProtocols
	rw.wroteHeader = true
	return h.Hijack()
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
