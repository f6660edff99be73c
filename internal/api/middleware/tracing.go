package middleware

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Togather-Foundation/conflicts/internal/api"

type routeKey struct{}

// routeSlot receives the matched pattern from CaptureRoute. Middlewares
// between Tracing and the mux copy the request, so the pattern the mux
// records never reaches Tracing's own request value.
type routeSlot struct {
	pattern string
}

// Tracing starts a server span per request and continues any W3C trace
// context sent by the caller. Install it outermost so the span covers the
// whole middleware chain. The span is renamed to the matched route once the
// mux has run, keeping span names low-cardinality.
func Tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	propagator := otel.GetTextMapPropagator()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(r.Method),
				semconv.HTTPURL(r.URL.String()),
				attribute.String("http.user_agent", r.UserAgent()),
				semconv.HTTPScheme(schemeFromRequest(r)),
				semconv.NetHostName(r.Host),
			),
		)
		defer span.End()

		slot := &routeSlot{}
		ctx = context.WithValue(ctx, routeKey{}, slot)

		ww := &tracingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		traced := r.WithContext(ctx)
		next.ServeHTTP(ww, traced)

		if requestID := w.Header().Get("X-Request-ID"); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if traced.Pattern == "" {
			traced.Pattern = slot.pattern
		}
		if route := routePattern(traced); route != "" {
			span.SetName(r.Method + " " + route)
			span.SetAttributes(semconv.HTTPRoute(route))
		}
		span.SetAttributes(semconv.HTTPStatusCode(ww.statusCode))

		if ww.statusCode >= 500 {
			span.SetStatus(codes.Error, http.StatusText(ww.statusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	})
}

// CaptureRoute hands the pattern chosen by the ServeMux back to Tracing. It
// must wrap the mux directly and pass the request through unchanged.
func CaptureRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if slot, ok := r.Context().Value(routeKey{}).(*routeSlot); ok && r.Pattern != "" {
			slot.pattern = r.Pattern
		}
	})
}

// routePattern returns the path part of the ServeMux pattern that served r.
func routePattern(r *http.Request) string {
	pattern := r.Pattern
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == ' ' {
			return pattern[i+1:]
		}
	}
	return pattern
}

type tracingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *tracingResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *tracingResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func schemeFromRequest(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
