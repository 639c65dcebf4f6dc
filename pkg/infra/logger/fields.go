// Package logger carries request-scoped logging fields through context.Context.
package logger

import (
	"context"
	"maps"

	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
)

type contextKey int

const loggerFieldsKey contextKey = iota

type loggerFields map[string]any

func fieldsFrom(ctx context.Context) loggerFields {
	if lf, ok := ctx.Value(loggerFieldsKey).(loggerFields); ok {
		return lf
	}
	return nil
}

// withField copies the field set so parent contexts never observe the write.
func withField(ctx context.Context, key string, value any) context.Context {
	lf := make(loggerFields, len(fieldsFrom(ctx))+1)
	maps.Copy(lf, fieldsFrom(ctx))
	lf[key] = value
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// WithRequestID adds request_id to the context logger fields.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return withField(ctx, "request_id", requestID)
}

// WithSessionID adds session_id to the context logger fields.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return withField(ctx, "session_id", sessionID)
}

// WithSource adds the ingested document source to the context logger fields.
func WithSource(ctx context.Context, source string) context.Context {
	if source == "" {
		return ctx
	}
	return withField(ctx, "source", source)
}

// GetContextFields returns the context fields as a key-value slice,
// including trace_id and span_id of a recording span.
func GetContextFields(ctx context.Context) []any {
	lf := fieldsFrom(ctx)
	out := make([]any, 0, len(lf)*2+4)
	for k, v := range lf {
		out = append(out, k, v)
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		out = append(out, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// GetLogger returns the global logger enriched with the context fields.
func GetLogger(ctx context.Context) core.Logger {
	base := logger.Global()
	fields := GetContextFields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
