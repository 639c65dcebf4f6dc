package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func toMap(kv []any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func TestContextFields(t *testing.T) {
	assert.Nil(t, GetContextFields(context.Background()))

	parent := WithRequestID(context.Background(), "req-1")
	child := WithSessionID(parent, "sess-1")
	child = WithSource(child, "handbook")
	child = WithSessionID(child, "")

	assert.Equal(t, map[string]any{"request_id": "req-1"}, toMap(GetContextFields(parent)))
	assert.Equal(t, map[string]any{
		"request_id": "req-1",
		"session_id": "sess-1",
		"source":     "handbook",
	}, toMap(GetContextFields(child)))
}

func TestTraceFields(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	fields := toMap(GetContextFields(ctx))
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
	assert.NotNil(t, GetLogger(ctx))
}
