package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	options "github.com/kart-io/sentinel-rag/pkg/options/tracing"
)

func TestOptionsValidate(t *testing.T) {
	valid := func() *options.Options {
		o := options.NewOptions()
		o.Enabled = true
		return o
	}

	tests := []struct {
		name    string
		mutate  func(o *options.Options)
		wantErr bool
	}{
		{name: "defaults enabled", mutate: func(*options.Options) {}},
		{name: "disabled skips checks", mutate: func(o *options.Options) { o.Enabled = false; o.ServiceName = "" }},
		{name: "missing service name", mutate: func(o *options.Options) { o.ServiceName = "" }, wantErr: true},
		{name: "missing endpoint", mutate: func(o *options.Options) { o.Endpoint = "" }, wantErr: true},
		{name: "stdout needs no endpoint", mutate: func(o *options.Options) { o.ExporterType = options.ExporterStdout; o.Endpoint = "" }},
		{name: "bad exporter", mutate: func(o *options.Options) { o.ExporterType = "zipkin" }, wantErr: true},
		{name: "bad sampler", mutate: func(o *options.Options) { o.SamplerType = "sometimes" }, wantErr: true},
		{name: "ratio out of range", mutate: func(o *options.Options) { o.SamplerRatio = 1.5 }, wantErr: true},
		{name: "zero batch timeout", mutate: func(o *options.Options) { o.BatchTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(o)
			errs := o.Validate()
			if tt.wantErr {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	_, span := p.Tracer("test").Start(context.Background(), "op")
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_NoopExporter(t *testing.T) {
	o := options.NewOptions()
	o.Enabled = true
	o.ExporterType = options.ExporterNoop
	o.SamplerType = options.SamplerAlwaysOn

	p, err := NewProvider(context.Background(), o)
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	ctx, span := StartSpan(context.Background(), "test", "rag.ingest")
	assert.True(t, span.SpanContext().IsValid())
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceID(ctx))

	RecordError(ctx, errors.New("boom"))
	RecordError(ctx, nil)
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, p.Shutdown(ctx))
}

func TestNewProvider_InvalidOptions(t *testing.T) {
	o := options.NewOptions()
	o.Enabled = true
	o.ExporterType = "carrier-pigeon"

	_, err := NewProvider(context.Background(), o)
	assert.Error(t, err)
}

func TestTraceID_Empty(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
	assert.False(t, trace.SpanContextFromContext(context.Background()).IsValid())
}
