package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/grip/internal/core/ports"
)

// OtelTracer implements ports.Tracer on an OpenTelemetry tracer.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer creates a tracer from the global OpenTelemetry provider.
func NewOtelTracer() *OtelTracer {
	return &OtelTracer{tracer: otel.Tracer("go.trai.ch/grip")}
}

// NewOtelTracerWithProvider creates a tracer from an explicit SDK
// provider. Tests pass a provider backed by an in-memory exporter.
func NewOtelTracerWithProvider(tp *sdktrace.TracerProvider) *OtelTracer {
	return &OtelTracer{tracer: tp.Tracer("go.trai.ch/grip")}
}

// Start creates a new span.
func (t *OtelTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	ctx, span := t.tracer.Start(ctx, name)
	if cfg.Internal {
		span.SetAttributes(attribute.Bool("grip.internal", true))
	}
	return ctx, &OtelSpan{span: span}
}

// EmitPlan records the planned package set as an event on the current
// span, if any.
func (t *OtelTracer) EmitPlan(ctx context.Context, names []string) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("plan", trace.WithAttributes(attribute.StringSlice("packages", names)))
}

// OtelSpan adapts an OpenTelemetry span to ports.Span.
type OtelSpan struct {
	span trace.Span
}

// End completes the span.
func (s *OtelSpan) End() {
	s.span.End()
}

// RecordError records an error for the span.
func (s *OtelSpan) RecordError(err error) {
	s.span.RecordError(err)
}

// SetAttribute adds a key-value pair to the span.
func (s *OtelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// Write records progress output as a span event.
func (s *OtelSpan) Write(p []byte) (int, error) {
	s.span.AddEvent("output", trace.WithAttributes(attribute.String("data", string(p))))
	return len(p), nil
}
