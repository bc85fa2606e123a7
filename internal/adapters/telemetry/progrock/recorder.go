// Package progrock implements the Tracer port on vito/progrock, giving
// each package fetch a progress vertex.
package progrock

import (
	"context"
	"fmt"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/grip/internal/core/ports"
)

// Recorder implements ports.Tracer using progrock.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a Recorder with a default tape.
func New() *Recorder {
	return NewRecorder(progrock.NewTape())
}

// NewRecorder creates a Recorder with the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{
		w:   w,
		rec: progrock.NewRecorder(w),
	}
}

// Start records a new vertex for the unit of work.
func (r *Recorder) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Internal {
		return ctx, &noopSpan{}
	}
	d := digest.FromString(name)
	v := r.rec.Vertex(d, name)
	return ctx, &Span{vertex: v}
}

// EmitPlan announces the planned fetch set as a vertex group.
func (r *Recorder) EmitPlan(_ context.Context, names []string) {
	for _, name := range names {
		r.rec.Vertex(digest.FromString("plan:"+name), name)
	}
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Span implements ports.Span wrapping a progrock vertex recorder.
type Span struct {
	vertex *progrock.VertexRecorder
	err    error
}

// Write forwards progress output to the vertex's stdout stream.
func (s *Span) Write(p []byte) (int, error) {
	return s.vertex.Stdout().Write(p)
}

// End completes the vertex, carrying any recorded error.
func (s *Span) End() {
	s.vertex.Done(s.err)
}

// RecordError marks the vertex as failed when Done runs.
func (s *Span) RecordError(err error) {
	s.err = err
}

// SetAttribute renders the attribute into the vertex output.
func (s *Span) SetAttribute(key string, value any) {
	_, _ = fmt.Fprintf(s.vertex.Stdout(), "%s=%v\n", key, value)
}

type noopSpan struct{}

func (s *noopSpan) Write(p []byte) (int, error) { return len(p), nil }
func (s *noopSpan) End()                        {}
func (s *noopSpan) RecordError(_ error)         {}
func (s *noopSpan) SetAttribute(_ string, _ any) {
}
