// Package tracing helps with the propagation of tracing spans through
// context in the engine and its HTTP API.
package tracing

import (
	"context"
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jconfig "github.com/uber/jaeger-client-go/config"

	"github.com/redesblock/stash/core/logging"
)

// LogField is the log field holding the trace id, when available.
const LogField = "traceID"

// Options for tracer creation.
type Options struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

// Tracer connects to the tracing backend and handles span creation and
// context propagation.
type Tracer struct {
	tracer opentracing.Tracer
}

// NewTracer creates a new Tracer and returns a closer which needs to be
// closed when the Tracer is no longer used to flush remaining traces.
func NewTracer(o *Options) (*Tracer, io.Closer, error) {
	if o == nil {
		o = new(Options)
	}

	cfg := jconfig.Configuration{
		Disabled:    !o.Enabled,
		ServiceName: o.ServiceName,
		Sampler: &jconfig.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jconfig.ReporterConfig{
			LogSpans:           false,
			LocalAgentHostPort: o.Endpoint,
		},
	}

	t, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, nil, err
	}
	return &Tracer{tracer: t}, closer, nil
}

func noopTracer() *Tracer {
	return &Tracer{tracer: new(opentracing.NoopTracer)}
}

// StartSpanFromContext starts a new span following the span in the
// context, if any. The returned logger carries the trace id.
func (t *Tracer) StartSpanFromContext(ctx context.Context, operationName string, l logging.Logger, opts ...opentracing.StartSpanOption) (opentracing.Span, logging.Logger, context.Context) {
	if t == nil {
		t = noopTracer()
	}

	var span opentracing.Span
	if parentContext := FromContext(ctx); parentContext != nil {
		opts = append(opts, opentracing.ChildOf(parentContext))
		span = t.tracer.StartSpan(operationName, opts...)
	} else {
		span = t.tracer.StartSpan(operationName, opts...)
	}
	sc := span.Context()
	return span, loggerWithTraceID(sc, l), WithContext(ctx, sc)
}

type contextKey struct{}

// WithContext adds the span context to the context.
func WithContext(ctx context.Context, c opentracing.SpanContext) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the span context stored in the context, or nil.
func FromContext(ctx context.Context) opentracing.SpanContext {
	c, ok := ctx.Value(contextKey{}).(opentracing.SpanContext)
	if !ok {
		return nil
	}
	return c
}

// NewLoggerWithTraceID returns a logger that adds the trace id field
// from the context, when one is present.
func NewLoggerWithTraceID(ctx context.Context, l logging.Logger) logging.Logger {
	return loggerWithTraceID(FromContext(ctx), l)
}

func loggerWithTraceID(sc opentracing.SpanContext, l logging.Logger) logging.Logger {
	if l == nil {
		return nil
	}
	jsc, ok := sc.(jaeger.SpanContext)
	if !ok {
		return l
	}
	traceID := jsc.TraceID()
	if !traceID.IsValid() {
		return l
	}
	return l.WithField(LogField, traceID.String())
}
