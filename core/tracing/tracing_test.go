package tracing_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/redesblock/stash/core/logging"
	"github.com/redesblock/stash/core/tracing"
)

func newTracer(t *testing.T) (*tracing.Tracer, io.Closer) {
	t.Helper()

	tracer, closer, err := tracing.NewTracer(&tracing.Options{
		Enabled:     true,
		ServiceName: "test",
	})
	if err != nil {
		t.Fatal(err)
	}
	return tracer, closer
}

func TestStartSpanFromContext(t *testing.T) {
	tracer, closer := newTracer(t)
	defer closer.Close()

	span, _, ctx := tracer.StartSpanFromContext(context.Background(), "some-operation", nil)
	defer span.Finish()

	if tracing.FromContext(ctx) == nil {
		t.Fatal("got no span context in context")
	}
}

func TestNewLoggerWithTraceID(t *testing.T) {
	tracer, closer := newTracer(t)
	defer closer.Close()

	buf := new(bytes.Buffer)
	logger := logging.New(buf, logrus.InfoLevel)

	span, logger, ctx := tracer.StartSpanFromContext(context.Background(), "some-operation", logger)
	defer span.Finish()

	logger.Info("msg")
	if !bytes.Contains(buf.Bytes(), []byte(tracing.LogField)) {
		t.Errorf("log line %q is missing the %s field", buf.String(), tracing.LogField)
	}

	// a logger derived again from the same context keeps the trace id
	buf.Reset()
	tracing.NewLoggerWithTraceID(ctx, logger).Info("msg")
	if !bytes.Contains(buf.Bytes(), []byte(tracing.LogField)) {
		t.Errorf("log line %q is missing the %s field", buf.String(), tracing.LogField)
	}
}

func TestNoopTracing(t *testing.T) {
	var tracer *tracing.Tracer

	span, _, ctx := tracer.StartSpanFromContext(context.Background(), "some-operation", nil)
	defer span.Finish()

	if ctx == nil {
		t.Fatal("got nil context")
	}
}
