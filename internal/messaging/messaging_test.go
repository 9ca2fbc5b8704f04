package messaging

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMessageCarrier(t *testing.T) {
	msg := &kafka.Message{Headers: []kafka.Header{{Key: "existing", Value: []byte("a")}}}
	carrier := NewMessageCarrier(msg)

	carrier.Set("existing", "b")
	carrier.Set("fresh", "c")

	if got := carrier.Get("existing"); got != "b" {
		t.Errorf("expected overwritten header b, got %q", got)
	}
	if got := carrier.Get("fresh"); got != "c" {
		t.Errorf("expected c, got %q", got)
	}
	if got := carrier.Get("missing"); got != "" {
		t.Errorf("expected empty for missing header, got %q", got)
	}
	if len(msg.Headers) != 2 || len(carrier.Keys()) != 2 {
		t.Errorf("expected 2 headers, got %v", carrier.Keys())
	}
}

func TestMessageCarrier_TraceContextRoundTrip(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	prop := propagation.TraceContext{}
	msg := &kafka.Message{}
	prop.Inject(ctx, NewMessageCarrier(msg))

	extracted := trace.SpanContextFromContext(prop.Extract(context.Background(), NewMessageCarrier(msg)))
	if extracted.TraceID() != span.SpanContext().TraceID() {
		t.Errorf("expected trace id %s, got %s", span.SpanContext().TraceID(), extracted.TraceID())
	}
}

func TestInjectExtractTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	msg := &kafka.Message{}
	setHeader(msg, contentTypeHeader, "application/json")
	injectTrace(ctx, msg)

	if got := header(msg, contentTypeHeader); got != "application/json" {
		t.Errorf("expected content type header, got %q", got)
	}
	if header(msg, "traceparent") == "" {
		t.Fatal("expected traceparent header")
	}

	extracted := trace.SpanContextFromContext(extractTrace(context.Background(), msg))
	if extracted.SpanID() != span.SpanContext().SpanID() {
		t.Errorf("expected span id %s, got %s", span.SpanContext().SpanID(), extracted.SpanID())
	}
}

func TestPermanent(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("expected nil for nil error")
	}

	base := errors.New("bad payload")
	err := fmt.Errorf("handle: %w", Permanent(base))
	if !IsPermanent(err) {
		t.Error("expected wrapped permanent error to be detected")
	}
	if !errors.Is(err, base) {
		t.Error("expected permanent error to unwrap to its cause")
	}
	if IsPermanent(base) {
		t.Error("plain error reported as permanent")
	}
}
