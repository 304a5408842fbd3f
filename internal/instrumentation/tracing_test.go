package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("GetTraceID() = %q, want empty", id)
	}
	if id := GetSpanID(context.Background()); id != "" {
		t.Errorf("GetSpanID() = %q, want empty", id)
	}
}

func TestSpans_RecordedWithAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer(TracerName).Start(context.Background(), "parent")
	if GetTraceID(ctx) == "" || GetSpanID(ctx) == "" {
		t.Fatal("expected trace and span ids from a recording span")
	}
	SetSpanError(span, errors.New("boom"))
	SetSpanError(span, nil)
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", ended[0].Status().Code)
	}
}

func TestStartUpstreamSpan_Attributes(t *testing.T) {
	// Uses the global provider, which is a noop unless NewProvider ran.
	ctx, span := StartUpstreamSpan(context.Background(), UpstreamRecall, OperationSpeak,
		attribute.Int(SpanAttrAttempt, 2))
	defer span.End()

	if ctx == nil {
		t.Fatal("expected context")
	}
	SetSpanSuccess(span)

	_, toolSpan := StartToolSpan(ctx, "meetbot_speak", attribute.String(SpanAttrBotID, testBotID))
	toolSpan.End()
}
