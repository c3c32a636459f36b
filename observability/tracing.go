package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/instructor/core"
)

// TracerName is the instrumentation scope of spans created by Tracing.
const TracerName = "github.com/petal-labs/instructor"

// Tracing records one OpenTelemetry span per attempt.
//
// Hook events carry no context, so spans are roots of their own traces.
// Attempts of one call share the instructor.call_id attribute.
type Tracing struct {
	tracer trace.Tracer
}

// NewTracing creates a hook backed by tp. A nil tp uses the global
// provider.
func NewTracing(tp trace.TracerProvider) *Tracing {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracing{tracer: tp.Tracer(TracerName)}
}

// OnAttemptStart implements core.TelemetryHook. The span is written once
// the attempt ends.
func (t *Tracing) OnAttemptStart(core.AttemptStartEvent) {}

// OnAttemptEnd implements core.TelemetryHook.
func (t *Tracing) OnAttemptEnd(e core.AttemptEndEvent) {
	attrs := []attribute.KeyValue{
		attribute.String("instructor.call_id", e.CallID),
		attribute.String("instructor.provider", e.Provider.String()),
		attribute.String("instructor.mode", e.Mode.String()),
		attribute.String("gen_ai.request.model", string(e.Model)),
		attribute.Int("instructor.attempt", e.Attempt),
		attribute.Bool("instructor.stream", e.Stream),
		attribute.String("instructor.outcome", string(e.Outcome)),
	}
	if e.Usage != nil {
		attrs = append(attrs,
			attribute.Int("gen_ai.usage.input_tokens", e.Usage.PromptTokens),
			attribute.Int("gen_ai.usage.output_tokens", e.Usage.CompletionTokens),
		)
	}

	_, span := t.tracer.Start(context.Background(), "instructor.attempt",
		trace.WithTimestamp(e.Start),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, string(e.Outcome))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.End))
}

// Multi fans events out to every non-nil hook in order.
func Multi(hooks ...core.TelemetryHook) core.TelemetryHook {
	var hs multiHook
	for _, h := range hooks {
		if h != nil {
			hs = append(hs, h)
		}
	}
	return hs
}

type multiHook []core.TelemetryHook

func (m multiHook) OnAttemptStart(e core.AttemptStartEvent) {
	for _, h := range m {
		h.OnAttemptStart(e)
	}
}

func (m multiHook) OnAttemptEnd(e core.AttemptEndEvent) {
	for _, h := range m {
		h.OnAttemptEnd(e)
	}
}

var _ core.TelemetryHook = (*Tracing)(nil)
