package observability

import (
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/petal-labs/instructor/core"
)

func newRecordingTracing() (*Tracing, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return NewTracing(tp), sr
}

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracingSuccess(t *testing.T) {
	tr, sr := newRecordingTracing()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tr.OnAttemptEnd(core.AttemptEndEvent{
		CallID: "c1", Provider: core.ProviderOpenAI, Mode: core.ModeTools, Model: "gpt-4o",
		Attempt: 1, Start: start, End: start.Add(2 * time.Second),
		Usage:   &core.TokenUsage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
		Outcome: core.OutcomeSuccess,
	})

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	s := spans[0]
	if s.Name() != "instructor.attempt" {
		t.Errorf("Name = %q", s.Name())
	}
	if !s.StartTime().Equal(start) || s.EndTime().Sub(s.StartTime()) != 2*time.Second {
		t.Errorf("span times = %v..%v", s.StartTime(), s.EndTime())
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("Status = %v, want Ok", s.Status())
	}

	attrs := attrMap(s.Attributes())
	if got := attrs["instructor.call_id"].AsString(); got != "c1" {
		t.Errorf("call_id = %q", got)
	}
	if got := attrs["instructor.mode"].AsString(); got != "TOOLS" {
		t.Errorf("mode = %q", got)
	}
	if got := attrs["instructor.attempt"].AsInt64(); got != 1 {
		t.Errorf("attempt = %d", got)
	}
	if got := attrs["gen_ai.usage.input_tokens"].AsInt64(); got != 12 {
		t.Errorf("input tokens = %d", got)
	}
}

func TestTracingFailure(t *testing.T) {
	tr, sr := newRecordingTracing()
	now := time.Now()

	tr.OnAttemptEnd(core.AttemptEndEvent{
		CallID: "c2", Provider: core.ProviderTogether, Mode: core.ModeJSON, Model: "m",
		Start: now, End: now, Outcome: core.OutcomeParseError, Err: errors.New("bad json"),
	})

	s := sr.Ended()[0]
	if s.Status().Code != codes.Error || s.Status().Description != "parse_error" {
		t.Errorf("Status = %+v", s.Status())
	}
	if len(s.Events()) != 1 || s.Events()[0].Name != "exception" {
		t.Errorf("Events = %+v, want recorded error", s.Events())
	}
	if _, ok := attrMap(s.Attributes())["gen_ai.usage.input_tokens"]; ok {
		t.Error("usage attributes set without usage")
	}
}

type countingHook struct{ starts, ends int }

func (c *countingHook) OnAttemptStart(core.AttemptStartEvent) { c.starts++ }
func (c *countingHook) OnAttemptEnd(core.AttemptEndEvent) { c.ends++ }

func TestMulti(t *testing.T) {
	a, b := &countingHook{}, &countingHook{}
	h := Multi(a, nil, b)
	h.OnAttemptStart(core.AttemptStartEvent{})
	h.OnAttemptEnd(core.AttemptEndEvent{})
	h.OnAttemptEnd(core.AttemptEndEvent{})

	for i, c := range []*countingHook{a, b} {
		if c.starts != 1 || c.ends != 2 {
			t.Errorf("hook %d: starts %d ends %d, want 1 and 2", i, c.starts, c.ends)
		}
	}
}
