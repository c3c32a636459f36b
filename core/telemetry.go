package core

import "time"

// TelemetryHook receives one start and one end notification per transport
// round trip made by Create or CreateStream. Implementations can use this
// for metrics or tracing.
//
// Events carry operational metadata only. Prompts, model output and API
// keys are never included, so events can be exported freely.
type TelemetryHook interface {
	OnAttemptStart(e AttemptStartEvent)
	OnAttemptEnd(e AttemptEndEvent)
}

// Outcome classifies how an attempt ended.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeTransportError  Outcome = "transport_error"
	OutcomeParseError      Outcome = "parse_error"
	OutcomeValidationError Outcome = "validation_error"
)

// AttemptStartEvent describes an attempt about to call the transport.
type AttemptStartEvent struct {
	CallID   string
	Provider Provider
	Mode     Mode
	Model    ModelID
	Attempt  int // 0 for the first call
	Stream   bool
	Start    time.Time
}

// AttemptEndEvent describes a finished attempt. Err holds the failure, if
// any, classified by Outcome.
type AttemptEndEvent struct {
	CallID   string
	Provider Provider
	Mode     Mode
	Model    ModelID
	Attempt  int
	Stream   bool
	Start    time.Time
	End      time.Time
	Usage    *TokenUsage
	Outcome  Outcome
	Err      error
}

// Duration returns the elapsed time of the attempt.
func (e AttemptEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// NoopTelemetryHook is a no-op implementation of TelemetryHook.
type NoopTelemetryHook struct{}

func (NoopTelemetryHook) OnAttemptStart(AttemptStartEvent) {}

func (NoopTelemetryHook) OnAttemptEnd(AttemptEndEvent) {}

var _ TelemetryHook = NoopTelemetryHook{}
