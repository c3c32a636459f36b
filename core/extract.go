package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/petal-labs/instructor/schema"
)

// RepairPrefix starts the user message that asks the model to fix a
// payload that failed validation. The validator's error text follows it.
const RepairPrefix = "Please correct the function call; errors encountered:\n "

// CreateRequest is a chat request plus the structured output it must
// produce.
type CreateRequest[T any] struct {
	ChatRequest

	// ResponseModel is the target schema. Required.
	ResponseModel *schema.ResponseModel[T]

	// MaxRetries bounds the extra attempts after the first one. Transport,
	// parse and validation failures share the budget. Zero means a single
	// failure is returned to the caller. Ignored by CreateStream.
	MaxRetries int
}

// Meta is accounting data returned beside an extracted value.
type Meta struct {
	// Usage is the transport's token accounting, or nil if none was reported.
	Usage *TokenUsage `json:"usage,omitempty"`
	// UsageEstimated is set when Usage was computed locally.
	UsageEstimated bool `json:"usage_estimated,omitempty"`
	// Attempts is the number of transport round trips made.
	Attempts int `json:"attempts"`
	// CallID correlates log lines and telemetry events of one call.
	CallID string `json:"call_id"`
}

// Result is a validated value and its metadata.
type Result[T any] struct {
	Value T
	Meta  Meta
}

func specOf[T any](rm *schema.ResponseModel[T]) ResponseSpec {
	return ResponseSpec{
		Name:        rm.Name(),
		Description: rm.Description(),
		Schema:      rm.JSONSchema(),
		Strict:      rm.Strict(),
	}
}

// Create extracts a value of type T with a non-streaming completion.
//
// The request is built for the client's mode and sent at most
// req.MaxRetries+1 times, sequentially. After a validation failure the
// next attempt carries the previous payload as an assistant message and a
// user message starting with RepairPrefix. Parse and transport failures
// resend the same conversation. When the budget is spent the last error
// is returned as-is: a *schema.ValidationError, a *ParseError or the
// transport's own error.
func Create[T any](ctx context.Context, c *Client, req CreateRequest[T]) (*Result[T], error) {
	if req.ResponseModel == nil {
		return nil, &ConfigurationError{Op: "create", Err: ErrNoResponseModel}
	}
	if err := c.checkModel(ctx, "create", req.Model); err != nil {
		return nil, err
	}

	base := req.ChatRequest
	if base.Stream {
		c.logf(ctx, slog.LevelWarn, "stream flag not supported by Create, ignoring; use CreateStream")
	}
	base.Stream = false
	built := c.prepare(&base, specOf(req.ResponseModel))

	callID := uuid.NewString()
	maxRetries := max(req.MaxRetries, 0)

	var (
		attempts         int
		lastMessage      *string
		validationIssues string
	)
	for {
		outgoing := built
		if validationIssues != "" {
			outgoing = withRepair(built, lastMessage, validationIssues)
		}

		value, resp, raw, err := attempt(ctx, c, req.ResponseModel, outgoing, callID, attempts)
		if err == nil {
			meta := Meta{Attempts: attempts + 1, CallID: callID}
			if resp.Usage != nil {
				u := *resp.Usage
				meta.Usage = &u
			}
			return &Result[T]{Value: value, Meta: meta}, nil
		}

		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			validationIssues = ve.Message
			lastMessage = &raw
		}

		if attempts >= maxRetries {
			c.logf(ctx, slog.LevelError, "extraction failed, retries exhausted",
				"call_id", callID, "attempts", attempts+1, "error", err)
			return nil, err
		}
		attempts++
		c.logf(ctx, slog.LevelWarn, "extraction attempt failed, retrying",
			"call_id", callID, "attempt", attempts, "max_retries", maxRetries, "error", err)

		if werr := sleep(ctx, c.backoff.Delay(attempts-1, err)); werr != nil {
			return nil, werr
		}
	}
}

// attempt performs one round trip and validates its payload. raw is the
// extracted payload, set whenever one could be extracted.
func attempt[T any](ctx context.Context, c *Client, rm *schema.ResponseModel[T], req *ChatRequest, callID string, n int) (value T, resp *ChatResponse, raw string, err error) {
	start := time.Now()
	c.telemetry.OnAttemptStart(AttemptStartEvent{
		CallID:   callID,
		Provider: c.provider,
		Mode:     c.mode,
		Model:    req.Model,
		Attempt:  n,
		Start:    start,
	})
	c.logf(ctx, slog.LevelDebug, "calling transport",
		"call_id", callID, "attempt", n, "model", req.Model, "messages", len(req.Messages))

	defer func() {
		var usage *TokenUsage
		if resp != nil {
			usage = resp.Usage
		}
		c.telemetry.OnAttemptEnd(AttemptEndEvent{
			CallID:   callID,
			Provider: c.provider,
			Mode:     c.mode,
			Model:    req.Model,
			Attempt:  n,
			Start:    start,
			End:      time.Now(),
			Usage:    usage,
			Outcome:  outcomeOf(err),
			Err:      err,
		})
	}()

	resp, err = c.transport.Chat(ctx, req)
	if err != nil {
		return value, nil, "", err
	}

	raw, err = ExtractPayload(resp, c.mode, rm.Name())
	if err != nil {
		return value, resp, "", err
	}
	instance, err := decodePayload(raw, c.mode)
	if err != nil {
		return value, resp, raw, err
	}
	if err = rm.Validate(instance); err != nil {
		return value, resp, raw, err
	}
	value, err = rm.Decode(instance)
	return value, resp, raw, err
}

// withRepair extends req's conversation with the previous payload and a
// correction instruction.
func withRepair(req *ChatRequest, lastMessage *string, issues string) *ChatRequest {
	out := req.Clone()
	if lastMessage != nil {
		out.Messages = append(out.Messages, Message{Role: RoleAssistant, Content: *lastMessage})
	}
	out.Messages = append(out.Messages, Message{Role: RoleUser, Content: RepairPrefix + issues})
	return out
}

func outcomeOf(err error) Outcome {
	var ve *schema.ValidationError
	var pe *ParseError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &ve):
		return OutcomeValidationError
	case errors.As(err, &pe):
		return OutcomeParseError
	default:
		return OutcomeTransportError
	}
}
