package core

import (
	"context"
	"encoding/json"
	"strings"
)

// ChatStream represents a streaming response from a transport.
//
// Channel Rules:
//   - Transports MUST close Ch, Err, and Final when finished
//   - On context cancellation, transports MUST terminate promptly and close channels
//   - Err channel emits at most one error
//   - Final channel emits exactly once on success (or zero times on failure)
//   - Final.Usage is nil when the upstream did not report usage
type ChatStream struct {
	// Ch emits deltas in order. Closed when stream ends.
	Ch <-chan ChatChunk

	// Err emits at most one error. MUST be closed when stream ends.
	Err <-chan error

	// Final is sent once after stream completion with usage and the
	// assembled tool or function calls.
	Final <-chan *ChatResponse
}

// DrainStream accumulates all deltas and returns the final ChatResponse.
// Blocks until the stream completes or ctx is done.
//
// If Final carries no Output, the accumulated text deltas are used. If it
// carries neither tool nor function calls, accumulated argument deltas are
// returned as a FunctionCall.
func DrainStream(ctx context.Context, s *ChatStream) (*ChatResponse, error) {
	if s == nil {
		return nil, ErrBadRequest
	}

	var text, args strings.Builder
	var streamErr error
	var final *ChatResponse

	ch, errCh, finalCh := s.Ch, s.Err, s.Final
	for ch != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				ch = nil
				continue
			}
			text.WriteString(chunk.Delta)
			args.WriteString(chunk.ArgumentsDelta)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				streamErr = err
			}
		case resp, ok := <-finalCh:
			if !ok {
				finalCh = nil
				continue
			}
			final = resp
		}
	}

	if errCh != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err, ok := <-errCh:
			if ok && err != nil {
				streamErr = err
			}
		}
	}
	if streamErr != nil {
		return nil, streamErr
	}

	if final == nil && finalCh != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case resp, ok := <-finalCh:
			if ok {
				final = resp
			}
		}
	}

	if final == nil {
		final = &ChatResponse{}
	}
	if final.Output == "" {
		final.Output = text.String()
	}
	if !final.HasToolCalls() && final.FunctionCall == nil && args.Len() > 0 {
		final.FunctionCall = &FunctionCall{Arguments: json.RawMessage(args.String())}
	}
	return final, nil
}
