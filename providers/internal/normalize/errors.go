// Package normalize maps upstream HTTP and transport failures onto the core
// error sentinels shared by every transport.
package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/petal-labs/instructor/core"
)

// errorEnvelope covers the OpenAI shape {"error":{"message","type","code"}}
// and the Anthropic shape {"type":"error","error":{"type","message"}}.
// Some gateways send code as a number, so it is decoded loosely.
type errorEnvelope struct {
	Error struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
	Message string `json:"message"`
}

func (e *errorEnvelope) code() string {
	raw := e.Error.Code
	if len(raw) == 0 || string(raw) == "null" {
		return e.Error.Type
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// HTTPError builds a ProviderError from an error response body.
func HTTPError(transport string, status int, body []byte, requestID string) error {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)

	message := env.Error.Message
	if message == "" {
		message = env.Message
	}
	if message == "" {
		message = http.StatusText(status)
	}

	return &core.ProviderError{
		Provider:  transport,
		Status:    status,
		RequestID: requestID,
		Code:      env.code(),
		Message:   message,
		Err:       SentinelForStatus(status),
	}
}

// NetworkError wraps a failed round trip. Context cancellation and
// deadlines are returned unchanged so callers can match them directly.
func NetworkError(transport string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &core.ProviderError{
		Provider: transport,
		Message:  err.Error(),
		Err:      core.ErrNetwork,
	}
}

// DecodeError wraps a malformed upstream body.
func DecodeError(transport string, err error) error {
	return &core.ProviderError{
		Provider: transport,
		Message:  err.Error(),
		Err:      core.ErrDecode,
	}
}

// SentinelForStatus maps an HTTP status code to a core sentinel error.
func SentinelForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.ErrUnauthorized
	case status == http.StatusNotFound:
		return core.ErrNotFound
	case status == http.StatusTooManyRequests:
		return core.ErrRateLimited
	case status >= 500:
		return core.ErrServer
	default:
		return core.ErrBadRequest
	}
}
