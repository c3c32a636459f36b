package core

import (
	"errors"
	"fmt"
)

// ProviderError represents an error returned by a provider with full context.
type ProviderError struct {
	Provider  string
	Status    int
	RequestID string
	Code      string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (status=%d, code=%s, request_id=%s)",
			e.Provider, e.Message, e.Status, e.Code, e.RequestID)
	}
	return fmt.Sprintf("%s: %s (status=%d, code=%s)",
		e.Provider, e.Message, e.Status, e.Code)
}

// Unwrap returns the underlying error for error chaining.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Sentinel errors for transport classification.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network error")
	ErrDecode       = errors.New("decode error")
)

// Configuration errors. These are never retried.
var (
	ErrUnsupportedMode  = errors.New("mode not supported by provider")
	ErrUnsupportedModel = errors.New("model not supported by provider for mode")
	ErrNoTransport      = errors.New("transport is nil: pass a chat-completions transport to NewClient")
	ErrNoResponseModel  = errors.New("response model required: set CreateRequest.ResponseModel")
)

// ErrParse classifies payloads that are not well-formed structured data.
var ErrParse = errors.New("parse error")

// ConfigurationError reports a provider, mode or model combination the client
// cannot serve. It is raised before any network call.
type ConfigurationError struct {
	Op       string
	Provider Provider
	Mode     Mode
	Model    ModelID
	Err      error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Model != "":
		return fmt.Sprintf("%s: %v (provider=%s, mode=%s, model=%s)", e.Op, e.Err, e.Provider, e.Mode, e.Model)
	case e.Mode != "":
		return fmt.Sprintf("%s: %v (provider=%s, mode=%s)", e.Op, e.Err, e.Provider, e.Mode)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ParseError reports an assistant payload that could not be extracted or
// decoded for the client's mode.
type ParseError struct {
	Mode Mode
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s payload: %v", e.Mode, e.Err)
}

// Unwrap exposes both the ErrParse classification and the decoder error.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}
