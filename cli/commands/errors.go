package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/petal-labs/instructor/core"
	"github.com/petal-labs/instructor/schema"
)

// Exit codes.
const (
	ExitSuccess    = 0
	ExitValidation = 1 // bad flags, config or credentials
	ExitProvider   = 2
	ExitNetwork    = 3
	ExitExtraction = 4 // output never matched the schema
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// ExitCode returns the process exit status.
func (e *exitError) ExitCode() int { return e.code }

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// classify picks an exit code and a short error type for err.
func classify(err error) (int, string) {
	var (
		cfgErr *core.ConfigurationError
		valErr *schema.ValidationError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ExitValidation, "configuration_error"
	case errors.As(err, &valErr):
		return ExitExtraction, "validation_error"
	case errors.Is(err, core.ErrParse):
		return ExitExtraction, "parse_error"
	case errors.Is(err, core.ErrNetwork):
		return ExitNetwork, "network_error"
	default:
		return ExitProvider, "provider_error"
	}
}

// handleError reports err on stderr and wraps it with its exit code.
func (a *App) handleError(err error) error {
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	code, kind := classify(err)

	if a.jsonOutput {
		body := map[string]any{"type": kind, "message": err.Error()}
		var pe *core.ProviderError
		if errors.As(err, &pe) {
			body["provider"] = pe.Provider
			body["status"] = pe.Status
			body["code"] = pe.Code
			body["request_id"] = pe.RequestID
		}
		enc := json.NewEncoder(a.stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{"error": body})
	} else {
		var pe *core.ProviderError
		if errors.As(err, &pe) && pe.RequestID != "" {
			fmt.Fprintf(a.stderr, "  provider: %s, request id: %s\n", pe.Provider, pe.RequestID)
		}
	}
	return exitWithCode(code, err)
}
