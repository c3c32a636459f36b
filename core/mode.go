package core

import (
	"fmt"
	"strings"
)

// Mode is the strategy used to coax structured output from a completion call.
type Mode string

const (
	// ModeFunctions forces a legacy function call whose parameters mirror the schema.
	ModeFunctions Mode = "FUNCTIONS"
	// ModeTools forces a tool call whose parameters mirror the schema.
	ModeTools Mode = "TOOLS"
	// ModeJSON requests a json_object response and describes the schema in a system message.
	ModeJSON Mode = "JSON"
	// ModeMarkdownJSON asks for a ```json fenced block in plain text.
	ModeMarkdownJSON Mode = "MD_JSON"
	// ModeJSONSchema requests a json_schema response format.
	ModeJSONSchema Mode = "JSON_SCHEMA"
)

// Modes lists every extraction mode in a stable order.
var Modes = []Mode{ModeFunctions, ModeTools, ModeJSON, ModeMarkdownJSON, ModeJSONSchema}

// ParseMode parses a mode name, case-insensitively. "md-json" and "md_json"
// are both accepted.
func ParseMode(s string) (Mode, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for _, m := range Modes {
		if string(m) == norm {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (valid: %v)", s, Modes)
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}

// streamsArguments reports whether the mode's payload arrives as tool or
// function call arguments rather than assistant text.
func (m Mode) streamsArguments() bool {
	return m == ModeTools || m == ModeFunctions
}
