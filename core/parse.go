package core

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	errNoToolCall     = errors.New("response has no tool call")
	errNoFunctionCall = errors.New("response has no function call")
	errEmptyContent   = errors.New("response content is empty")
)

// ExtractPayload returns the raw structured payload of resp for mode.
// In TOOLS mode the call named name is preferred over the first call.
func ExtractPayload(resp *ChatResponse, mode Mode, name string) (string, error) {
	if resp == nil {
		return "", &ParseError{Mode: mode, Err: errEmptyContent}
	}
	switch mode {
	case ModeTools:
		if len(resp.ToolCalls) == 0 {
			return "", &ParseError{Mode: mode, Raw: resp.Output, Err: errNoToolCall}
		}
		call := resp.ToolCalls[0]
		for _, tc := range resp.ToolCalls {
			if tc.Name == name {
				call = tc
				break
			}
		}
		return string(call.Arguments), nil
	case ModeFunctions:
		if resp.FunctionCall == nil {
			return "", &ParseError{Mode: mode, Raw: resp.Output, Err: errNoFunctionCall}
		}
		return string(resp.FunctionCall.Arguments), nil
	case ModeMarkdownJSON:
		out := strings.TrimSpace(resp.Output)
		if out == "" {
			return "", &ParseError{Mode: mode, Err: errEmptyContent}
		}
		return MarkdownJSON(out), nil
	default:
		out := strings.TrimSpace(resp.Output)
		if out == "" {
			return "", &ParseError{Mode: mode, Err: errEmptyContent}
		}
		return out, nil
	}
}

const jsonFence = "```json"

// MarkdownJSON returns the body of the first ```json fenced block in text.
// Without a fence it falls back to the span between the first opening and
// the last closing brace, and then to the trimmed text.
func MarkdownJSON(text string) string {
	if i := strings.Index(text, jsonFence); i >= 0 {
		body := text[i+len(jsonFence):]
		if j := strings.Index(body, "```"); j >= 0 {
			body = body[:j]
		}
		return strings.TrimSpace(body)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// decodePayload parses raw as JSON.
func decodePayload(raw string, mode Mode) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, &ParseError{Mode: mode, Raw: raw, Err: err}
	}
	return v, nil
}
