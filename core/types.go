// Package core provides the instructor client, extraction modes and the
// structured-output completion loop.
package core

import (
	"encoding/json"
	"slices"
)

// ModelID is a string identifier for a model.
// Using string avoids coupling to provider-specific enums.
type ModelID string

// Role represents a message participant role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in a conversation.
type Message struct {
	Role         Role          `json:"role"`
	Content      string        `json:"content,omitempty"`
	Name         string        `json:"name,omitempty"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID   string        `json:"tool_call_id,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolCall represents a tool invocation requested by the model.
// Arguments MUST preserve the raw JSON text the model produced.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// FunctionCall is the legacy single function invocation.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// FunctionDefinition describes a tool or legacy function offered to the model.
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
	Strict      bool            `json:"strict,omitempty"`
}

// ResponseFormatType selects the provider-side output constraint.
type ResponseFormatType string

const (
	ResponseFormatText       ResponseFormatType = "text"
	ResponseFormatJSONObject ResponseFormatType = "json_object"
	ResponseFormatJSONSchema ResponseFormatType = "json_schema"
)

// ResponseFormat is the response_format hint of a chat request.
//
// For json_schema, Name, Schema and Strict populate the nested json_schema
// object. For json_object, a non-empty Schema is sent as a sibling "schema"
// field, which some OpenAI-compatible hosts accept.
type ResponseFormat struct {
	Type   ResponseFormatType `json:"type"`
	Name   string             `json:"name,omitempty"`
	Schema json.RawMessage    `json:"schema,omitempty"`
	Strict bool               `json:"strict,omitempty"`
}

// ChatRequest represents a chat-completions request.
type ChatRequest struct {
	Model       ModelID   `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float32  `json:"temperature,omitempty"`
	TopP        *float32  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Seed        *int      `json:"seed,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
	Stream      bool      `json:"stream,omitempty"`

	Tools          []FunctionDefinition `json:"tools,omitempty"`
	ToolChoice     string               `json:"tool_choice,omitempty"`
	Functions      []FunctionDefinition `json:"functions,omitempty"`
	FunctionCall   string               `json:"function_call,omitempty"`
	ResponseFormat *ResponseFormat      `json:"response_format,omitempty"`
}

// Clone returns a deep copy of the request. Slices and pointer fields are
// not shared with the receiver.
func (r *ChatRequest) Clone() *ChatRequest {
	if r == nil {
		return nil
	}
	out := *r
	out.Messages = slices.Clone(r.Messages)
	out.Stop = slices.Clone(r.Stop)
	out.Tools = slices.Clone(r.Tools)
	out.Functions = slices.Clone(r.Functions)
	if r.ResponseFormat != nil {
		rf := *r.ResponseFormat
		out.ResponseFormat = &rf
	}
	out.Temperature = clonePtr(r.Temperature)
	out.TopP = clonePtr(r.TopP)
	out.MaxTokens = clonePtr(r.MaxTokens)
	out.Seed = clonePtr(r.Seed)
	return &out
}

func clonePtr[V any](p *V) *V {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ChatResponse represents a response from a chat model.
// For providers returning multiple choices, only the first choice is used.
type ChatResponse struct {
	ID           string        `json:"id"`
	Model        ModelID       `json:"model"`
	Output       string        `json:"output"`
	Usage        *TokenUsage   `json:"usage,omitempty"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// HasToolCalls reports whether the response contains any tool calls.
func (r *ChatResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// FirstToolCall returns the first tool call, or nil if there are none.
func (r *ChatResponse) FirstToolCall() *ToolCall {
	if len(r.ToolCalls) > 0 {
		return &r.ToolCalls[0]
	}
	return nil
}

// ChatChunk represents an incremental streaming response.
// Delta carries assistant text; ArgumentsDelta carries tool or function
// call argument text.
type ChatChunk struct {
	Delta          string `json:"delta,omitempty"`
	ArgumentsDelta string `json:"arguments_delta,omitempty"`
}
