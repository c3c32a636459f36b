package core

import (
	"encoding/json"
	"fmt"
)

// ResponseSpec is the schema-derived description of the desired output.
type ResponseSpec struct {
	Name        string
	Description string
	Schema      json.RawMessage
	// Strict asks providers that support it to enforce the schema exactly.
	// Every property must then be required.
	Strict bool
}

const jsonInstruction = `Given a user prompt, you will return fully valid JSON based on the following description and schema.
You will return no other prose. You will take into account any descriptions or required parameters within the schema
and return a valid and fully escaped JSON object that matches the schema and those instructions.

description: %s
json schema: %s`

const markdownJSONInstruction = `Given a user prompt, you will return fully valid JSON based on the following description and schema.
Return the JSON object inside a single markdown code block fenced with ` + "```json" + ` and nothing else.
You will take into account any descriptions or required parameters within the schema.

description: %s
json schema: %s`

// BuildRequest combines base parameters with the response specification for
// mode. The base request is cloned; its stream flag and sampling options are
// carried over unchanged.
func BuildRequest(base *ChatRequest, spec ResponseSpec, mode Mode) *ChatRequest {
	req := base.Clone()
	if req == nil {
		req = &ChatRequest{}
	}

	def := FunctionDefinition{
		Name:        spec.Name,
		Description: spec.Description,
		Parameters:  spec.Schema,
		Strict:      spec.Strict,
	}

	switch mode {
	case ModeTools:
		req.Tools = []FunctionDefinition{def}
		req.ToolChoice = spec.Name
	case ModeFunctions:
		req.Functions = []FunctionDefinition{def}
		req.FunctionCall = spec.Name
	case ModeJSON:
		req.ResponseFormat = &ResponseFormat{Type: ResponseFormatJSONObject}
		req.Messages = prependSystem(req.Messages, fmt.Sprintf(jsonInstruction, describe(spec), spec.Schema))
	case ModeMarkdownJSON:
		req.Messages = prependSystem(req.Messages, fmt.Sprintf(markdownJSONInstruction, describe(spec), spec.Schema))
	case ModeJSONSchema:
		req.ResponseFormat = &ResponseFormat{
			Type:   ResponseFormatJSONSchema,
			Name:   spec.Name,
			Schema: spec.Schema,
			Strict: spec.Strict,
		}
	}
	return req
}

func describe(spec ResponseSpec) string {
	if spec.Description != "" {
		return spec.Description
	}
	return "Correctly extracted `" + spec.Name + "` with all the required parameters with correct types"
}

func prependSystem(msgs []Message, content string) []Message {
	out := make([]Message, 0, len(msgs)+1)
	out = append(out, Message{Role: RoleSystem, Content: content})
	return append(out, msgs...)
}
