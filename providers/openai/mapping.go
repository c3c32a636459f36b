package openai

import (
	"encoding/json"

	"github.com/petal-labs/instructor/core"
)

func mapMessages(msgs []core.Message) []wireMessage {
	result := make([]wireMessage, len(msgs))
	for i, msg := range msgs {
		wm := wireMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: wireFunctionCall{Name: tc.Name, Arguments: string(tc.Arguments)},
			})
		}
		if msg.FunctionCall != nil {
			wm.FunctionCall = &wireFunctionCall{
				Name:      msg.FunctionCall.Name,
				Arguments: string(msg.FunctionCall.Arguments),
			}
		}
		result[i] = wm
	}
	return result
}

func mapFunction(def core.FunctionDefinition) wireFunction {
	params := def.Parameters
	if len(params) == 0 {
		params = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return wireFunction{
		Name:        def.Name,
		Description: def.Description,
		Parameters:  params,
		Strict:      def.Strict,
	}
}

func mapResponseFormat(rf *core.ResponseFormat) *responseFormat {
	if rf == nil {
		return nil
	}
	out := &responseFormat{Type: string(rf.Type)}
	switch rf.Type {
	case core.ResponseFormatJSONSchema:
		out.JSONSchema = &jsonSchemaSpec{Name: rf.Name, Schema: rf.Schema, Strict: rf.Strict}
	case core.ResponseFormatJSONObject:
		out.Schema = rf.Schema
	}
	return out
}

// buildRequest maps a core request onto the wire. The stream flag comes
// from the caller, not the request.
func buildRequest(req *core.ChatRequest, stream bool) *chatRequest {
	out := &chatRequest{
		Model:          string(req.Model),
		Messages:       mapMessages(req.Messages),
		Temperature:    req.Temperature,
		TopP:           req.TopP,
		MaxTokens:      req.MaxTokens,
		Seed:           req.Seed,
		Stop:           req.Stop,
		Stream:         stream,
		ResponseFormat: mapResponseFormat(req.ResponseFormat),
	}
	if stream {
		out.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	for _, def := range req.Tools {
		out.Tools = append(out.Tools, wireTool{Type: "function", Function: mapFunction(def)})
	}
	if req.ToolChoice != "" {
		out.ToolChoice = &toolChoice{Type: "function", Function: functionChoice{Name: req.ToolChoice}}
	}

	for _, def := range req.Functions {
		out.Functions = append(out.Functions, mapFunction(def))
	}
	if req.FunctionCall != "" {
		out.FunctionCall = &functionChoice{Name: req.FunctionCall}
	}
	return out
}

// mapResponse converts the first choice of a response.
func mapResponse(resp *chatResponse) *core.ChatResponse {
	result := &core.ChatResponse{
		ID:    resp.ID,
		Model: core.ModelID(resp.Model),
		Usage: mapUsage(resp.Usage),
	}
	if len(resp.Choices) == 0 {
		return result
	}

	choice := resp.Choices[0]
	result.Output = choice.Message.Content
	result.FinishReason = choice.FinishReason
	for _, call := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, core.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: json.RawMessage(call.Function.Arguments),
		})
	}
	if fc := choice.Message.FunctionCall; fc != nil {
		result.FunctionCall = &core.FunctionCall{Name: fc.Name, Arguments: json.RawMessage(fc.Arguments)}
	}
	return result
}

func mapUsage(u *wireUsage) *core.TokenUsage {
	if u == nil {
		return nil
	}
	return &core.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
