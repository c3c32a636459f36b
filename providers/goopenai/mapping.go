package goopenai

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/petal-labs/instructor/core"
)

func buildRequest(req *core.ChatRequest, stream bool) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:    string(req.Model),
		Messages: mapMessages(req.Messages),
		Stop:     req.Stop,
		Seed:     req.Seed,
		Stream:   stream,
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		out.TopP = *req.TopP
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if stream {
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}

	for _, def := range req.Tools {
		fn := mapFunction(def)
		out.Tools = append(out.Tools, openai.Tool{Type: openai.ToolTypeFunction, Function: &fn})
	}
	if req.ToolChoice != "" {
		out.ToolChoice = openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: req.ToolChoice},
		}
	}
	for _, def := range req.Functions {
		out.Functions = append(out.Functions, mapFunction(def))
	}
	if req.FunctionCall != "" {
		out.FunctionCall = openai.FunctionCall{Name: req.FunctionCall}
	}

	if rf := req.ResponseFormat; rf != nil {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatType(rf.Type),
		}
		if rf.Type == core.ResponseFormatJSONSchema {
			out.ResponseFormat.JSONSchema = &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   rf.Name,
				Schema: rf.Schema,
				Strict: rf.Strict,
			}
		}
	}
	return out
}

func mapFunction(def core.FunctionDefinition) openai.FunctionDefinition {
	params := def.Parameters
	if len(params) == 0 {
		params = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return openai.FunctionDefinition{
		Name:        def.Name,
		Description: def.Description,
		Strict:      def.Strict,
		Parameters:  params,
	}
}

func mapMessages(msgs []core.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		msg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:       tc.ID,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: tc.Name, Arguments: string(tc.Arguments)},
			})
		}
		if m.FunctionCall != nil {
			msg.FunctionCall = &openai.FunctionCall{Name: m.FunctionCall.Name, Arguments: string(m.FunctionCall.Arguments)}
		}
		out[i] = msg
	}
	return out
}

func mapResponse(resp *openai.ChatCompletionResponse) *core.ChatResponse {
	out := &core.ChatResponse{
		ID:    resp.ID,
		Model: core.ModelID(resp.Model),
		Usage: mapUsage(resp.Usage),
	}
	if len(resp.Choices) == 0 {
		return out
	}
	choice := resp.Choices[0]
	out.Output = choice.Message.Content
	out.FinishReason = string(choice.FinishReason)
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	if fc := choice.Message.FunctionCall; fc != nil {
		out.FunctionCall = &core.FunctionCall{Name: fc.Name, Arguments: json.RawMessage(fc.Arguments)}
	}
	return out
}

// mapUsage treats an all-zero usage block as unreported.
func mapUsage(u openai.Usage) *core.TokenUsage {
	if u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0 {
		return nil
	}
	return &core.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
