package openaigo

import (
	"encoding/json"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/petal-labs/instructor/core"
)

// buildParams maps a core request onto SDK params. Mode-specific fields are
// written onto the raw body so vendor extensions such as the json_object
// schema sibling survive.
func buildParams(req *core.ChatRequest) (openai.ChatCompletionNewParams, []option.RequestOption) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: mapMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(float64(*req.Temperature))
	}
	if req.TopP != nil {
		params.TopP = openai.Float(float64(*req.TopP))
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	if req.Seed != nil {
		params.Seed = openai.Int(int64(*req.Seed))
	}
	for _, def := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: mapFunction(def),
			},
		})
	}

	var opts []option.RequestOption
	if len(req.Stop) > 0 {
		opts = append(opts, option.WithJSONSet("stop", req.Stop))
	}
	if req.ToolChoice != "" {
		opts = append(opts, option.WithJSONSet("tool_choice", map[string]any{
			"type":     "function",
			"function": map[string]string{"name": req.ToolChoice},
		}))
	}
	if len(req.Functions) > 0 {
		fns := make([]shared.FunctionDefinitionParam, len(req.Functions))
		for i, def := range req.Functions {
			fns[i] = mapFunction(def)
		}
		opts = append(opts, option.WithJSONSet("functions", fns))
	}
	if req.FunctionCall != "" {
		opts = append(opts, option.WithJSONSet("function_call", map[string]string{"name": req.FunctionCall}))
	}
	if req.ResponseFormat != nil {
		opts = append(opts, option.WithJSONSet("response_format", responseFormatBody(req.ResponseFormat)))
	}
	return params, opts
}

func responseFormatBody(rf *core.ResponseFormat) map[string]any {
	body := map[string]any{"type": string(rf.Type)}
	switch rf.Type {
	case core.ResponseFormatJSONSchema:
		js := map[string]any{"name": rf.Name, "schema": rf.Schema}
		if rf.Strict {
			js["strict"] = true
		}
		body["json_schema"] = js
	case core.ResponseFormatJSONObject:
		if len(rf.Schema) > 0 {
			body["schema"] = rf.Schema
		}
	}
	return body
}

func mapFunction(def core.FunctionDefinition) shared.FunctionDefinitionParam {
	params := shared.FunctionParameters{"type": "object", "properties": map[string]any{}}
	if len(def.Parameters) > 0 {
		var m map[string]any
		if err := json.Unmarshal(def.Parameters, &m); err == nil {
			params = shared.FunctionParameters(m)
		}
	}
	fn := shared.FunctionDefinitionParam{
		Name:       def.Name,
		Parameters: params,
	}
	if def.Description != "" {
		fn.Description = openai.String(def.Description)
	}
	if def.Strict {
		fn.Strict = openai.Bool(true)
	}
	return fn
}

func mapMessages(msgs []core.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case core.RoleSystem:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{OfString: openai.String(m.Content)},
				},
			})
		case core.RoleUser:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{OfString: openai.String(m.Content)},
				},
			})
		case core.RoleAssistant:
			asst := &openai.ChatCompletionAssistantMessageParam{
				Content: openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(m.Content)},
			}
			for _, tc := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: string(tc.Arguments),
						},
					},
				})
			}
			if fc := m.FunctionCall; fc != nil {
				asst.FunctionCall = openai.ChatCompletionAssistantMessageParamFunctionCall{
					Name:      fc.Name,
					Arguments: string(fc.Arguments),
				}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: asst})
		case core.RoleTool:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfTool: &openai.ChatCompletionToolMessageParam{
					ToolCallID: m.ToolCallID,
					Content:    openai.ChatCompletionToolMessageParamContentUnion{OfString: openai.String(m.Content)},
				},
			})
		}
	}
	return out
}

func mapResponse(resp *openai.ChatCompletion) *core.ChatResponse {
	out := &core.ChatResponse{
		ID:    resp.ID,
		Model: core.ModelID(resp.Model),
	}
	if resp.JSON.Usage.Valid() {
		out.Usage = mapUsage(resp.Usage)
	}
	if len(resp.Choices) == 0 {
		return out
	}
	choice := resp.Choices[0]
	out.Output = choice.Message.Content
	out.FinishReason = string(choice.FinishReason)
	for _, tc := range choice.Message.ToolCalls {
		if tc.Type != "function" {
			continue
		}
		fn := tc.AsFunction()
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{
			ID:        fn.ID,
			Name:      fn.Function.Name,
			Arguments: json.RawMessage(fn.Function.Arguments),
		})
	}
	if fc := choice.Message.FunctionCall; fc.Name != "" {
		out.FunctionCall = &core.FunctionCall{Name: fc.Name, Arguments: json.RawMessage(fc.Arguments)}
	}
	return out
}

func mapUsage(u openai.CompletionUsage) *core.TokenUsage {
	return &core.TokenUsage{
		PromptTokens:     int(u.PromptTokens),
		CompletionTokens: int(u.CompletionTokens),
		TotalTokens:      int(u.TotalTokens),
	}
}
