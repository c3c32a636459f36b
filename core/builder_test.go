package core

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

var testSpec = ResponseSpec{
	Name:        "User",
	Description: "A user",
	Schema:      json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`),
}

func baseRequest() *ChatRequest {
	return &ChatRequest{
		Model:       "gpt-4o",
		Messages:    []Message{{Role: RoleUser, Content: "extract"}},
		Temperature: ptr(float32(0.1)),
		Stream:      true,
	}
}

func TestBuildRequestModes(t *testing.T) {
	tests := []struct {
		mode  Mode
		check func(t *testing.T, r *ChatRequest)
	}{
		{ModeTools, func(t *testing.T, r *ChatRequest) {
			if len(r.Tools) != 1 || r.ToolChoice != "User" {
				t.Fatalf("Tools = %+v, ToolChoice = %q", r.Tools, r.ToolChoice)
			}
			if !reflect.DeepEqual(r.Tools[0].Parameters, testSpec.Schema) || r.Tools[0].Description != "A user" {
				t.Errorf("tool = %+v", r.Tools[0])
			}
			if r.ResponseFormat != nil || r.Functions != nil {
				t.Error("unexpected fields set for TOOLS")
			}
		}},
		{ModeFunctions, func(t *testing.T, r *ChatRequest) {
			if len(r.Functions) != 1 || r.FunctionCall != "User" {
				t.Fatalf("Functions = %+v, FunctionCall = %q", r.Functions, r.FunctionCall)
			}
			if r.Tools != nil {
				t.Error("Tools set for FUNCTIONS")
			}
		}},
		{ModeJSON, func(t *testing.T, r *ChatRequest) {
			if r.ResponseFormat == nil || r.ResponseFormat.Type != ResponseFormatJSONObject {
				t.Errorf("ResponseFormat = %+v", r.ResponseFormat)
			}
			if len(r.Messages) != 2 || r.Messages[0].Role != RoleSystem {
				t.Fatalf("Messages = %+v, want system instruction first", r.Messages)
			}
			if !strings.Contains(r.Messages[0].Content, string(testSpec.Schema)) {
				t.Error("system instruction lacks the schema")
			}
		}},
		{ModeMarkdownJSON, func(t *testing.T, r *ChatRequest) {
			if r.ResponseFormat != nil {
				t.Errorf("ResponseFormat = %+v, want nil", r.ResponseFormat)
			}
			if len(r.Messages) != 2 || !strings.Contains(r.Messages[0].Content, "```json") {
				t.Errorf("Messages = %+v", r.Messages)
			}
		}},
		{ModeJSONSchema, func(t *testing.T, r *ChatRequest) {
			rf := r.ResponseFormat
			if rf == nil || rf.Type != ResponseFormatJSONSchema || rf.Name != "User" {
				t.Fatalf("ResponseFormat = %+v", rf)
			}
			if !reflect.DeepEqual(rf.Schema, testSpec.Schema) {
				t.Errorf("Schema = %s", rf.Schema)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			base := baseRequest()
			before := base.Clone()

			got := BuildRequest(base, testSpec, tt.mode)
			tt.check(t, got)

			if !got.Stream {
				t.Error("stream flag not carried over")
			}
			if got.Temperature == nil || *got.Temperature != 0.1 {
				t.Error("temperature not carried over")
			}
			if got.Messages[len(got.Messages)-1].Content != "extract" {
				t.Error("user message not preserved last")
			}
			if !reflect.DeepEqual(base, before) {
				t.Error("BuildRequest modified its input")
			}
		})
	}
}

func TestBuildRequestDefaultDescription(t *testing.T) {
	spec := testSpec
	spec.Description = ""
	got := BuildRequest(baseRequest(), spec, ModeJSON)
	if !strings.Contains(got.Messages[0].Content, "Correctly extracted `User`") {
		t.Errorf("instruction = %q, want the default description", got.Messages[0].Content)
	}
}

func TestBuildRequestStrict(t *testing.T) {
	spec := testSpec
	spec.Strict = true
	if got := BuildRequest(baseRequest(), spec, ModeTools); !got.Tools[0].Strict {
		t.Error("tool Strict = false")
	}
	if got := BuildRequest(baseRequest(), spec, ModeJSONSchema); !got.ResponseFormat.Strict {
		t.Error("response format Strict = false")
	}
}

func TestBuildRequestNilBase(t *testing.T) {
	got := BuildRequest(nil, testSpec, ModeTools)
	if got == nil || len(got.Tools) != 1 {
		t.Errorf("BuildRequest(nil) = %+v", got)
	}
}
