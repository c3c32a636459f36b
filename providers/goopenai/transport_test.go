package goopenai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/petal-labs/instructor/core"
	"github.com/petal-labs/instructor/providers"
)

func newTestTransport(t *testing.T, h http.HandlerFunc) *Transport {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestChatToolCall(t *testing.T) {
	var body map[string]any
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"model": "gpt-4o",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "User", "arguments": "{\"name\":\"Jason\"}"}}]
				}
			}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	})

	resp, err := tr.Chat(context.Background(), &core.ChatRequest{
		Model:      "gpt-4o",
		Messages:   []core.Message{{Role: core.RoleUser, Content: "Jason is 25"}},
		Tools:      []core.FunctionDefinition{{Name: "User", Parameters: json.RawMessage(`{"type":"object"}`)}},
		ToolChoice: "User",
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	tc, _ := body["tool_choice"].(map[string]any)
	if fn, _ := tc["function"].(map[string]any); fn["name"] != "User" {
		t.Errorf("tool_choice = %v", body["tool_choice"])
	}
	if tools, _ := body["tools"].([]any); len(tools) != 1 {
		t.Errorf("tools = %v", body["tools"])
	}

	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "User" {
		t.Fatalf("ToolCalls = %+v", resp.ToolCalls)
	}
	if string(resp.ToolCalls[0].Arguments) != `{"name":"Jason"}` {
		t.Errorf("Arguments = %s", resp.ToolCalls[0].Arguments)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
}

func TestChatMissingUsage(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"{}"}}]}`)
	})

	resp, err := tr.Chat(context.Background(), &core.ChatRequest{Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Usage != nil {
		t.Errorf("Usage = %+v, want nil", resp.Usage)
	}
	if resp.Output != "{}" {
		t.Errorf("Output = %q", resp.Output)
	}
}

func TestChatJSONSchemaFormat(t *testing.T) {
	var body map[string]any
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"{}"}}]}`)
	})

	_, err := tr.Chat(context.Background(), &core.ChatRequest{
		Model: "gpt-4o",
		ResponseFormat: &core.ResponseFormat{
			Type:   core.ResponseFormatJSONSchema,
			Name:   "User",
			Schema: json.RawMessage(`{"type":"object"}`),
		},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	rf, _ := body["response_format"].(map[string]any)
	if rf["type"] != "json_schema" {
		t.Fatalf("response_format = %v", body["response_format"])
	}
	js, _ := rf["json_schema"].(map[string]any)
	if js["name"] != "User" {
		t.Errorf("json_schema = %v", js)
	}
	if s, _ := js["schema"].(map[string]any); s["type"] != "object" {
		t.Errorf("schema = %v", js["schema"])
	}
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, core.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, core.ErrRateLimited},
		{"bad request", http.StatusBadRequest, core.ErrBadRequest},
		{"server", http.StatusBadGateway, core.ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope","type":"invalid_request_error","code":"bad"}}`)
			})

			_, err := tr.Chat(context.Background(), &core.ChatRequest{Model: "gpt-4o"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Chat() error = %v, want %v", err, tt.want)
			}
			var pe *core.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *core.ProviderError", err)
			}
			if pe.Status != tt.status || pe.Provider != "go-openai" {
				t.Errorf("ProviderError = %+v", pe)
			}
		})
	}
}

func TestStreamChatToolArguments(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"id":"s1","model":"gpt-4o","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"User","arguments":""}}]}}]}`,
			`{"id":"s1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"name\":"}}]}}]}`,
			`{"id":"s1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"Jason\"}"}}]},"finish_reason":"tool_calls"}]}`,
			`{"id":"s1","choices":[],"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream, err := tr.StreamChat(context.Background(), &core.ChatRequest{Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	var args string
	for c := range stream.Ch {
		args += c.ArgumentsDelta
	}
	if err := <-stream.Err; err != nil {
		t.Fatalf("stream error = %v", err)
	}
	final := <-stream.Final

	if args != `{"name":"Jason"}` {
		t.Errorf("streamed args = %q", args)
	}
	if len(final.ToolCalls) != 1 || string(final.ToolCalls[0].Arguments) != `{"name":"Jason"}` {
		t.Errorf("final ToolCalls = %+v", final.ToolCalls)
	}
	if final.Usage == nil || final.Usage.TotalTokens != 10 {
		t.Errorf("final Usage = %+v", final.Usage)
	}
	if final.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q", final.FinishReason)
	}
}

func TestStreamChatHTTPError(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	})

	_, err := tr.StreamChat(context.Background(), &core.ChatRequest{Model: "gpt-4o"})
	if !errors.Is(err, core.ErrServer) {
		t.Errorf("StreamChat() error = %v, want ErrServer", err)
	}
}

func TestRegistered(t *testing.T) {
	tr, err := providers.Create("go-openai", providers.Config{APIKey: "k", BaseURL: "http://proxy.local/v1/"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if tr.ID() != "go-openai" {
		t.Errorf("ID() = %q", tr.ID())
	}
	if tr.BaseURL() != "http://proxy.local/v1" {
		t.Errorf("BaseURL() = %q", tr.BaseURL())
	}
}
