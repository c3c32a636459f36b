package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/petal-labs/instructor/core"
)

const chatCompletionsPath = "/chat/completions"

// post sends body to the chat completions endpoint. A non-2xx status is
// returned as a normalized error with the body consumed.
func (p *OpenAI) post(ctx context.Context, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, p.decodeError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+chatCompletionsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, p.networkError(err)
	}
	for key, values := range p.buildHeaders() {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := p.config.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, p.networkError(err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, p.httpError(resp.StatusCode, respBody, requestID(resp))
	}
	return resp, nil
}

func requestID(resp *http.Response) string {
	if id := resp.Header.Get("x-request-id"); id != "" {
		return id
	}
	return resp.Header.Get("request-id")
}

func (p *OpenAI) doChat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	resp, err := p.post(ctx, buildRequest(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.networkError(err)
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, p.decodeError(err)
	}
	return mapResponse(&out), nil
}
