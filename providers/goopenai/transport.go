// Package goopenai adapts the github.com/sashabaranov/go-openai client to
// core.Transport.
//
// go-openai has no field for the schema sibling of a json_object response
// format, so Together and Anyscale JSON_SCHEMA requests lose their schema
// here. Use providers/openai for those vendors.
package goopenai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/petal-labs/instructor/core"
	"github.com/petal-labs/instructor/providers/internal/normalize"
)

const transportID = "go-openai"

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// Transport wraps a go-openai client.
type Transport struct {
	client  *openai.Client
	baseURL string
}

// Option configures the underlying go-openai ClientConfig.
type Option func(*openai.ClientConfig)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *openai.ClientConfig) {
		c.BaseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *openai.ClientConfig) {
		c.HTTPClient = hc
	}
}

// WithOrgID sets the organization header.
func WithOrgID(org string) Option {
	return func(c *openai.ClientConfig) {
		c.OrgID = org
	}
}

// New creates a transport with the given API key.
func New(apiKey string, opts ...Option) *Transport {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = DefaultBaseURL
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Transport{client: openai.NewClientWithConfig(cfg), baseURL: cfg.BaseURL}
}

// ID returns "go-openai".
func (t *Transport) ID() string { return transportID }

// BaseURL returns the configured endpoint.
func (t *Transport) BaseURL() string { return t.baseURL }

// Chat sends a non-streaming request.
func (t *Transport) Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	resp, err := t.client.CreateChatCompletion(ctx, buildRequest(req, false))
	if err != nil {
		return nil, mapError(err)
	}
	return mapResponse(&resp), nil
}

// mapError converts go-openai errors to core errors.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.Type
		if s, ok := apiErr.Code.(string); ok && s != "" {
			code = s
		}
		return &core.ProviderError{
			Provider: transportID,
			Status:   apiErr.HTTPStatusCode,
			Code:     code,
			Message:  apiErr.Message,
			Err:      normalize.SentinelForStatus(apiErr.HTTPStatusCode),
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return normalize.HTTPError(transportID, reqErr.HTTPStatusCode, reqErr.Body, "")
	}
	return normalize.NetworkError(transportID, err)
}

var _ core.Transport = (*Transport)(nil)
