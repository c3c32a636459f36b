// Package openai implements core.Transport over the OpenAI chat-completions
// HTTP API. The same wire format serves Together, Anyscale and the
// Anthropic compatibility endpoint through presets.
package openai

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/petal-labs/instructor/core"
)

// DefaultBaseURL is the OpenAI API base URL.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultAPIKeyEnvVar is the environment variable read by NewFromEnv.
const DefaultAPIKeyEnvVar = "OPENAI_API_KEY"

// ErrAPIKeyNotFound is returned when the API key environment variable is not set.
var ErrAPIKeyNotFound = errors.New("openai: API key environment variable not set")

// OpenAI is a chat-completions transport. It is safe for concurrent use.
type OpenAI struct {
	id     string
	config Config
}

// New creates a transport for api.openai.com.
func New(apiKey string, opts ...Option) *OpenAI {
	return newTransport("openai", DefaultBaseURL, apiKey, opts)
}

// NewFromEnv creates a transport using OPENAI_API_KEY:
//
//	transport, err := openai.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := core.NewClient(transport)
func NewFromEnv(opts ...Option) (*OpenAI, error) {
	apiKey := os.Getenv(DefaultAPIKeyEnvVar)
	if apiKey == "" {
		return nil, ErrAPIKeyNotFound
	}
	return New(apiKey, opts...), nil
}

func newTransport(id, baseURL, apiKey string, opts []Option) *OpenAI {
	cfg := Config{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &OpenAI{id: id, config: cfg}
}

// ID returns the transport name, e.g. "openai" or "together".
func (p *OpenAI) ID() string {
	return p.id
}

// BaseURL returns the configured endpoint.
func (p *OpenAI) BaseURL() string {
	return p.config.BaseURL
}

func (p *OpenAI) buildHeaders() http.Header {
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		headers.Set("Authorization", "Bearer "+p.config.APIKey)
	}
	if p.config.OrgID != "" {
		headers.Set("OpenAI-Organization", p.config.OrgID)
	}
	if p.config.ProjectID != "" {
		headers.Set("OpenAI-Project", p.config.ProjectID)
	}
	for key, values := range p.config.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}
	return headers
}

// withTimeout applies Config.Timeout. The returned cancel func must be
// called once the response body is done with.
func (p *OpenAI) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.config.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.config.Timeout)
}

// Chat sends a non-streaming chat completion request.
func (p *OpenAI) Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	return p.doChat(ctx, req)
}

// StreamChat sends a streaming chat completion request.
func (p *OpenAI) StreamChat(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error) {
	return p.doStreamChat(ctx, req)
}

var _ core.Transport = (*OpenAI)(nil)
