// Package openaigo adapts the official github.com/openai/openai-go client to
// core.Transport.
//
// The SDK's own retry loop is disabled; the instructor client owns retries.
package openaigo

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/petal-labs/instructor/core"
	"github.com/petal-labs/instructor/providers/internal/normalize"
)

const transportID = "openai-go"

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// Transport wraps an openai-go client.
type Transport struct {
	cli     openai.Client
	baseURL string
}

// New creates a transport. Extra request options are passed to the SDK
// after the transport's own.
func New(apiKey, baseURL string, hc *http.Client, extra ...option.RequestOption) *Transport {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}
	opts = append(opts, extra...)

	return &Transport{cli: openai.NewClient(opts...), baseURL: baseURL}
}

// ID returns "openai-go".
func (t *Transport) ID() string { return transportID }

// BaseURL returns the configured endpoint.
func (t *Transport) BaseURL() string { return t.baseURL }

// Chat sends a non-streaming request.
func (t *Transport) Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	params, opts := buildParams(req)
	resp, err := t.cli.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return nil, mapError(err)
	}
	return mapResponse(resp), nil
}

func mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		if code == "" {
			code = apiErr.Type
		}
		return &core.ProviderError{
			Provider: transportID,
			Status:   apiErr.StatusCode,
			Code:     code,
			Message:  apiErr.Message,
			Err:      normalize.SentinelForStatus(apiErr.StatusCode),
		}
	}
	return normalize.NetworkError(transportID, err)
}

var _ core.Transport = (*Transport)(nil)
