// Package providers contains chat-completion transports for instructor.
//
// Each transport lives in its own subpackage and implements core.Transport:
//
//	type Transport interface {
//	    ID() string
//	    BaseURL() string
//	    Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
//	    StreamChat(ctx context.Context, req *ChatRequest) (*ChatStream, error)
//	}
//
// BaseURL decides which vendor the client believes it is talking to, and
// with it the allowed modes and models. Point a transport at a proxy and
// the client treats it as an unknown provider.
//
// # Streaming
//
// StreamChat returns a *ChatStream. Transports MUST:
//   - Close all channels (Ch, Err, Final) when finished
//   - Terminate promptly on context cancellation
//   - Send at most one error on Err
//   - Send exactly one response on Final on success
//   - Put tool and function call argument text in ChatChunk.ArgumentsDelta
//
// # Registry
//
// Subpackages register factories by name from init. Import them for side
// effects and build transports with Create:
//
//	import _ "github.com/petal-labs/instructor/providers/openai"
//
//	t, err := providers.Create("together", providers.Config{APIKey: key})
package providers

import "github.com/petal-labs/instructor/core"

// Re-exported core types, so transport packages can import just providers.
type (
	Transport    = core.Transport
	ModelID      = core.ModelID
	ChatRequest  = core.ChatRequest
	ChatResponse = core.ChatResponse
	ChatStream   = core.ChatStream
	ChatChunk    = core.ChatChunk
	Message      = core.Message
	Role         = core.Role
	TokenUsage   = core.TokenUsage
	ToolCall     = core.ToolCall
	FunctionCall = core.FunctionCall

	// ProviderError represents an error returned by a transport.
	ProviderError = core.ProviderError
)

const (
	RoleSystem    = core.RoleSystem
	RoleUser      = core.RoleUser
	RoleAssistant = core.RoleAssistant
	RoleTool      = core.RoleTool
)

var (
	ErrUnauthorized = core.ErrUnauthorized
	ErrRateLimited  = core.ErrRateLimited
	ErrBadRequest   = core.ErrBadRequest
	ErrNotFound     = core.ErrNotFound
	ErrServer       = core.ErrServer
	ErrNetwork      = core.ErrNetwork
	ErrDecode       = core.ErrDecode
)
