package core

import "sync"

// Transformer rewrites a built request into the shape a provider expects for
// a mode. Transformers must be pure: they return a new request and never
// modify their input.
type Transformer func(*ChatRequest) *ChatRequest

type transformerKey struct {
	provider Provider
	mode     Mode
}

var (
	transformersMu sync.RWMutex
	transformers   = map[transformerKey]Transformer{
		{ProviderTogether, ModeJSONSchema}:    schemaInJSONObject,
		{ProviderAnyscale, ModeJSONSchema}:    schemaInJSONObject,
		{ProviderAnthropic, ModeTools}:        anthropicTools,
		{ProviderAnthropic, ModeMarkdownJSON}: anthropicDefaults,
	}
)

// anthropicMaxTokens is sent when the caller leaves max_tokens unset;
// Anthropic rejects requests without it.
const anthropicMaxTokens = 4096

// RegisterTransformer adds or replaces the transformer for (p, m).
// Passing a nil Transformer removes the entry.
func RegisterTransformer(p Provider, m Mode, t Transformer) {
	transformersMu.Lock()
	defer transformersMu.Unlock()
	if t == nil {
		delete(transformers, transformerKey{p, m})
		return
	}
	transformers[transformerKey{p, m}] = t
}

// LookupTransformer returns the transformer for (p, m), or the identity
// transformer when none is registered.
func LookupTransformer(p Provider, m Mode) Transformer {
	transformersMu.RLock()
	t, ok := transformers[transformerKey{p, m}]
	transformersMu.RUnlock()
	if !ok {
		return identity
	}
	return t
}

func identity(r *ChatRequest) *ChatRequest {
	return r
}

// schemaInJSONObject moves a json_schema response format into the
// {type: json_object, schema: ...} framing used by Together and Anyscale.
func schemaInJSONObject(r *ChatRequest) *ChatRequest {
	if r.ResponseFormat == nil || r.ResponseFormat.Type != ResponseFormatJSONSchema {
		return r
	}
	out := r.Clone()
	out.ResponseFormat = &ResponseFormat{
		Type:   ResponseFormatJSONObject,
		Schema: r.ResponseFormat.Schema,
	}
	return out
}

func anthropicDefaults(r *ChatRequest) *ChatRequest {
	if r.MaxTokens != nil {
		return r
	}
	out := r.Clone()
	n := anthropicMaxTokens
	out.MaxTokens = &n
	return out
}

// anthropicTools clears the strict flag, which the Anthropic
// OpenAI-compatible endpoint ignores with a warning, and sets max_tokens.
func anthropicTools(r *ChatRequest) *ChatRequest {
	out := anthropicDefaults(r).Clone()
	for i := range out.Tools {
		out.Tools[i].Strict = false
	}
	return out
}
