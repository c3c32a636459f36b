package openai

import (
	"fmt"
	"os"
	"sort"
)

// Preset names a vendor endpoint that speaks the chat-completions format.
type Preset struct {
	Name      string
	BaseURL   string
	APIKeyEnv string
}

// Presets for the vendors the default compatibility matrix knows about.
var (
	PresetOpenAI    = Preset{Name: "openai", BaseURL: DefaultBaseURL, APIKeyEnv: DefaultAPIKeyEnvVar}
	PresetTogether  = Preset{Name: "together", BaseURL: "https://api.together.xyz/v1", APIKeyEnv: "TOGETHER_API_KEY"}
	PresetAnyscale  = Preset{Name: "anyscale", BaseURL: "https://api.endpoints.anyscale.com/v1", APIKeyEnv: "ANYSCALE_API_KEY"}
	PresetAnthropic = Preset{Name: "anthropic", BaseURL: "https://api.anthropic.com/v1", APIKeyEnv: "ANTHROPIC_API_KEY"}
)

var presets = map[string]Preset{
	PresetOpenAI.Name:    PresetOpenAI,
	PresetTogether.Name:  PresetTogether,
	PresetAnyscale.Name:  PresetAnyscale,
	PresetAnthropic.Name: PresetAnthropic,
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewPreset creates a transport for the named vendor. Options are applied
// after the preset's base URL, so WithBaseURL still overrides it.
func NewPreset(name, apiKey string, opts ...Option) (*OpenAI, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("openai: unknown preset %q (available: %v)", name, PresetNames())
	}
	return p.New(apiKey, opts...), nil
}

// New creates a transport for the preset.
func (p Preset) New(apiKey string, opts ...Option) *OpenAI {
	return newTransport(p.Name, p.BaseURL, apiKey, opts)
}

// FromEnv creates a transport with the key read from p.APIKeyEnv.
func (p Preset) FromEnv(opts ...Option) (*OpenAI, error) {
	key := os.Getenv(p.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: %s", ErrAPIKeyNotFound, p.APIKeyEnv)
	}
	return p.New(key, opts...), nil
}
