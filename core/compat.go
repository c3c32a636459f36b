package core

import "slices"

// AnyModel is the wildcard entry in a model list.
const AnyModel = "*"

// Matrix records which modes each provider serves and which models support
// each (provider, mode) pair.
type Matrix struct {
	Modes  map[Provider][]Mode
	Models map[Provider]map[Mode][]string
}

var (
	anyscaleModels = []string{
		"mistralai/Mistral-7B-Instruct-v0.1",
		"mistralai/Mixtral-8x7B-Instruct-v0.1",
	}
	togetherModels = []string{
		"mistralai/Mixtral-8x7B-Instruct-v0.1",
		"mistralai/Mistral-7B-Instruct-v0.1",
		"togethercomputer/CodeLlama-34b-Instruct",
	}
	anyModel = []string{AnyModel}
)

// DefaultMatrix returns the built-in compatibility table. The returned value
// is a fresh copy and may be modified by the caller.
func DefaultMatrix() Matrix {
	return Matrix{
		Modes: map[Provider][]Mode{
			ProviderOther:     slices.Clone(Modes),
			ProviderOpenAI:    {ModeFunctions, ModeTools, ModeJSON, ModeMarkdownJSON, ModeJSONSchema},
			ProviderAnyscale:  {ModeTools, ModeJSON, ModeJSONSchema},
			ProviderTogether:  {ModeTools, ModeJSON, ModeJSONSchema},
			ProviderAnthropic: {ModeTools, ModeMarkdownJSON},
		},
		Models: map[Provider]map[Mode][]string{
			ProviderOther: {
				ModeFunctions:    anyModel,
				ModeTools:        anyModel,
				ModeJSON:         anyModel,
				ModeMarkdownJSON: anyModel,
				ModeJSONSchema:   anyModel,
			},
			ProviderOpenAI: {
				ModeFunctions:    anyModel,
				ModeTools:        anyModel,
				ModeJSON:         anyModel,
				ModeMarkdownJSON: anyModel,
				ModeJSONSchema:   anyModel,
			},
			ProviderAnyscale: {
				ModeTools:      slices.Clone(anyscaleModels),
				ModeJSON:       slices.Clone(anyscaleModels),
				ModeJSONSchema: slices.Clone(anyscaleModels),
			},
			ProviderTogether: {
				ModeTools:      slices.Clone(togetherModels),
				ModeJSON:       slices.Clone(togetherModels),
				ModeJSONSchema: slices.Clone(togetherModels),
			},
			ProviderAnthropic: {
				ModeTools:        anyModel,
				ModeMarkdownJSON: anyModel,
			},
		},
	}
}

// IsModeSupported reports whether provider p can serve mode m. Unknown
// providers always pass.
func (mx Matrix) IsModeSupported(p Provider, m Mode) bool {
	if !p.Known() {
		return true
	}
	return slices.Contains(mx.Modes[p], m)
}

// IsModelSupported reports whether model can be used with mode m on
// provider p. Unknown providers and OpenAI always pass. A known provider
// with no model list for m rejects every model.
func (mx Matrix) IsModelSupported(p Provider, m Mode, model ModelID) bool {
	if !p.Known() || p == ProviderOpenAI {
		return true
	}
	models := mx.Models[p][m]
	if slices.Contains(models, AnyModel) {
		return true
	}
	return slices.Contains(models, string(model))
}
