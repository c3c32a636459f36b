package core

import "strings"

// Provider identifies the vendor behind a transport endpoint.
type Provider string

const (
	ProviderOpenAI    Provider = "OAI"
	ProviderAnthropic Provider = "ANTHROPIC"
	ProviderTogether  Provider = "TOGETHER"
	ProviderAnyscale  Provider = "ANYSCALE"
	ProviderOther     Provider = "OTHER"
)

// Providers lists every provider identifier, ProviderOther last.
var Providers = []Provider{ProviderOpenAI, ProviderAnthropic, ProviderTogether, ProviderAnyscale, ProviderOther}

// endpointMarkers is checked in order; the first substring contained in
// the endpoint wins.
var endpointMarkers = []struct {
	marker   string
	provider Provider
}{
	{"api.endpoints.anyscale", ProviderAnyscale},
	{"api.together.xyz", ProviderTogether},
	{"api.openai.com", ProviderOpenAI},
	{"api.anthropic.com", ProviderAnthropic},
}

// DetectProvider classifies an endpoint URL. Unrecognized endpoints yield
// ProviderOther.
func DetectProvider(endpointURL string) Provider {
	for _, m := range endpointMarkers {
		if strings.Contains(endpointURL, m.marker) {
			return m.provider
		}
	}
	return ProviderOther
}

// Known reports whether p is a recognized vendor.
func (p Provider) Known() bool {
	return p != ProviderOther && p != ""
}

func (p Provider) String() string {
	return string(p)
}
