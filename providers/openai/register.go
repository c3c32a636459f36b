package openai

import (
	"github.com/petal-labs/instructor/core"
	"github.com/petal-labs/instructor/providers"
)

func init() {
	for _, p := range presets {
		providers.Register(providers.Registration{
			Name:           p.Name,
			DefaultBaseURL: p.BaseURL,
			APIKeyEnv:      p.APIKeyEnv,
			Factory: func(cfg providers.Config) core.Transport {
				var opts []Option
				if cfg.BaseURL != "" {
					opts = append(opts, WithBaseURL(cfg.BaseURL))
				}
				if cfg.HTTPClient != nil {
					opts = append(opts, WithHTTPClient(cfg.HTTPClient))
				}
				return p.New(cfg.APIKey, opts...)
			},
		})
	}
}
