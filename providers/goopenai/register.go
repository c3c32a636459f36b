package goopenai

import (
	"github.com/petal-labs/instructor/core"
	"github.com/petal-labs/instructor/providers"
)

func init() {
	providers.Register(providers.Registration{
		Name:           transportID,
		DefaultBaseURL: DefaultBaseURL,
		APIKeyEnv:      "OPENAI_API_KEY",
		Factory: func(cfg providers.Config) core.Transport {
			var opts []Option
			if cfg.BaseURL != "" {
				opts = append(opts, WithBaseURL(cfg.BaseURL))
			}
			if cfg.HTTPClient != nil {
				opts = append(opts, WithHTTPClient(cfg.HTTPClient))
			}
			return New(cfg.APIKey, opts...)
		},
	})
}
