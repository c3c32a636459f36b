package openaigo

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
			return New(cfg.APIKey, cfg.BaseURL, cfg.HTTPClient)
		},
	})
}
