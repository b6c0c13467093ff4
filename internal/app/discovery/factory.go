package discovery

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/ilyassan/ytaudiobar/internal/infra/config"
)

// NewChainFromConfig creates a provider chain from configuration. With no
// providers configured a single YouTube provider with defaults is used.
func NewChainFromConfig(cfg *config.Config, client SearchClient) (*Chain, error) {
	providerConfigs := cfg.Discovery.Providers
	if len(providerConfigs) == 0 {
		providerConfigs = []config.ProviderConfig{
			{Type: "youtube", DisplayName: "YouTube", Settings: map[string]any{}},
		}
	}

	var providers []ProviderWithMetadata

	for i, pcfg := range providerConfigs {
		var provider Provider
		var err error
		zlog.Debug().Msgf("creating discovery provider: index=%d type=%s settings=%+v", i+1, pcfg.Type, pcfg.Settings)
		switch pcfg.Type {
		case "youtube":
			provider, err = NewYouTubeProvider(client, pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: pcfg.DisplayName,
		})

		zlog.Info().Msgf("registered discovery provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, pcfg.DisplayName)
	}

	return NewChain(providers), nil
}
