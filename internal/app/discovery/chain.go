package discovery

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/ilyassan/ytaudiobar/internal/domain/track"
)

// ResultWithSource represents a discovered track with its source provider info.
type ResultWithSource struct {
	Track       track.Track `json:"track"`
	DisplayName string      `json:"source"`
}

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// Chain queries multiple providers in order, merging their results and
// dropping duplicates across providers.
type Chain struct {
	providers []ProviderWithMetadata
}

// NewChain creates a new provider chain.
func NewChain(providers []ProviderWithMetadata) *Chain {
	return &Chain{providers: providers}
}

// Search queries all providers. A failing provider is skipped so a later
// one can still contribute.
func (c *Chain) Search(ctx context.Context, query string, max int) ([]ResultWithSource, error) {
	var all []ResultWithSource
	seen := make(map[string]bool)

	for i, pm := range c.providers {
		zlog.Debug().Msgf("trying provider: index=%d total=%d name=%s provider_type=%s",
			i+1, len(c.providers), pm.DisplayName, pm.Provider.Name())

		results, err := pm.Provider.Search(ctx, query, max)
		if err != nil {
			zlog.Warn().Msgf("provider failed, trying next: provider=%s error=%v", pm.DisplayName, err)
			continue
		}

		for _, t := range results {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			all = append(all, ResultWithSource{Track: t, DisplayName: pm.DisplayName})
		}

		zlog.Info().Msgf("provider returned results: provider=%s count=%d total_so_far=%d",
			pm.DisplayName, len(results), len(all))
	}

	if len(all) == 0 {
		return nil, errors.New("all providers failed to return results")
	}
	return all, nil
}
