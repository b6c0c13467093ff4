package discovery

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/ilyassan/ytaudiobar/internal/domain/track"
)

type YouTubeProviderConfig struct {
	MusicMode  bool `yaml:"music_mode" mapstructure:"music_mode"`
	MaxResults int  `yaml:"max_results" mapstructure:"max_results" default:"10" validate:"gte=1,lte=50"`
}

// YouTubeProvider discovers tracks through yt-dlp's ytsearch backend.
type YouTubeProvider struct {
	client SearchClient
	config *YouTubeProviderConfig
}

// NewYouTubeProvider creates a new YouTubeProvider.
func NewYouTubeProvider(client SearchClient, settings map[string]any) (*YouTubeProvider, error) {
	if client == nil {
		return nil, errors.New("search client is required")
	}

	var config YouTubeProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &YouTubeProvider{client: client, config: &config}, nil
}

// Search queries YouTube, capped at the configured result count.
func (p *YouTubeProvider) Search(ctx context.Context, query string, max int) ([]track.Track, error) {
	if max <= 0 || max > p.config.MaxResults {
		max = p.config.MaxResults
	}
	return p.client.Search(ctx, query, p.config.MusicMode, max)
}

// Name returns the provider name.
func (p *YouTubeProvider) Name() string {
	return "youtube"
}
