// Package discovery provides track discovery strategies over configured
// search providers.
package discovery

import (
	"context"

	"github.com/ilyassan/ytaudiobar/internal/domain/track"
)

// Provider is the interface for track discovery providers.
// Different implementations can source tracks through various backends.
type Provider interface {
	// Search returns up to max tracks matching the query.
	Search(ctx context.Context, query string, max int) ([]track.Track, error)

	// Name returns the provider name (used in config).
	Name() string
}

// SearchClient defines the yt-dlp operations needed by discovery providers.
type SearchClient interface {
	Search(ctx context.Context, query string, musicMode bool, max int) ([]track.Track, error)
}
