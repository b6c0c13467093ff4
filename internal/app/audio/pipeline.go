package audio

import "context"

// Pipeline acquires the complete decoded sample buffer for a track.
// Implementations block until the whole track is available; the engine
// runs the call synchronously on its own goroutine, so commands issued
// during acquisition are delayed until it completes or fails.
type Pipeline interface {
	Fetch(ctx context.Context, trackID string) ([]int16, error)
}
