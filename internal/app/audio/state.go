// Package audio implements the command-driven audio playback engine.
//
// A single dedicated goroutine owns the output device and the active
// playback sink. All other goroutines interact with it through a command
// channel and observe it through a mutex-guarded state snapshot plus a
// change-notification signal.
package audio

import "github.com/ilyassan/ytaudiobar/internal/domain/track"

// State is the externally observable playback snapshot.
// Written by the engine goroutine and, optimistically, by the command API;
// read by any subscriber. Always copied out under the player lock.
type State struct {
	IsPlaying       bool         `json:"is_playing"`
	CurrentPosition float64      `json:"current_position"` // seconds
	Duration        float64      `json:"duration"`         // seconds, from the track descriptor
	Volume          float64      `json:"volume"`           // 0.0 to 1.0
	PlaybackRate    float64      `json:"playback_rate"`    // 0.25 to 2.0
	CurrentTrack    *track.Track `json:"current_track"`
	IsLoading       bool         `json:"is_loading"`
}

func defaultState() State {
	return State{
		Volume:       1.0,
		PlaybackRate: 1.0,
	}
}

// Playback rate and volume bounds enforced at the command boundary.
const (
	MinVolume = 0.0
	MaxVolume = 1.0
	MinRate   = 0.25
	MaxRate   = 2.0
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
