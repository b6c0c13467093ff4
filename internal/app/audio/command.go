package audio

import "github.com/ilyassan/ytaudiobar/internal/domain/track"

// commandType identifies a transport command sent to the engine goroutine.
type commandType int

const (
	cmdPlay commandType = iota
	cmdTogglePlayPause
	cmdPause
	cmdStop
	cmdSeek
	cmdSetVolume
	cmdSetPlaybackRate
)

func (c commandType) String() string {
	switch c {
	case cmdPlay:
		return "play"
	case cmdTogglePlayPause:
		return "toggle_play_pause"
	case cmdPause:
		return "pause"
	case cmdStop:
		return "stop"
	case cmdSeek:
		return "seek"
	case cmdSetVolume:
		return "set_volume"
	case cmdSetPlaybackRate:
		return "set_playback_rate"
	default:
		return "unknown"
	}
}

// command is a single transport instruction. Only the fields relevant to
// the type are set: track for play, value for seek/volume/rate.
type command struct {
	typ   commandType
	track track.Track
	value float64
}
