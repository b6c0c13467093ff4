package audio

import (
	"context"
	"runtime"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/ilyassan/ytaudiobar/internal/domain/track"
)

// engine is the dedicated goroutine that owns the output device and the
// active sink. It consumes commands, runs the acquisition pipeline, drives
// the playback timer and detects end-of-track by polling the sink.
//
// The sample buffer is replaced wholesale on every Play, retained across
// Pause and natural end (so the track can resume or restart without
// re-acquisition) and dropped only on Stop or when a different track loads.
type engine struct {
	cfg  Config
	dev  Device
	pipe Pipeline

	commands <-chan command
	quit     <-chan struct{}
	done     chan struct{} // closed when the engine goroutine exits

	shared *sharedState
	notify chan struct{}

	cur         *sink
	samples     []int16
	timer       playbackTimer
	lastPublish time.Time
}

func (e *engine) run() {
	defer close(e.done)

	// The device handle must never migrate across OS threads.
	runtime.LockOSThread()

	if err := e.dev.Open(e.cfg.SampleRate); err != nil {
		zlog.Error().Err(err).Msg("audio: cannot open output device, engine not started")
		return
	}
	zlog.Info().
		Int("sample_rate", e.cfg.SampleRate).
		Int("channels", e.cfg.Channels).
		Msg("audio: output device opened")

	ticker := time.NewTicker(e.cfg.Tick)
	defer ticker.Stop()
	e.lastPublish = time.Now()

	for {
		var cmd *command
		select {
		case <-e.quit:
			if e.cur != nil {
				e.cur.stop()
			}
			return
		case c := <-e.commands:
			cmd = &c
		case <-ticker.C:
			// Idle tick: fall through to end detection and position publish.
		}

		e.checkTrackEnded()
		e.publishPosition()

		if cmd == nil {
			continue
		}

		switch cmd.typ {
		case cmdPlay:
			e.handlePlay(cmd.track)
		case cmdSeek:
			e.handleSeek(cmd.value)
		case cmdTogglePlayPause:
			e.handleToggle()
		case cmdPause:
			e.handlePause()
		case cmdStop:
			e.handleStop()
		case cmdSetVolume:
			e.handleSetVolume(cmd.value)
		case cmdSetPlaybackRate:
			e.handleSetPlaybackRate(cmd.value)
		}
	}
}

// checkTrackEnded detects natural end of track: the sink drained while the
// timer was still running. Position is clamped to the authoritative
// duration, the sink is cleared and the buffer retained for restart.
func (e *engine) checkTrackEnded() {
	if e.cur == nil || !e.cur.empty() || !e.timer.isRunning() {
		return
	}

	zlog.Debug().Msg("audio: track ended (sink drained)")
	e.timer.stop()
	e.cur = nil

	e.shared.Lock()
	e.shared.state.IsPlaying = false
	e.shared.state.CurrentPosition = e.shared.state.Duration
	e.shared.Unlock()
	e.signal()
}

// publishPosition writes the extrapolated position into the shared state
// at the configured cadence while playing.
func (e *engine) publishPosition() {
	if !e.timer.isRunning() || time.Since(e.lastPublish) < e.cfg.PublishInterval {
		return
	}

	position := e.timer.currentPosition()
	e.shared.Lock()
	if position > e.shared.state.Duration {
		position = e.shared.state.Duration
	}
	e.shared.state.CurrentPosition = position
	e.shared.Unlock()
	e.signal()
	e.lastPublish = time.Now()
}

// handlePlay discards any current playback, synchronously acquires the PCM
// buffer and starts from sample zero. On acquisition failure the command is
// abandoned: no state transition happens and no change is published, so the
// caller's optimistic is_loading flag persists.
func (e *engine) handlePlay(t track.Track) {
	if e.cur != nil {
		e.cur.stop()
		e.cur = nil
	}
	e.samples = nil

	zlog.Info().Str("track_id", t.ID).Str("title", t.Title).Msg("audio: acquiring PCM stream")
	samples, err := e.pipe.Fetch(context.Background(), t.ID)
	if err != nil {
		zlog.Error().Err(err).Str("track_id", t.ID).Msg("audio: acquisition failed")
		return
	}
	zlog.Debug().Int("samples", len(samples)).Msg("audio: PCM buffer ready")

	e.samples = samples
	e.startFromOffset(0, 0)

	e.shared.Lock()
	e.shared.state.IsLoading = false
	e.shared.state.IsPlaying = true
	e.shared.state.CurrentPosition = 0
	e.shared.Unlock()
	e.signal()
}

// handleSeek replaces the sink with one fed the buffer truncated at the
// seek offset. The timer restarts at exactly the requested position, never
// at an elapsed-derived value. No-op without a retained buffer.
func (e *engine) handleSeek(position float64) {
	if e.samples == nil {
		return
	}

	if e.cur != nil {
		e.cur.stop()
		e.cur = nil
	}

	offset := int(position * float64(e.cfg.SampleRate) * float64(e.cfg.Channels))
	if offset >= len(e.samples) {
		zlog.Debug().Float64("position", position).Msg("audio: seek at or past end of track")
		return
	}
	offset -= offset % e.cfg.Channels // keep channel interleaving intact

	e.startFromOffset(offset, position)

	e.shared.Lock()
	e.shared.state.CurrentPosition = position
	e.shared.state.IsPlaying = true
	e.shared.Unlock()
	e.signal()

	zlog.Debug().Float64("position", position).Msg("audio: seeked")
}

func (e *engine) handleToggle() {
	e.shared.Lock()
	isPlaying := e.shared.state.IsPlaying
	duration := e.shared.state.Duration
	rate := e.shared.state.PlaybackRate
	e.shared.Unlock()

	position := e.timer.currentPosition()
	ended := (duration > 0 && position >= duration-e.cfg.EndTolerance) ||
		(e.samples != nil && e.cur == nil)

	switch {
	case isPlaying:
		if e.cur == nil {
			return
		}
		e.cur.pause()
		paused := e.timer.pause()
		e.shared.Lock()
		e.shared.state.IsPlaying = false
		e.shared.state.CurrentPosition = paused
		e.shared.Unlock()
		e.signal()
		zlog.Debug().Float64("position", paused).Msg("audio: paused")

	case ended:
		// Retained buffer, track at the end: restart from sample zero.
		if e.samples == nil {
			return
		}
		if e.cur != nil {
			e.cur.stop()
			e.cur = nil
		}
		e.startFromOffset(0, 0)
		e.shared.Lock()
		e.shared.state.IsPlaying = true
		e.shared.state.CurrentPosition = 0
		e.shared.Unlock()
		e.signal()
		zlog.Debug().Msg("audio: restarted track from beginning")

	default:
		if e.cur == nil {
			return
		}
		e.cur.resume()
		e.timer.start(position, rate)
		e.lastPublish = time.Now()
		e.shared.Lock()
		e.shared.state.IsPlaying = true
		e.shared.state.CurrentPosition = position
		e.shared.Unlock()
		e.signal()
		zlog.Debug().Float64("position", position).Msg("audio: resumed")
	}
}

// handlePause pauses unconditionally; unlike the toggle path it never
// restarts an ended track.
func (e *engine) handlePause() {
	if e.cur == nil {
		return
	}
	e.cur.pause()
	paused := e.timer.pause()

	e.shared.Lock()
	e.shared.state.IsPlaying = false
	e.shared.state.CurrentPosition = paused
	e.shared.Unlock()
	e.signal()
}

func (e *engine) handleStop() {
	if e.cur != nil {
		e.cur.stop()
		e.cur = nil
	}
	e.samples = nil
	e.timer.stop()

	e.shared.Lock()
	e.shared.state.IsPlaying = false
	e.shared.state.CurrentPosition = 0
	e.shared.Unlock()
	e.signal()
	zlog.Debug().Msg("audio: stopped")
}

func (e *engine) handleSetVolume(v float64) {
	if e.cur != nil {
		e.cur.setVolume(v)
	}
}

// handleSetPlaybackRate applies the rate to the sink and re-anchors the
// timer so elapsed-time accounting stays correct across the change.
func (e *engine) handleSetPlaybackRate(r float64) {
	if e.cur != nil {
		e.cur.setRate(r)
		e.timer.setRate(r)
	}
}

// startFromOffset builds and starts a fresh sink over samples[offset:]
// with the currently stored volume and rate, anchoring the timer at the
// given position.
func (e *engine) startFromOffset(offset int, position float64) {
	e.shared.Lock()
	volume := e.shared.state.Volume
	rate := e.shared.state.PlaybackRate
	e.shared.Unlock()

	s := newSink(e.dev, e.samples[offset:], e.cfg.Channels, volume, rate)
	s.play()
	e.cur = s
	e.timer.start(position, rate)
	e.lastPublish = time.Now()
}

// signal raises the single-slot change notification; bursts between
// watcher polls coalesce into one.
func (e *engine) signal() {
	select {
	case e.notify <- struct{}{}:
	default:
	}
}
