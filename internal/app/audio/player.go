package audio

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/ilyassan/ytaudiobar/internal/domain/track"
)

// ErrEngineStopped is returned by command submissions after the engine
// goroutine has terminated. This is not recoverable by retrying.
var ErrEngineStopped = errors.New("audio engine stopped")

// sharedState is the snapshot jointly written by the engine goroutine and,
// optimistically, by the command API. The lock is held only across the
// mutation, never across I/O or sleeps.
type sharedState struct {
	sync.Mutex
	state State
}

// Player is the asynchronous command/state interface to the engine.
// All transport methods validate and clamp at the boundary, then enqueue
// and return without blocking on playback work.
type Player struct {
	cfg      Config
	shared   *sharedState
	commands chan command
	notify   chan struct{}
	quit     chan struct{}
	done     chan struct{} // closed by the engine goroutine on exit

	subMu sync.Mutex
	subs  map[chan State]struct{}
}

// NewPlayer starts the engine goroutine on dev fed by pipe, plus the
// notification watcher, and returns the command interface.
func NewPlayer(dev Device, pipe Pipeline, cfg Config) *Player {
	cfg = cfg.withDefaults()

	p := &Player{
		cfg:      cfg,
		shared:   &sharedState{state: defaultState()},
		commands: make(chan command, 64),
		notify:   make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		subs:     make(map[chan State]struct{}),
	}

	e := &engine{
		cfg:      cfg,
		dev:      dev,
		pipe:     pipe,
		commands: p.commands,
		quit:     p.quit,
		done:     p.done,
		shared:   p.shared,
		notify:   p.notify,
		timer:    newPlaybackTimer(),
	}
	go e.run()
	go p.watch()

	return p
}

// Play loads and plays a track. The state is updated immediately for UI
// feedback (loading, duration from the descriptor) before the engine
// begins acquisition.
func (p *Player) Play(t track.Track) error {
	p.shared.Lock()
	tr := t
	p.shared.state.CurrentTrack = &tr
	p.shared.state.IsLoading = true
	p.shared.state.IsPlaying = false
	p.shared.state.CurrentPosition = 0
	p.shared.state.Duration = float64(t.Duration)
	p.shared.Unlock()
	p.signal()

	return p.send(command{typ: cmdPlay, track: t})
}

// TogglePlayPause pauses a playing track, resumes a paused one, or
// restarts an ended one from the beginning.
func (p *Player) TogglePlayPause() error {
	return p.send(command{typ: cmdTogglePlayPause})
}

// Pause pauses playback. Never restarts an ended track.
func (p *Player) Pause() error {
	return p.send(command{typ: cmdPause})
}

// Stop stops playback and drops the decoded buffer.
func (p *Player) Stop() error {
	return p.send(command{typ: cmdStop})
}

// Seek jumps to the given position in seconds, clamped to the current
// track duration.
func (p *Player) Seek(position float64) error {
	p.shared.Lock()
	duration := p.shared.state.Duration
	p.shared.Unlock()

	position = clamp(position, 0, duration)
	return p.send(command{typ: cmdSeek, value: position})
}

// SetVolume sets the volume, clamped to [0, 1]. The stored value is
// updated immediately; the active sink picks it up via the engine.
func (p *Player) SetVolume(volume float64) error {
	volume = clamp(volume, MinVolume, MaxVolume)

	p.shared.Lock()
	p.shared.state.Volume = volume
	p.shared.Unlock()
	p.signal()

	return p.send(command{typ: cmdSetVolume, value: volume})
}

// SetPlaybackRate sets the playback rate, clamped to [0.25, 2.0].
func (p *Player) SetPlaybackRate(rate float64) error {
	rate = clamp(rate, MinRate, MaxRate)

	p.shared.Lock()
	p.shared.state.PlaybackRate = rate
	p.shared.Unlock()
	p.signal()

	return p.send(command{typ: cmdSetPlaybackRate, value: rate})
}

// State returns a copy of the current snapshot.
func (p *Player) State() State {
	p.shared.Lock()
	defer p.shared.Unlock()
	return p.shared.state
}

// Subscribe returns a channel receiving the state snapshot after every
// change the watcher observes, and a cancel function. Slow subscribers
// miss intermediate snapshots rather than blocking the watcher.
func (p *Player) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	p.subMu.Lock()
	p.subs[ch] = struct{}{}
	p.subMu.Unlock()

	cancel := func() {
		p.subMu.Lock()
		delete(p.subs, ch)
		p.subMu.Unlock()
	}
	return ch, cancel
}

// Close shuts down the engine and the watcher. Pending commands are
// discarded; in-flight acquisition finishes first.
func (p *Player) Close() {
	select {
	case <-p.quit:
	default:
		close(p.quit)
	}
	<-p.done
}

// watch polls the notification signal at a fixed interval and republishes
// the current snapshot to subscribers. Changes between polls coalesce.
func (p *Player) watch() {
	ticker := time.NewTicker(p.cfg.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.quit:
			return
		case <-ticker.C:
		}

		select {
		case <-p.notify:
		default:
			continue
		}

		state := p.State()
		p.subMu.Lock()
		for ch := range p.subs {
			select {
			case ch <- state:
			default:
				zlog.Debug().Msg("audio: dropping state update for slow subscriber")
			}
		}
		p.subMu.Unlock()
	}
}

func (p *Player) send(cmd command) error {
	select {
	case <-p.done:
		return errors.WithDetailf(ErrEngineStopped, "command %s dropped", cmd.typ)
	default:
	}

	select {
	case p.commands <- cmd:
		return nil
	case <-p.done:
		return errors.WithDetailf(ErrEngineStopped, "command %s dropped", cmd.typ)
	}
}

// signal raises the watcher notification for optimistic state writes made
// on the caller side (play, volume, rate).
func (p *Player) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}
