// Package queue provides the playback queue with shuffle and repeat modes.
package queue

import (
	"math/rand"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/ilyassan/ytaudiobar/internal/domain/track"
)

var ErrInvalidIndex = errors.New("invalid queue index")

// Snapshot is a point-in-time copy of the queue state.
type Snapshot struct {
	Tracks       []track.Track    `json:"queue"`
	CurrentIndex int              `json:"current_index"` // -1 when nothing selected
	Shuffle      bool             `json:"shuffle_mode"`
	Repeat       track.RepeatMode `json:"repeat_mode"`
}

// Manager holds the ordered track queue. All methods are safe for
// concurrent use.
type Manager struct {
	mu       sync.Mutex
	tracks   []track.Track
	current  int // index into tracks, -1 when nothing selected
	shuffle  bool
	repeat   track.RepeatMode
	original []track.Track // pre-shuffle order, restored when shuffle is disabled
}

func NewManager() *Manager {
	return &Manager{current: -1, repeat: track.RepeatOff}
}

// Add appends a track to the end of the queue.
func (m *Manager) Add(t track.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tracks = append(m.tracks, t)
	zlog.Debug().Str("track_id", t.ID).Int("queue_len", len(m.tracks)).Msg("queue: track added")
}

// AddBatch appends multiple tracks to the end of the queue.
func (m *Manager) AddBatch(ts []track.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tracks = append(m.tracks, ts...)
	zlog.Debug().Int("added", len(ts)).Int("queue_len", len(m.tracks)).Msg("queue: batch added")
}

// InsertNext inserts a track right after the current one.
func (m *Manager) InsertNext(t track.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()

	at := m.current + 1
	if at < 0 {
		at = 0
	}
	if at >= len(m.tracks) {
		m.tracks = append(m.tracks, t)
		return
	}
	m.tracks = append(m.tracks[:at], append([]track.Track{t}, m.tracks[at:]...)...)
}

// Remove deletes the track at index, adjusting the current index.
func (m *Manager) Remove(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.tracks) {
		return errors.Wrapf(ErrInvalidIndex, "index %d, queue length %d", index, len(m.tracks))
	}
	m.tracks = append(m.tracks[:index], m.tracks[index+1:]...)

	if m.current >= index && m.current > 0 {
		m.current--
	}
	return nil
}

// Clear empties the queue and resets the current index.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tracks = nil
	m.original = nil
	m.current = -1
}

// TrackAt selects the track at index as current and returns it.
func (m *Manager) TrackAt(index int) (track.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.tracks) {
		return track.Track{}, false
	}
	m.current = index
	return m.tracks[index], true
}

// Next advances according to the repeat mode and returns the new current
// track. Returns false at the end of the queue with repeat off.
func (m *Manager) Next() (track.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tracks) == 0 {
		return track.Track{}, false
	}

	switch m.repeat {
	case track.RepeatOne:
		return m.currentLocked()
	case track.RepeatAll:
		m.current = (m.current + 1) % len(m.tracks)
		return m.tracks[m.current], true
	default:
		if m.current+1 < len(m.tracks) {
			m.current++
			return m.tracks[m.current], true
		}
		return track.Track{}, false
	}
}

// Previous steps back according to the repeat mode.
func (m *Manager) Previous() (track.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tracks) == 0 {
		return track.Track{}, false
	}

	switch m.repeat {
	case track.RepeatOne:
		return m.currentLocked()
	case track.RepeatAll:
		if m.current <= 0 {
			m.current = len(m.tracks) - 1
		} else {
			m.current--
		}
		return m.tracks[m.current], true
	default:
		if m.current > 0 {
			m.current--
		} else {
			m.current = 0
		}
		return m.tracks[m.current], true
	}
}

func (m *Manager) currentLocked() (track.Track, bool) {
	if m.current < 0 || m.current >= len(m.tracks) {
		return track.Track{}, false
	}
	return m.tracks[m.current], true
}

// HasNext reports whether Next would yield a track.
func (m *Manager) HasNext() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tracks) == 0 {
		return false
	}
	if m.repeat != track.RepeatOff {
		return true
	}
	return m.current+1 < len(m.tracks)
}

// HasPrevious reports whether Previous would yield a track.
func (m *Manager) HasPrevious() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tracks) > 0 && m.current >= 0
}

// ToggleShuffle flips shuffle mode. Enabling saves the original order and
// moves the current track to the front of the shuffled queue; disabling
// restores the original order and re-locates the current track.
func (m *Manager) ToggleShuffle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shuffle = !m.shuffle

	cur, hasCur := m.currentLocked()

	if m.shuffle {
		m.original = append([]track.Track(nil), m.tracks...)
		rand.Shuffle(len(m.tracks), func(i, j int) {
			m.tracks[i], m.tracks[j] = m.tracks[j], m.tracks[i]
		})
		if hasCur {
			for i, t := range m.tracks {
				if t.ID == cur.ID {
					m.tracks[0], m.tracks[i] = m.tracks[i], m.tracks[0]
					m.current = 0
					break
				}
			}
		}
		zlog.Debug().Msg("queue: shuffle enabled")
	} else {
		if len(m.original) > 0 {
			m.tracks = m.original
			m.original = nil
			if hasCur {
				for i, t := range m.tracks {
					if t.ID == cur.ID {
						m.current = i
						break
					}
				}
			}
		}
		zlog.Debug().Msg("queue: shuffle disabled")
	}

	return m.shuffle
}

// CycleRepeat advances the repeat mode and returns the new one.
func (m *Manager) CycleRepeat() track.RepeatMode {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.repeat = m.repeat.Cycle()
	zlog.Debug().Str("mode", string(m.repeat)).Msg("queue: repeat mode changed")
	return m.repeat
}

// Reorder replaces the queue with a caller-supplied permutation of the
// same tracks, preserving the current track's position.
func (m *Manager) Reorder(tracks []track.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(tracks) != len(m.tracks) {
		return errors.Newf("reorder length mismatch: got %d, queue has %d", len(tracks), len(m.tracks))
	}

	cur, hasCur := m.currentLocked()
	m.tracks = append([]track.Track(nil), tracks...)

	if hasCur {
		for i, t := range m.tracks {
			if t.ID == cur.ID {
				m.current = i
				break
			}
		}
	}
	return nil
}

// Snapshot returns a copy of the queue state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Tracks:       append([]track.Track(nil), m.tracks...),
		CurrentIndex: m.current,
		Shuffle:      m.shuffle,
		Repeat:       m.repeat,
	}
}
