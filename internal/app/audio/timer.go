package audio

import "time"

// playbackTimer derives the playback position from wall-clock time.
// The backend reports no timestamps, so position is extrapolated from the
// instant playback (re)started, scaled by the playback rate.
//
// Invariant: running (anchor set) if and only if playback is in progress.
type playbackTimer struct {
	anchor        time.Time // zero when not running
	startPosition float64   // seconds
	rate          float64
}

func newPlaybackTimer() playbackTimer {
	return playbackTimer{rate: 1.0}
}

// start anchors the timer at the given position and rate.
func (t *playbackTimer) start(position, rate float64) {
	t.anchor = time.Now()
	t.startPosition = position
	t.rate = rate
}

// pause freezes the current position and clears the anchor.
// Returns the frozen position so callers can publish it.
func (t *playbackTimer) pause() float64 {
	position := t.currentPosition()
	t.startPosition = position
	t.anchor = time.Time{}
	return position
}

// seek sets an authoritative position. If running, the anchor is reset so
// elapsed-time accounting restarts cleanly from the seek point.
func (t *playbackTimer) seek(position float64) {
	t.startPosition = position
	if !t.anchor.IsZero() {
		t.anchor = time.Now()
	}
}

// setRate changes the rate without a discontinuity in reported position:
// elapsed time at the old rate is collapsed into startPosition first.
func (t *playbackTimer) setRate(rate float64) {
	if !t.anchor.IsZero() {
		t.startPosition = t.currentPosition()
		t.anchor = time.Now()
	}
	t.rate = rate
}

// currentPosition returns the extrapolated position in seconds.
func (t *playbackTimer) currentPosition() float64 {
	if t.anchor.IsZero() {
		return t.startPosition
	}
	return t.startPosition + time.Since(t.anchor).Seconds()*t.rate
}

func (t *playbackTimer) isRunning() bool {
	return !t.anchor.IsZero()
}

// stop clears the anchor and resets the position to zero.
func (t *playbackTimer) stop() {
	t.anchor = time.Time{}
	t.startPosition = 0
}
