package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const timerTolerance = 0.08 // seconds; generous for CI schedulers

func TestTimerStartsStoppedAtUnitRate(t *testing.T) {
	tm := newPlaybackTimer()

	assert.False(t, tm.isRunning())
	assert.Equal(t, 0.0, tm.currentPosition())
	assert.Equal(t, 1.0, tm.rate)
}

func TestTimerExtrapolatesWhileRunning(t *testing.T) {
	tm := newPlaybackTimer()
	tm.start(5.0, 1.0)

	time.Sleep(100 * time.Millisecond)

	assert.True(t, tm.isRunning())
	assert.InDelta(t, 5.1, tm.currentPosition(), timerTolerance)
}

func TestTimerRateScalesElapsed(t *testing.T) {
	tm := newPlaybackTimer()
	tm.start(0, 2.0)

	time.Sleep(100 * time.Millisecond)

	assert.InDelta(t, 0.2, tm.currentPosition(), timerTolerance)
}

func TestTimerPauseFreezesPosition(t *testing.T) {
	tm := newPlaybackTimer()
	tm.start(1.0, 1.0)
	time.Sleep(50 * time.Millisecond)

	frozen := tm.pause()
	assert.False(t, tm.isRunning())
	assert.InDelta(t, 1.05, frozen, timerTolerance)

	// No drift after pause.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, tm.currentPosition())
}

func TestTimerSeekIsAuthoritative(t *testing.T) {
	tm := newPlaybackTimer()
	tm.start(0, 1.0)
	time.Sleep(50 * time.Millisecond)

	tm.seek(30.0)
	assert.InDelta(t, 30.0, tm.currentPosition(), timerTolerance)
	assert.True(t, tm.isRunning())
}

func TestTimerSeekWhilePaused(t *testing.T) {
	tm := newPlaybackTimer()
	tm.seek(12.5)

	assert.False(t, tm.isRunning())
	assert.Equal(t, 12.5, tm.currentPosition())
}

func TestTimerSetRateHasNoDiscontinuity(t *testing.T) {
	tm := newPlaybackTimer()
	tm.start(3.0, 1.0)
	time.Sleep(50 * time.Millisecond)

	tm.setRate(2.0)
	// Position right after the rate change equals the old-rate position.
	assert.InDelta(t, 3.05, tm.currentPosition(), timerTolerance)

	time.Sleep(100 * time.Millisecond)
	// From here on elapsed time counts double.
	assert.InDelta(t, 3.25, tm.currentPosition(), 2*timerTolerance)
}

func TestTimerStopResetsToZero(t *testing.T) {
	tm := newPlaybackTimer()
	tm.start(7.0, 1.0)

	tm.stop()

	assert.False(t, tm.isRunning())
	assert.Equal(t, 0.0, tm.currentPosition())
}
