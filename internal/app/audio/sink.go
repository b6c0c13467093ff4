package audio

import (
	"math"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

const resampleQuality = 4

// sink is the device-bound playback handle: one sample buffer streamed
// through rate resampling, pause control and volume scaling. At most one
// sink is active at any time; Play and Seek always build a fresh one.
type sink struct {
	dev  Device
	pcm  *pcmStreamer
	rate *beep.Resampler
	ctrl *beep.Ctrl
	vol  *effects.Volume
}

// newSink builds a handle over samples with the given volume and rate
// already applied. The sink is not audible until play is called.
func newSink(dev Device, samples []int16, channels int, volume, rate float64) *sink {
	pcm := newPCMStreamer(samples, channels)
	rs := beep.ResampleRatio(resampleQuality, rate, pcm)
	ctrl := &beep.Ctrl{Streamer: rs}
	vol := &effects.Volume{Streamer: ctrl, Base: 2}

	s := &sink{dev: dev, pcm: pcm, rate: rs, ctrl: ctrl, vol: vol}
	s.applyVolume(volume)
	return s
}

func (s *sink) play() {
	s.dev.Play(s.vol)
}

func (s *sink) pause() {
	s.dev.Lock()
	s.ctrl.Paused = true
	s.dev.Unlock()
}

func (s *sink) resume() {
	s.dev.Lock()
	s.ctrl.Paused = false
	s.dev.Unlock()
}

// stop detaches the sink from the device. The sink cannot be restarted.
func (s *sink) stop() {
	s.dev.Clear()
}

// empty reports whether the sample buffer has been fully consumed.
func (s *sink) empty() bool {
	s.dev.Lock()
	defer s.dev.Unlock()
	return s.pcm.drained
}

func (s *sink) setVolume(v float64) {
	s.dev.Lock()
	s.applyVolume(v)
	s.dev.Unlock()
}

// applyVolume maps linear volume in [0,1] onto beep's exponential scale
// (gain = Base^Volume, so log2 of the linear value with Base 2).
func (s *sink) applyVolume(v float64) {
	if v <= 0 {
		s.vol.Silent = true
		s.vol.Volume = 0
		return
	}
	s.vol.Silent = false
	s.vol.Volume = math.Log2(v)
}

func (s *sink) setRate(r float64) {
	s.dev.Lock()
	s.rate.SetRatio(r)
	s.dev.Unlock()
}
