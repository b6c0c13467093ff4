package audio

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Device is the audio output the engine plays into. Exactly one sink is
// active at a time; Play replaces whatever the device was consuming.
// Lock/Unlock guard mutations of streamers the device is pulling from.
type Device interface {
	Open(sampleRate int) error
	Play(s beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

// SpeakerDevice plays through the default output device via beep's speaker.
type SpeakerDevice struct{}

// Open initializes the speaker with a ~100ms internal buffer.
func (SpeakerDevice) Open(sampleRate int) error {
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return errors.Wrap(err, "failed to open audio output")
	}
	return nil
}

func (SpeakerDevice) Play(s beep.Streamer) { speaker.Play(s) }
func (SpeakerDevice) Clear()               { speaker.Clear() }
func (SpeakerDevice) Lock()                { speaker.Lock() }
func (SpeakerDevice) Unlock()              { speaker.Unlock() }
