package audio

import "time"

// Config holds engine timing and sample format parameters.
type Config struct {
	SampleRate      int           // Samples per second per channel (44100)
	Channels        int           // Interleaved channel count (2)
	Tick            time.Duration // Engine loop tick; governs command latency
	PublishInterval time.Duration // How often position is written to state while playing
	WatchInterval   time.Duration // Notification watcher poll interval
	EndTolerance    float64       // Seconds from duration within which a track counts as ended
}

// DefaultConfig returns the standard 44.1kHz stereo engine configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:      44100,
		Channels:        2,
		Tick:            50 * time.Millisecond,
		PublishInterval: 500 * time.Millisecond,
		WatchInterval:   100 * time.Millisecond,
		EndTolerance:    0.5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.Channels <= 0 {
		c.Channels = d.Channels
	}
	if c.Tick <= 0 {
		c.Tick = d.Tick
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = d.PublishInterval
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = d.WatchInterval
	}
	if c.EndTolerance <= 0 {
		c.EndTolerance = d.EndTolerance
	}
	return c
}
