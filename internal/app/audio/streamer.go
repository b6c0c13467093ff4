package audio

// pcmStreamer streams interleaved signed 16-bit samples as beep frames.
// It reads from a shared sample buffer starting at a fixed offset; seeking
// is done by building a new streamer over a truncated slice, never by
// repositioning this one.
type pcmStreamer struct {
	samples  []int16
	channels int
	pos      int
	drained  bool
}

func newPCMStreamer(samples []int16, channels int) *pcmStreamer {
	if channels < 1 {
		channels = 1
	}
	return &pcmStreamer{samples: samples, channels: channels}
}

// Stream fills out with frames converted to float64 in [-1, 1).
// Called by the speaker goroutine under the speaker lock.
func (p *pcmStreamer) Stream(out [][2]float64) (int, bool) {
	if p.pos >= len(p.samples) {
		p.drained = true
		return 0, false
	}

	n := 0
	for i := range out {
		if p.pos >= len(p.samples) {
			break
		}
		left := float64(p.samples[p.pos]) / 32768.0
		right := left
		if p.channels > 1 && p.pos+1 < len(p.samples) {
			right = float64(p.samples[p.pos+1]) / 32768.0
		}
		out[i][0] = left
		out[i][1] = right
		p.pos += p.channels
		n++
	}

	if p.pos >= len(p.samples) {
		p.drained = true
	}
	return n, n > 0
}

func (p *pcmStreamer) Err() error { return nil }
