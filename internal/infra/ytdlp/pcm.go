package ytdlp

import (
	"bytes"
	"context"
	"encoding/binary"
	"os/exec"
	"strconv"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/ilyassan/ytaudiobar/internal/domain/track"
)

// PCMPipeline turns a track ID into a complete in-memory sample buffer by
// piping yt-dlp's best-audio stream through ffmpeg configured for raw
// interleaved little-endian signed 16-bit output.
//
// The pipeline runs to completion before any samples are available; there
// is no incremental playback start.
type PCMPipeline struct {
	ytdlpBin   string
	ffmpegBin  string
	sampleRate int
	channels   int
}

// NewPCMPipeline creates a pipeline emitting the given fixed format.
// ffmpegBin may be a bare name resolved via PATH.
func NewPCMPipeline(ytdlpBin, ffmpegBin string, sampleRate, channels int) *PCMPipeline {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	return &PCMPipeline{
		ytdlpBin:   ytdlpBin,
		ffmpegBin:  ffmpegBin,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Fetch acquires and decodes the whole track. It fails if either process
// cannot spawn, the transcoder exits non-zero, or the output is empty.
func (p *PCMPipeline) Fetch(ctx context.Context, trackID string) ([]int16, error) {
	url := track.Track{ID: trackID}.URL()

	extract := exec.CommandContext(ctx, p.ytdlpBin,
		"-f", "bestaudio",
		"-o", "-",
		"--no-warnings",
		"--quiet",
		url,
	)
	extractOut, err := extract.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to pipe yt-dlp stdout")
	}

	transcode := exec.CommandContext(ctx, p.ffmpegBin,
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(p.sampleRate),
		"-ac", strconv.Itoa(p.channels),
		"-loglevel", "error",
		"pipe:1",
	)
	transcode.Stdin = extractOut
	var pcm bytes.Buffer
	transcode.Stdout = &pcm

	if err := extract.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to spawn yt-dlp")
	}
	if err := transcode.Start(); err != nil {
		_ = extract.Process.Kill()
		_ = extract.Wait()
		return nil, errors.Wrap(err, "failed to spawn ffmpeg")
	}

	transcodeErr := transcode.Wait()
	// A failed extractor shows up as empty transcoder output, so its exit
	// status is informational only.
	if err := extract.Wait(); err != nil {
		zlog.Debug().Err(err).Str("track_id", trackID).Msg("ytdlp: extractor exited non-zero")
	}
	if transcodeErr != nil {
		return nil, errors.Wrap(transcodeErr, "ffmpeg conversion failed")
	}

	if pcm.Len() == 0 {
		return nil, errors.New("no audio data received")
	}

	samples := decodePCM(pcm.Bytes())
	zlog.Debug().
		Str("track_id", trackID).
		Int("bytes", pcm.Len()).
		Int("samples", len(samples)).
		Msg("ytdlp: PCM acquisition complete")
	return samples, nil
}

// decodePCM consumes exactly two bytes per sample, little-endian signed
// 16-bit. A trailing odd byte is dropped.
func decodePCM(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return samples
}
