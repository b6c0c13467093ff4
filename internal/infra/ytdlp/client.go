package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/ilyassan/ytaudiobar/internal/domain/track"
)

// Client runs yt-dlp metadata queries: search and stream URL resolution.
type Client struct {
	bin string
}

// NewClient creates a client using the given yt-dlp binary path.
func NewClient(bin string) *Client {
	return &Client{bin: bin}
}

// videoJSON is the subset of yt-dlp's --dump-json output we consume.
type videoJSON struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Uploader    string  `json:"uploader"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
}

// Search runs a ytsearch query and returns up to max track descriptors.
// With musicMode the query is biased toward music results. Lines that fail
// to parse are skipped, matching yt-dlp's --ignore-errors behavior.
func (c *Client) Search(ctx context.Context, query string, musicMode bool, max int) ([]track.Track, error) {
	if max <= 0 {
		max = 10
	}
	q := query
	if musicMode {
		q += " music song audio"
	}
	searchQuery := fmt.Sprintf("ytsearch%d:%s", max, q)

	cmd := exec.CommandContext(ctx, c.bin,
		"--dump-json",
		"--flat-playlist",
		"--no-warnings",
		"--ignore-errors",
		searchQuery,
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to pipe yt-dlp stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to spawn yt-dlp")
	}

	var results []track.Track
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var v videoJSON
		if err := json.Unmarshal(scanner.Bytes(), &v); err != nil {
			zlog.Debug().Err(err).Msg("ytdlp: skipping unparseable search result line")
			continue
		}
		if v.ID == "" || v.Title == "" {
			continue
		}
		results = append(results, toTrack(v))
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return nil, errors.Wrap(err, "failed to read yt-dlp output")
	}

	if err := cmd.Wait(); err != nil {
		// Partial results with --ignore-errors still exit non-zero at times;
		// keep what parsed if anything did.
		if len(results) == 0 {
			return nil, errors.Wrap(err, "yt-dlp search failed")
		}
		zlog.Warn().Err(err).Int("results", len(results)).Msg("ytdlp: search exited non-zero, keeping partial results")
	}

	return results, nil
}

// AudioURL resolves the direct best-audio stream URL for a video.
func (c *Client) AudioURL(ctx context.Context, videoID string) (string, error) {
	cmd := exec.CommandContext(ctx, c.bin,
		"--dump-json",
		"-f", "bestaudio",
		"--no-warnings",
		track.Track{ID: videoID}.URL(),
	)
	out, err := cmd.Output()
	if err != nil {
		return "", errors.Wrap(err, "failed to extract audio URL")
	}

	var v videoJSON
	if err := json.Unmarshal(out, &v); err != nil {
		return "", errors.Wrap(err, "failed to parse yt-dlp output")
	}
	if v.URL == "" {
		return "", errors.New("no audio URL in yt-dlp response")
	}
	return v.URL, nil
}

func toTrack(v videoJSON) track.Track {
	uploader := v.Uploader
	if uploader == "" {
		uploader = "Unknown"
	}
	return track.Track{
		ID:           v.ID,
		Title:        v.Title,
		Uploader:     uploader,
		Duration:     int64(v.Duration),
		ThumbnailURL: v.Thumbnail,
		Description:  v.Description,
	}
}
