// Package downloads manages background audio downloads through yt-dlp,
// with per-track progress tracking and a metadata sidecar per download.
package downloads

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/ilyassan/ytaudiobar/internal/domain/track"
)

var (
	ErrAlreadyDownloading = errors.New("download already in progress")
	ErrAlreadyDownloaded  = errors.New("track already downloaded")
)

var audioExtensions = []string{".m4a", ".webm", ".mp3", ".aac", ".ogg"}

// Downloaded describes a completed download on disk.
type Downloaded struct {
	Track        track.Track `json:"track"`
	FilePath     string      `json:"file_path"`
	FileSize     int64       `json:"file_size"`
	DownloadedAt int64       `json:"download_date"`
}

type activeDownload struct {
	progress track.DownloadProgress
	cancel   context.CancelFunc
}

// Manager runs downloads concurrently and tracks their progress. Every
// change raises a single-slot signal per subscriber; consumers read the
// current set with Active.
type Manager struct {
	bin     string
	dir     string
	quality string

	mu        sync.Mutex
	active    map[string]*activeDownload
	completed map[string]struct{}

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

// NewManager creates a manager downloading with the given yt-dlp binary
// into dir. Existing downloads in dir are picked up from their metadata
// sidecars.
func NewManager(bin, dir, quality string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create downloads directory")
	}
	if quality == "" {
		quality = "best"
	}

	m := &Manager{
		bin:       bin,
		dir:       dir,
		quality:   quality,
		active:    make(map[string]*activeDownload),
		completed: make(map[string]struct{}),
		subs:      make(map[chan struct{}]struct{}),
	}
	m.scanExisting()
	return m, nil
}

func (m *Manager) scanExisting() {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, "_metadata.json") {
			continue
		}
		videoID := strings.TrimSuffix(name, "_metadata.json")
		if m.findAudioFile(videoID) != "" {
			m.completed[videoID] = struct{}{}
		}
	}
	zlog.Info().Int("count", len(m.completed)).Msg("downloads: found existing downloads")
}

// Subscribe returns a channel raised after every change, and a cancel
// function. At most one signal is pending per subscriber; bursts coalesce.
func (m *Manager) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		delete(m.subs, ch)
		m.subMu.Unlock()
	}
	return ch, cancel
}

func (m *Manager) signal() {
	m.subMu.Lock()
	for ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	m.subMu.Unlock()
}

// Download starts a background download for the track. It returns
// immediately; progress is reported via Updates and Active.
func (m *Manager) Download(t track.Track) error {
	m.mu.Lock()
	if _, ok := m.active[t.ID]; ok {
		m.mu.Unlock()
		return errors.Wrapf(ErrAlreadyDownloading, "track %s", t.ID)
	}
	if _, ok := m.completed[t.ID]; ok {
		m.mu.Unlock()
		return errors.Wrapf(ErrAlreadyDownloaded, "track %s", t.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.active[t.ID] = &activeDownload{
		progress: track.DownloadProgress{
			VideoID:  t.ID,
			Speed:    "Starting...",
			ETA:      "Calculating...",
			FileSize: "Unknown",
		},
		cancel: cancel,
	}
	m.mu.Unlock()
	m.signal()

	go func() {
		if err := m.run(ctx, t); err != nil {
			zlog.Error().Err(err).Str("track_id", t.ID).Msg("downloads: download failed")
			m.setError(t.ID, err)
		}
	}()
	return nil
}

// formatString maps the quality preference to a yt-dlp format selector.
func formatString(quality string) string {
	switch quality {
	case "320", "256", "192", "128":
		return "bestaudio[abr<=" + quality + "]/bestaudio"
	default:
		return "bestaudio[ext=m4a]/bestaudio"
	}
}

func (m *Manager) run(ctx context.Context, t track.Track) error {
	filename := "[" + t.ID + "] " + sanitizeFilename(t.Title) + " - " + sanitizeFilename(t.Uploader)
	template := filepath.Join(m.dir, filename+".%(ext)s")

	cmd := exec.CommandContext(ctx, m.bin,
		"--format", formatString(m.quality),
		"--output", template,
		"--no-playlist",
		"--newline",
		"--progress",
		t.URL(),
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "failed to pipe yt-dlp stdout")
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to spawn yt-dlp")
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if p, ok := parseProgressLine(scanner.Text()); ok {
			m.setProgress(t.ID, p)
		}
	}
	if err := scanner.Err(); err != nil {
		zlog.Warn().Err(err).Str("track_id", t.ID).Msg("downloads: progress stream read failed")
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "download canceled")
		}
		return errors.Wrap(err, "yt-dlp exited with error")
	}

	if err := m.writeMetadata(t); err != nil {
		return err
	}
	m.markCompleted(t.ID)
	return nil
}

// parseProgressLine extracts progress from a yt-dlp --newline progress
// line such as:
//
//	[download]  45.2% of 3.42MiB at 512.00KiB/s ETA 00:05
func parseProgressLine(line string) (track.DownloadProgress, bool) {
	if !strings.Contains(line, "[download]") || !strings.Contains(line, "%") {
		return track.DownloadProgress{}, false
	}

	var p track.DownloadProgress
	parts := strings.Fields(line)
	for i, part := range parts {
		switch {
		case strings.Contains(part, "%"):
			if v, err := strconv.ParseFloat(strings.TrimSuffix(part, "%"), 64); err == nil {
				p.Progress = v / 100.0
			}
		case strings.Contains(part, "MiB") || strings.Contains(part, "KiB") || strings.Contains(part, "GiB"):
			if strings.Contains(part, "/s") {
				p.Speed = part
			} else if i > 0 && parts[i-1] == "of" {
				p.FileSize = part
			}
		case part == "ETA" && i+1 < len(parts):
			p.ETA = parts[i+1]
		}
	}
	return p, true
}

func (m *Manager) setProgress(videoID string, p track.DownloadProgress) {
	m.mu.Lock()
	if d, ok := m.active[videoID]; ok {
		d.progress.Progress = p.Progress
		d.progress.Speed = p.Speed
		d.progress.ETA = p.ETA
		d.progress.FileSize = p.FileSize
	}
	m.mu.Unlock()
	m.signal()
}

func (m *Manager) setError(videoID string, err error) {
	m.mu.Lock()
	if d, ok := m.active[videoID]; ok {
		d.progress.Error = err.Error()
	}
	m.mu.Unlock()
	m.signal()
}

// markCompleted flags the final progress state before clearing the entry,
// so a subscriber polling Active between the two signals sees it finish.
func (m *Manager) markCompleted(videoID string) {
	m.mu.Lock()
	if d, ok := m.active[videoID]; ok {
		d.progress.Progress = 1.0
		d.progress.Completed = true
	}
	m.mu.Unlock()
	m.signal()

	m.mu.Lock()
	delete(m.active, videoID)
	m.completed[videoID] = struct{}{}
	m.mu.Unlock()
	m.signal()
}

func (m *Manager) writeMetadata(t track.Track) error {
	meta := map[string]any{
		"id":            t.ID,
		"title":         t.Title,
		"uploader":      t.Uploader,
		"duration":      t.Duration,
		"thumbnail_url": t.ThumbnailURL,
		"description":   t.Description,
		"download_date": time.Now().Unix(),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode metadata")
	}
	path := filepath.Join(m.dir, t.ID+"_metadata.json")
	return errors.Wrap(os.WriteFile(path, data, 0o644), "failed to write metadata")
}

// Active returns the in-flight downloads, including failed ones that have
// not been cleared yet.
func (m *Manager) Active() []track.DownloadProgress {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]track.DownloadProgress, 0, len(m.active))
	for _, d := range m.active {
		out = append(out, d.progress)
	}
	return out
}

// IsDownloaded reports whether a track has a completed download.
func (m *Manager) IsDownloaded(videoID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.completed[videoID]
	return ok
}

// FilePath returns the local audio file of a completed download, or empty.
func (m *Manager) FilePath(videoID string) string {
	if !m.IsDownloaded(videoID) {
		return ""
	}
	return m.findAudioFile(videoID)
}

// Downloaded lists completed downloads with their on-disk metadata.
func (m *Manager) Downloaded() []Downloaded {
	m.mu.Lock()
	ids := make([]string, 0, len(m.completed))
	for id := range m.completed {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var out []Downloaded
	for _, id := range ids {
		path := m.findAudioFile(id)
		if path == "" {
			continue
		}

		d := Downloaded{FilePath: path}
		if info, err := os.Stat(path); err == nil {
			d.FileSize = info.Size()
		}

		data, err := os.ReadFile(filepath.Join(m.dir, id+"_metadata.json"))
		if err != nil {
			continue
		}
		var meta struct {
			track.Track
			DownloadDate int64 `json:"download_date"`
		}
		if err := json.Unmarshal(data, &meta); err != nil {
			zlog.Warn().Err(err).Str("track_id", id).Msg("downloads: unreadable metadata sidecar")
			continue
		}
		d.Track = meta.Track
		d.DownloadedAt = meta.DownloadDate
		out = append(out, d)
	}
	return out
}

// Cancel stops an in-flight download and discards its progress entry.
func (m *Manager) Cancel(videoID string) {
	m.mu.Lock()
	if d, ok := m.active[videoID]; ok {
		d.cancel()
		delete(m.active, videoID)
	}
	m.mu.Unlock()
	m.signal()
}

// Delete removes a completed download's audio file and metadata sidecar.
func (m *Manager) Delete(videoID string) error {
	if path := m.findAudioFile(videoID); path != "" {
		if err := os.Remove(path); err != nil {
			return errors.Wrap(err, "failed to delete audio file")
		}
	}
	metaPath := filepath.Join(m.dir, videoID+"_metadata.json")
	if err := os.Remove(metaPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete metadata")
	}

	m.mu.Lock()
	delete(m.completed, videoID)
	m.mu.Unlock()
	m.signal()
	return nil
}

// StorageUsed returns the total size in bytes of the downloads directory.
func (m *Manager) StorageUsed() int64 {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0
	}
	var total int64
	for _, e := range entries {
		if info, err := e.Info(); err == nil && info.Mode().IsRegular() {
			total += info.Size()
		}
	}
	return total
}

// Dir returns the downloads directory.
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) findAudioFile(videoID string) string {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		name := e.Name()
		for _, ext := range audioExtensions {
			if strings.HasSuffix(name, ext) && strings.Contains(name, videoID) {
				return filepath.Join(m.dir, name)
			}
		}
	}
	return ""
}

// sanitizeFilename keeps letters, digits, spaces, dashes and dots.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
