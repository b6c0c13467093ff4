// Package ytdlp wraps the external yt-dlp and ffmpeg tools: binary
// management, YouTube search and the raw PCM acquisition pipeline.
package ytdlp

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

const releaseURLBase = "https://github.com/yt-dlp/yt-dlp/releases/latest/download/"

// Manager resolves, installs and updates the yt-dlp binary.
type Manager struct {
	dir        string
	client     *http.Client
	releaseURL string
}

// NewManager creates a manager rooted at dir. An empty dir resolves to the
// per-user data directory.
func NewManager(dir string) *Manager {
	if dir == "" {
		dir = DefaultBinDir()
	}
	return &Manager{dir: dir, client: http.DefaultClient, releaseURL: releaseURLBase}
}

// DefaultBinDir returns the per-user directory holding the yt-dlp binary.
func DefaultBinDir() string {
	if runtime.GOOS == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "ytaudiobar", "bin")
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "ytaudiobar", "bin")
	}
	return filepath.Join(home, ".local", "share", "ytaudiobar", "bin")
}

// Path returns the expected location of the yt-dlp binary.
func (m *Manager) Path() string {
	name := "yt-dlp"
	if runtime.GOOS == "windows" {
		name = "yt-dlp.exe"
	}
	return filepath.Join(m.dir, name)
}

// Installed reports whether the managed binary exists.
func (m *Manager) Installed() bool {
	_, err := os.Stat(m.Path())
	return err == nil
}

// Install downloads the latest yt-dlp release binary into the managed
// directory and marks it executable.
func (m *Manager) Install(ctx context.Context) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create tool directory")
	}

	url := m.releaseURL + "yt-dlp"
	if runtime.GOOS == "windows" {
		url = m.releaseURL + "yt-dlp.exe"
	}
	zlog.Info().Str("url", url).Msg("ytdlp: downloading release binary")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build download request")
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to download yt-dlp")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("failed to download yt-dlp: HTTP %d", resp.StatusCode)
	}

	f, err := os.OpenFile(m.Path(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return errors.Wrap(err, "failed to create binary file")
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return errors.Wrap(err, "failed to write binary file")
	}

	zlog.Info().Str("path", m.Path()).Msg("ytdlp: installed")
	return nil
}

// Version returns the installed yt-dlp version string.
func (m *Manager) Version(ctx context.Context) (string, error) {
	if !m.Installed() {
		return "", errors.New("yt-dlp is not installed")
	}

	out, err := exec.CommandContext(ctx, m.Path(), "--version").Output()
	if err != nil {
		return "", errors.Wrap(err, "failed to get yt-dlp version")
	}
	return strings.TrimSpace(string(out)), nil
}

// Update runs yt-dlp's self-update.
func (m *Manager) Update(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, m.Path(), "-U").CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "failed to update yt-dlp: %s", strings.TrimSpace(string(out)))
	}
	return nil
}
