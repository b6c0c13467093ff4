package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 2, cfg.Audio.Channels)
	assert.Equal(t, 50, cfg.Audio.TickMs)
	assert.Equal(t, 500, cfg.Audio.PublishIntervalMs)
	assert.Equal(t, 0.5, cfg.Audio.EndToleranceSec)
	assert.Equal(t, "ffmpeg", cfg.Tools.FFmpegPath)
	assert.Equal(t, "best", cfg.Downloads.Quality)
	assert.NotEmpty(t, cfg.Storage.Path)
	assert.NotEmpty(t, cfg.Downloads.Dir)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
audio:
  sample_rate: 48000
  channels: 1
discovery:
  providers:
    - type: youtube
      display_name: YouTube
      settings:
        music_mode: true
        max_results: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, 1, cfg.Audio.Channels)
	// Unset fields still get defaults.
	assert.Equal(t, 50, cfg.Audio.TickMs)

	require.Len(t, cfg.Discovery.Providers, 1)
	assert.Equal(t, "youtube", cfg.Discovery.Providers[0].Type)
	assert.Equal(t, true, cfg.Discovery.Providers[0].Settings["music_mode"])
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad channel count", content: "audio:\n  channels: 6\n"},
		{name: "provider missing type", content: "discovery:\n  providers:\n    - display_name: x\n"},
		{name: "provider missing display name", content: "discovery:\n  providers:\n    - type: youtube\n"},
		{name: "malformed yaml", content: "audio: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("YTAB_DATA_DIR", "/data/ytab")
	t.Setenv("YTAB_DOWNLOADS_DIR", "/music")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/data/ytab", "library.db"), cfg.Storage.Path)
	assert.Equal(t, filepath.Join("/data/ytab", "bin"), cfg.Tools.YTDLPDir)
	assert.Equal(t, "/music", cfg.Downloads.Dir)
}
