// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Audio     AudioConfig     `yaml:"audio"`
	Tools     ToolsConfig     `yaml:"tools"`
	Downloads DownloadsConfig `yaml:"downloads"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Storage   StorageConfig   `yaml:"storage"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8090"`
}

// AudioConfig represents the playback engine configuration.
type AudioConfig struct {
	SampleRate        int     `yaml:"sample_rate" default:"44100" validate:"gt=0"`
	Channels          int     `yaml:"channels" default:"2" validate:"oneof=1 2"`
	TickMs            int     `yaml:"tick_ms" default:"50" validate:"gte=1,lte=1000"`
	PublishIntervalMs int     `yaml:"publish_interval_ms" default:"500" validate:"gte=10"`
	WatchIntervalMs   int     `yaml:"watch_interval_ms" default:"100" validate:"gte=1"`
	EndToleranceSec   float64 `yaml:"end_tolerance_sec" default:"0.5" validate:"gte=0"`
}

// ToolsConfig represents external tool locations.
type ToolsConfig struct {
	YTDLPDir   string `yaml:"ytdlp_dir"`
	FFmpegPath string `yaml:"ffmpeg_path" default:"ffmpeg"`
}

// DownloadsConfig represents background download configuration.
type DownloadsConfig struct {
	Dir     string `yaml:"dir"`
	Quality string `yaml:"quality" default:"best"`
}

// DiscoveryConfig represents track discovery configuration. Providers may
// be empty (the factory falls back to a default YouTube provider), but
// every configured entry must be complete.
type DiscoveryConfig struct {
	Providers []ProviderConfig `yaml:"providers" validate:"omitempty,dive"`
}

// ProviderConfig represents a single discovery provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings"`
}

// StorageConfig represents the local library database location.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment variables take precedence over file values for
// filesystem paths.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
		// Run on defaults alone.
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	cfg.fillPaths()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("YTAB_DATA_DIR"); v != "" {
		c.Storage.Path = filepath.Join(v, "library.db")
		if c.Tools.YTDLPDir == "" {
			c.Tools.YTDLPDir = filepath.Join(v, "bin")
		}
	}
	if v := os.Getenv("YTAB_DOWNLOADS_DIR"); v != "" {
		c.Downloads.Dir = v
	}
}

// fillPaths resolves path fields that have per-user defaults the static
// default tags cannot express.
func (c *Config) fillPaths() {
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(dataDir(), "library.db")
	}
	if c.Downloads.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Downloads.Dir = filepath.Join(home, "Music", "YTAudioBar")
	}
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "ytaudiobar")
	}
	return filepath.Join(home, ".local", "share", "ytaudiobar")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
