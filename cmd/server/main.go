// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/ilyassan/ytaudiobar/internal/api/httpapi"
	"github.com/ilyassan/ytaudiobar/internal/app/audio"
	"github.com/ilyassan/ytaudiobar/internal/app/discovery"
	"github.com/ilyassan/ytaudiobar/internal/app/downloads"
	"github.com/ilyassan/ytaudiobar/internal/app/queue"
	"github.com/ilyassan/ytaudiobar/internal/infra/config"
	"github.com/ilyassan/ytaudiobar/internal/infra/logger"
	"github.com/ilyassan/ytaudiobar/internal/infra/store"
	"github.com/ilyassan/ytaudiobar/internal/infra/ytdlp"
)

var (
	app        = kingpin.New("ytaudiobar", "YouTube audio player server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	installToolsCmd = app.Command("install-tools", "Install the yt-dlp binary and exit")
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := logger.Init(*verbose, *logfile); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	tools := ytdlp.NewManager(cfg.Tools.YTDLPDir)

	if command == installToolsCmd.FullCommand() {
		if err := tools.Install(context.Background()); err != nil {
			zlog.Fatal().Msgf("Failed to install yt-dlp: %v", err)
		}
		return
	}

	if err := run(cfg, tools); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, tools *ytdlp.Manager) error {
	ctx := context.Background()

	if !tools.Installed() {
		zlog.Info().Msg("yt-dlp not found, installing")
		if err := tools.Install(ctx); err != nil {
			return fmt.Errorf("failed to install yt-dlp: %w", err)
		}
	}
	if v, err := tools.Version(ctx); err == nil {
		zlog.Info().Msgf("Using yt-dlp %s at %s", v, tools.Path())
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open library database: %w", err)
	}
	defer db.Close()

	settings, err := db.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if settings.AutoUpdateYTDLP {
		go func() {
			updateCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := tools.Update(updateCtx); err != nil {
				zlog.Warn().Msgf("yt-dlp self-update failed: %v", err)
			}
		}()
	}

	pipeline := ytdlp.NewPCMPipeline(tools.Path(), cfg.Tools.FFmpegPath, cfg.Audio.SampleRate, cfg.Audio.Channels)
	player := audio.NewPlayer(audio.SpeakerDevice{}, pipeline, audio.Config{
		SampleRate:      cfg.Audio.SampleRate,
		Channels:        cfg.Audio.Channels,
		Tick:            time.Duration(cfg.Audio.TickMs) * time.Millisecond,
		PublishInterval: time.Duration(cfg.Audio.PublishIntervalMs) * time.Millisecond,
		WatchInterval:   time.Duration(cfg.Audio.WatchIntervalMs) * time.Millisecond,
		EndTolerance:    cfg.Audio.EndToleranceSec,
	})
	defer player.Close()

	downloadsDir := cfg.Downloads.Dir
	quality := cfg.Downloads.Quality
	if settings.DefaultDownloadPath != "" {
		downloadsDir = settings.DefaultDownloadPath
	}
	if settings.PreferredAudioQuality != "" {
		quality = settings.PreferredAudioQuality
	}
	downloadMgr, err := downloads.NewManager(tools.Path(), downloadsDir, quality)
	if err != nil {
		return fmt.Errorf("failed to create download manager: %w", err)
	}

	chain, err := discovery.NewChainFromConfig(cfg, ytdlp.NewClient(tools.Path()))
	if err != nil {
		return fmt.Errorf("failed to create discovery chain: %w", err)
	}

	queueMgr := queue.NewManager()

	// Advance the queue when a track runs out on its own.
	go autoAdvance(player, queueMgr)

	handler := httpapi.New(httpapi.Deps{
		Player:    player,
		Queue:     queueMgr,
		Downloads: downloadMgr,
		Discovery: chain,
		Store:     db,
		Tools:     tools,
	})

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// autoAdvance watches player state and plays the next queued track after
// the current one ends naturally.
func autoAdvance(player *audio.Player, queueMgr *queue.Manager) {
	states, cancel := player.Subscribe()
	defer cancel()

	var lastID string
	wasPlaying := false

	for st := range states {
		trackID := ""
		if st.CurrentTrack != nil {
			trackID = st.CurrentTrack.ID
		}

		ended := wasPlaying && !st.IsPlaying && !st.IsLoading &&
			trackID != "" && trackID == lastID &&
			st.Duration > 0 && st.CurrentPosition >= st.Duration

		if ended {
			if next, ok := queueMgr.Next(); ok {
				zlog.Info().Msgf("Track ended, advancing to next: id=%s title=%s", next.ID, next.Title)
				if err := player.Play(next); err != nil {
					zlog.Warn().Msgf("Failed to play next track: %v", err)
				}
			}
		}

		wasPlaying = st.IsPlaying
		lastID = trackID
	}
}
