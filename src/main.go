package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/arendse/melodium/src/features/config"
	"github.com/arendse/melodium/src/features/hosting"
	"github.com/arendse/melodium/src/features/jobs"
	"github.com/arendse/melodium/src/features/library"
	"github.com/arendse/melodium/src/features/logging"
	"github.com/arendse/melodium/src/features/metrics"
	"github.com/arendse/melodium/src/features/playback"
	"github.com/arendse/melodium/src/features/scanning"
	"github.com/arendse/melodium/src/features/sources"
	"github.com/arendse/melodium/src/features/syncing"
	"github.com/arendse/melodium/src/infra/database"
	"github.com/arendse/melodium/src/infra/spotify"
)

func main() {
	// Load configuration
	cfgManager, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	// Create the database catalog
	db, err := database.NewSqliteLibrary(cfgManager.Get().Database.Path)
	if err != nil {
		log.Fatalf("failed to create catalog: %v", err)
	}
	libraryService := library.NewService(db)

	// Create the job service
	jobService := jobs.NewService(&cfgManager.Get().Jobs)

	// Create the Spotify client and the tag scanner
	spotifyCfg := cfgManager.Get().Spotify
	spotifyClient := spotify.NewClient(spotify.Config{
		ClientID:     spotifyCfg.ClientID,
		ClientSecret: spotifyCfg.ClientSecret,
		RedirectURI:  spotifyCfg.RedirectURI,
	})
	scanner := scanning.NewScanner()

	// Create the metrics collectors
	metricsService := metrics.New(db)

	// Create the sync coordinator and register its task
	syncService := syncing.NewService(cfgManager, jobService)
	fetcher := syncing.NewSpotifyFetcher(spotifyClient)
	syncTask := syncing.NewSyncTask(cfgManager, db, scanner, fetcher, metricsService)
	jobService.RegisterHandler(syncing.JobType(), jobs.NewBaseTaskHandler(syncTask))

	// Create the source management and playback services
	sourcesService := sources.NewService(db, spotifyClient)
	playbackService := playback.NewService(db, db, spotifyClient)

	// Create the library watcher
	watcher := syncing.NewWatcher(syncService, db, cfgManager)
	if cfgManager.Get().Sync.AutoStartWatcher {
		if err := watcher.Start(); err != nil {
			slog.Error("Failed to start library watcher", "error", err)
		}
		defer watcher.Stop()
	}

	// Create and start the Telegram bot if enabled
	var telegramBot *hosting.TelegramBot
	if cfgManager.Get().Telegram.Enabled {
		var err error
		telegramBot, err = hosting.NewTelegramBot(cfgManager, libraryService, jobService, syncService)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
		} else {
			go telegramBot.Start()
			slog.Info("Telegram bot started")
		}
	}

	// Create and start the HTTP server
	server := hosting.NewServer(cfgManager, libraryService, sourcesService, syncService, watcher, playbackService, jobService, metricsService)
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()
	slog.Info("Server started. Press Ctrl+C to shut down.", "port", cfgManager.Get().Server.Port)

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("Shutting down server...")

	// Shutdown the Telegram bot
	if telegramBot != nil {
		telegramBot.Stop()
		slog.Info("Telegram bot stopped")
	}

	// Shutdown the server
	if err := server.Shutdown(); err != nil {
		log.Fatalf("failed to shutdown server: %v", err)
	}
	slog.Info("Server gracefully shut down.")
}
