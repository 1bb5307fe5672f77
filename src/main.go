package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zjarhdgkrwk-lang/stack/src/features/config"
	"github.com/zjarhdgkrwk-lang/stack/src/features/history"
	"github.com/zjarhdgkrwk-lang/stack/src/features/hosting"
	"github.com/zjarhdgkrwk-lang/stack/src/features/library"
	"github.com/zjarhdgkrwk-lang/stack/src/features/logging"
	"github.com/zjarhdgkrwk-lang/stack/src/features/metrics"
	"github.com/zjarhdgkrwk-lang/stack/src/features/playback"
	"github.com/zjarhdgkrwk-lang/stack/src/features/playlists"
	"github.com/zjarhdgkrwk-lang/stack/src/features/scanning"
	"github.com/zjarhdgkrwk-lang/stack/src/features/settings"
	"github.com/zjarhdgkrwk-lang/stack/src/infra/artwork"
	"github.com/zjarhdgkrwk-lang/stack/src/infra/database"
	"github.com/zjarhdgkrwk-lang/stack/src/infra/decoder"
	"github.com/zjarhdgkrwk-lang/stack/src/infra/mediaindex"
	"github.com/zjarhdgkrwk-lang/stack/src/infra/observer"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create the database catalog
	db, err := database.NewSqliteCatalog(cfgManager.Get().Database.Path)
	if err != nil {
		log.Fatalf("failed to open catalog: %v", err)
	}

	// Metrics registry and recorder
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	recorder := metrics.NewRecorder(registry)
	metricsService := metrics.NewService(db, recorder)

	// Scan pipeline: filesystem index -> enumerator -> coordinator
	index := mediaindex.NewFsIndex()
	enumerator := scanning.NewEnumerator(index, cfgManager.Get().Scan.MinDurationMs)
	scanService := scanning.NewService(db, db, enumerator, cfgManager, recorder)
	scanService.Start(ctx)

	// Playback: dual mpv decoders behind a single engine
	decoderCfg := cfgManager.Get().Decoder
	activeDec, err := decoder.NewMpvDecoder(decoderCfg.BinaryPath, decoderCfg.SocketPath)
	if err != nil {
		log.Fatalf("failed to start active decoder: %v", err)
	}
	warmDec, err := decoder.NewMpvDecoder(decoderCfg.BinaryPath, decoderCfg.SocketPath+".warm")
	if err != nil {
		log.Fatalf("failed to start warm decoder: %v", err)
	}
	focus := playback.NewOpenFocusLine()
	engine := playback.NewEngine(activeDec, warmDec, focus, db, db, cfgManager, recorder)
	engine.Start(ctx)

	// Feature services
	libraryService := library.NewService(db, scanService)
	playlistsService := playlists.NewService(db, db)
	historyService := history.NewService(db, db)
	settingsService := settings.NewService(db)
	thumbs := artwork.NewCache(cfgManager)

	// Filesystem observer feeding the debounced scan queue
	var obs *observer.Observer
	if cfgManager.Get().Scan.WatchFolders {
		obs, err = observer.NewObserver(scanService)
		if err != nil {
			slog.Error("Failed to create filesystem observer", "error", err)
		} else if err := obs.Start(ctx, cfgManager.Get().SourceFolders); err != nil {
			slog.Error("Failed to start filesystem observer", "error", err)
		}
	}

	// Prometheus scrape endpoint on its own port
	var metricsSrv interface{ Close() error }
	if cfgManager.Get().Metrics.Enabled {
		metricsSrv = hosting.StartMetricsListener(registry, cfgManager.Get().Metrics.Port)
	}

	// Create and start the HTTP server
	server := hosting.NewServer(hosting.Services{
		Config:    cfgManager,
		Catalog:   db,
		Library:   libraryService,
		Scanning:  scanService,
		Playback:  engine,
		Playlists: playlistsService,
		History:   historyService,
		Settings:  settingsService,
		Metrics:   metricsService,
		Thumbs:    thumbs,
	})
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
	slog.Info("Shutting down...")

	if obs != nil {
		obs.Stop()
	}
	cancel()

	if metricsSrv != nil {
		metricsSrv.Close()
	}
	if err := server.Shutdown(); err != nil {
		log.Fatalf("failed to shutdown server: %v", err)
	}
	if err := db.Close(); err != nil {
		slog.Error("Failed to close catalog", "error", err)
	}
	slog.Info("Server gracefully shut down.")
}
