package hosting

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zjarhdgkrwk-lang/stack/src/features/artwork"
	"github.com/zjarhdgkrwk-lang/stack/src/features/config"
	"github.com/zjarhdgkrwk-lang/stack/src/features/history"
	"github.com/zjarhdgkrwk-lang/stack/src/features/library"
	"github.com/zjarhdgkrwk-lang/stack/src/features/metrics"
	"github.com/zjarhdgkrwk-lang/stack/src/features/playback"
	"github.com/zjarhdgkrwk-lang/stack/src/features/playlists"
	"github.com/zjarhdgkrwk-lang/stack/src/features/scanning"
	"github.com/zjarhdgkrwk-lang/stack/src/features/settings"
	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// Services bundles everything the HTTP surface exposes.
type Services struct {
	Config    *config.Manager
	Catalog   music.Catalog
	Library   *library.Service
	Scanning  *scanning.Service
	Playback  *playback.Engine
	Playlists *playlists.Service
	History   *history.Service
	Settings  *settings.Service
	Metrics   *metrics.Service
	Thumbs    artwork.Thumbnailer
}

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server.
func NewServer(svcs Services) *Server {
	cfg := svcs.Config

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
		AppName:               "Stackd",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	config.RegisterRoutes(app, cfg)
	library.RegisterRoutes(app, svcs.Library)
	scanning.RegisterRoutes(app, svcs.Scanning)
	playback.RegisterRoutes(app, svcs.Playback, svcs.Catalog)
	playlists.RegisterRoutes(app, svcs.Playlists)
	history.RegisterRoutes(app, svcs.History)
	settings.RegisterRoutes(app, svcs.Settings)
	metrics.RegisterRoutes(app, svcs.Metrics)
	artwork.RegisterRoutes(app, svcs.Catalog, svcs.Thumbs)

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// StartMetricsListener serves the Prometheus scrape endpoint on its own port.
func StartMetricsListener(registry *prometheus.Registry, port uint32) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		slog.Info("Metrics listener started", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics listener stopped", "error", err)
		}
	}()
	return srv
}
