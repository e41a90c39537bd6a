package hosting

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/arendse/melodium/src/features/config"
	"github.com/arendse/melodium/src/features/jobs"
	"github.com/arendse/melodium/src/features/library"
	"github.com/arendse/melodium/src/features/metrics"
	"github.com/arendse/melodium/src/features/playback"
	"github.com/arendse/melodium/src/features/sources"
	"github.com/arendse/melodium/src/features/syncing"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Manager, libraryService *library.Service, sourcesService *sources.Service, syncService *syncing.Service, watcher *syncing.Watcher, playbackService *playback.Service, jobService *jobs.Service, m *metrics.Metrics) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
		AppName:               "Melodium",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	library.RegisterRoutes(app, libraryService)
	sources.RegisterRoutes(app, sourcesService)
	syncing.RegisterRoutes(app, syncService, watcher)
	playback.RegisterRoutes(app, playbackService)
	config.RegisterRoutes(app, cfg)
	jobs.RegisterRoutes(app, jobService)
	metrics.RegisterRoutes(app, m)

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
