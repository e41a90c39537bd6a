package syncing

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers sync-related routes
func RegisterRoutes(app *fiber.App, service *Service, watcher *Watcher) {
	handler := NewHandler(service)

	app.Post("/sync", handler.SyncAll)
	app.Post("/sync/local", handler.SyncLocal)
	app.Post("/sync/local/:id", handler.SyncLocalSource)
	app.Post("/sync/spotify/:id", handler.SyncSpotifySource)
	app.Get("/sync/status", handler.GetStatus)

	if watcher != nil {
		app.Get("/sync/watcher", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"running": watcher.IsRunning()})
		})
		app.Post("/sync/watcher/start", func(c *fiber.Ctx) error {
			if err := watcher.Start(); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(fiber.Map{"running": true})
		})
		app.Post("/sync/watcher/stop", func(c *fiber.Ctx) error {
			watcher.Stop()
			return c.JSON(fiber.Map{"running": false})
		})
	}
}
