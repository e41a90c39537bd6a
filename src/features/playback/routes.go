package playback

import "github.com/gofiber/fiber/v2"

// RegisterRoutes registers the playback routes
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	playback := app.Group("/playback")
	playback.Get("/tracks/:id/stream", handler.StreamTrack)
	playback.Post("/tracks/:id/play", handler.PlayTrack)
}
