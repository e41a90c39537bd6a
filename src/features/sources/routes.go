package sources

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers source management routes
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	app.Get("/sources", handler.ListSources)
	app.Post("/sources/local", handler.AddLocalSource)
	app.Put("/sources/local/:id/enabled", handler.SetLocalSourceEnabled)
	app.Delete("/sources/local/:id", handler.DeleteLocalSource)
	app.Put("/sources/spotify/:id/enabled", handler.SetSpotifySourceEnabled)
	app.Delete("/sources/spotify/:id", handler.DeleteSpotifySource)
	app.Get("/sources/spotify/connect", handler.ConnectSpotify)
	app.Get("/sources/spotify/callback", handler.SpotifyCallback)
}
