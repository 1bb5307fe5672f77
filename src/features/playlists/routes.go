package playlists

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the playlists feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	pl := app.Group("/playlists")
	pl.Get("/", handler.List)
	pl.Post("/", handler.Create)
	pl.Post("/import", handler.Import)
	pl.Get("/:id", handler.Get)
	pl.Put("/:id", handler.Rename)
	pl.Delete("/:id", handler.Delete)
	pl.Post("/:id/tracks", handler.AddTrack)
	pl.Delete("/:id/tracks/:position", handler.RemoveTrack)
	pl.Post("/:id/tracks/move", handler.MoveTrack)
	pl.Get("/:id/export", handler.Export)
}
