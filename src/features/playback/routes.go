package playback

import (
	"github.com/gofiber/fiber/v2"
	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// RegisterRoutes registers the routes for the playback feature.
func RegisterRoutes(app *fiber.App, engine *Engine, catalog music.Catalog) {
	handler := NewHandler(engine, catalog)

	player := app.Group("/playback")
	player.Get("/status", handler.Status)
	player.Post("/play", handler.Play)
	player.Post("/toggle", handler.Toggle)
	player.Post("/pause", handler.Pause)
	player.Post("/resume", handler.Resume)
	player.Post("/next", handler.Next)
	player.Post("/previous", handler.Previous)
	player.Post("/seek", handler.Seek)
	player.Post("/shuffle", handler.Shuffle)
	player.Post("/repeat", handler.Repeat)
	player.Post("/volume", handler.Volume)
	player.Post("/stop", handler.Stop)

	player.Get("/queue", handler.GetQueue)
	player.Post("/queue/add", handler.AddToQueue)
	player.Post("/queue/next", handler.PlayNextInQueue)
	player.Post("/queue/jump", handler.Jump)
	player.Delete("/queue/:index", handler.RemoveFromQueue)
}
