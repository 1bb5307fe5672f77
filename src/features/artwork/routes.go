package artwork

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// RegisterRoutes registers the routes for the artwork feature.
func RegisterRoutes(app *fiber.App, catalog music.Catalog, thumbs Thumbnailer) {
	handler := NewHandler(catalog, thumbs)

	app.Get("/artwork/tracks/:id", handler.GetTrackArtwork)
}
