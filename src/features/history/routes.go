package history

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the history feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	hist := app.Group("/history")
	hist.Get("/recent", handler.GetRecent)
	hist.Get("/tracks/:id", handler.GetTrackStats)
	hist.Get("/charts/weekly", handler.GetWeeklyChart)
}
