package metrics

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the metrics feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	app.Get("/stats", handler.GetStats)
}
