package scanning

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the scanning feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	app.Post("/scan", handler.StartScan)
	app.Post("/scan/stop", handler.StopScan)
	app.Get("/scan/status", handler.GetStatus)
}
