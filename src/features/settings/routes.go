package settings

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the settings feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	st := app.Group("/preferences")
	st.Get("/", handler.GetAll)
	st.Get("/:key", handler.Get)
	st.Put("/:key", handler.Set)
}
