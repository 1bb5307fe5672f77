package metrics

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the metrics feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the metrics feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetStats returns the aggregated library statistics.
func (h *Handler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.GetLibraryStats(c.Context())
	if err != nil {
		slog.Error("Failed to compute library stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to compute library stats",
		})
	}
	return c.JSON(stats)
}
