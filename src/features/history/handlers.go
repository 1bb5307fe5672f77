package history

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the history feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the history feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetRecent returns the most recent plays.
func (h *Handler) GetRecent(c *fiber.Ctx) error {
	plays, err := h.service.GetRecentPlays(c.Context(), c.QueryInt("limit", 50))
	if err != nil {
		slog.Error("Failed to read play history", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"plays": plays})
}

// GetTrackStats returns the aggregate for one track.
func (h *Handler) GetTrackStats(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid track id"})
	}
	stats, err := h.service.GetTrackStats(c.Context(), int64(id))
	if err != nil {
		slog.Error("Failed to read track stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(stats)
}

// GetWeeklyChart returns a week's chart; the week query parameter takes an
// ISO week key like 2026-W35.
func (h *Handler) GetWeeklyChart(c *fiber.Ctx) error {
	chart, err := h.service.GetWeeklyChart(c.Context(), c.Query("week"))
	if err != nil {
		slog.Error("Failed to build weekly chart", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"chart": chart})
}
