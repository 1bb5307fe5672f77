package scanning

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the scanning feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the scanning feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// StartScan triggers a library scan. A scan already holding the gate queues
// the request behind it, so the answer is always accepted.
func (h *Handler) StartScan(c *fiber.Ctx) error {
	slog.Info("Scan requested")
	h.service.StartScan()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started"})
}

// StopScan cancels the running scan.
func (h *Handler) StopScan(c *fiber.Ctx) error {
	slog.Info("Scan cancellation requested")
	h.service.StopScan()
	return c.JSON(fiber.Map{"status": "stopping"})
}

// GetStatus returns the current scan state plus the last completion time.
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	state := h.service.State()

	resp := fiber.Map{"state": state}
	if last := h.service.LastCompletedAt(c.Context()); !last.IsZero() {
		resp["last_completed_at"] = last.Format(time.RFC3339)
	}
	return c.JSON(resp)
}
