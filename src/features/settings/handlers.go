package settings

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the settings feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the settings feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetAll returns every known setting.
func (h *Handler) GetAll(c *fiber.Ctx) error {
	settings, err := h.service.GetAll(c.Context())
	if err != nil {
		slog.Error("Failed to read settings", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(settings)
}

// Get returns one setting.
func (h *Handler) Get(c *fiber.Ctx) error {
	value, err := h.service.Get(c.Context(), c.Params("key"))
	if err != nil {
		if errors.Is(err, ErrUnknownKey) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"key": c.Params("key"), "value": value})
}

// Set stores one setting.
func (h *Handler) Set(c *fiber.Ctx) error {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.service.Set(c.Context(), c.Params("key"), req.Value); err != nil {
		if errors.Is(err, ErrUnknownKey) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "saved"})
}
