package config

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the config feature.
type Handler struct {
	configManager *Manager
}

// NewHandler creates a new handler for the config feature.
func NewHandler(configManager *Manager) *Handler {
	return &Handler{
		configManager: configManager,
	}
}

// GetConfig returns the current configuration as YAML.
func (h *Handler) GetConfig(c *fiber.Ctx) error {
	c.Set("Content-Type", "application/x-yaml")
	return c.SendString(h.configManager.GetYAML())
}

// UpdateSettings applies runtime-tunable settings from a JSON body. Server
// and database settings are preserved, they make no sense to change while
// running.
func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	slog.Info("Configuration update requested")

	var req struct {
		SourceFolders *[]string `json:"sourceFolders"`
		Scan          *Scan     `json:"scan"`
		Playback      *Playback `json:"playback"`
		Artwork       *Artwork  `json:"artwork"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	// Copy the current config and apply only the runtime-tunable fields.
	newConfig := *h.configManager.Get()
	if req.SourceFolders != nil {
		newConfig.SourceFolders = *req.SourceFolders
	}
	if req.Scan != nil {
		newConfig.Scan = *req.Scan
	}
	if req.Playback != nil {
		newConfig.Playback = *req.Playback
	}
	if req.Artwork != nil {
		newConfig.Artwork = *req.Artwork
	}
	h.configManager.Update(&newConfig)

	return c.JSON(fiber.Map{"status": "updated"})
}
