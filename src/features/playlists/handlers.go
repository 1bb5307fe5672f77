package playlists

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// Handler is the handler for the playlists feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the playlists feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func respond(c *fiber.Ctx, data any, err error) error {
	if err != nil {
		if errors.Is(err, music.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}
		slog.Error("Playlist request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(data)
}

// Create creates a new playlist.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	playlist, err := h.service.CreatePlaylist(c.Context(), req.Name, req.Description)
	if err != nil {
		return respond(c, nil, err)
	}
	return c.Status(fiber.StatusCreated).JSON(playlist)
}

// List returns all playlists.
func (h *Handler) List(c *fiber.Ctx) error {
	playlists, err := h.service.GetAllPlaylists(c.Context())
	return respond(c, fiber.Map{"playlists": playlists}, err)
}

// Get returns one playlist with tracks.
func (h *Handler) Get(c *fiber.Ctx) error {
	playlist, err := h.service.GetPlaylist(c.Context(), c.Params("id"))
	return respond(c, playlist, err)
}

// Rename updates name and description.
func (h *Handler) Rename(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	playlist, err := h.service.RenamePlaylist(c.Context(), c.Params("id"), req.Name, req.Description)
	return respond(c, playlist, err)
}

// Delete removes a playlist.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeletePlaylist(c.Context(), c.Params("id")); err != nil {
		return respond(c, nil, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

// AddTrack appends a track.
func (h *Handler) AddTrack(c *fiber.Ctx) error {
	var req struct {
		TrackID int64 `json:"track_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.service.AddTrack(c.Context(), c.Params("id"), req.TrackID); err != nil {
		return respond(c, nil, err)
	}
	return c.JSON(fiber.Map{"status": "added"})
}

// RemoveTrack removes the entry at a position.
func (h *Handler) RemoveTrack(c *fiber.Ctx) error {
	position, err := c.ParamsInt("position")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid position"})
	}
	if err := h.service.RemoveTrack(c.Context(), c.Params("id"), position); err != nil {
		return respond(c, nil, err)
	}
	return c.JSON(fiber.Map{"status": "removed"})
}

// MoveTrack reorders an entry.
func (h *Handler) MoveTrack(c *fiber.Ctx) error {
	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.service.MoveTrack(c.Context(), c.Params("id"), req.From, req.To); err != nil {
		return respond(c, nil, err)
	}
	return c.JSON(fiber.Map{"status": "moved"})
}

// Export returns the playlist as M3U.
func (h *Handler) Export(c *fiber.Ctx) error {
	content, err := h.service.ExportM3U(c.Context(), c.Params("id"))
	if err != nil {
		return respond(c, nil, err)
	}
	c.Set("Content-Type", "audio/x-mpegurl")
	return c.SendString(content)
}

// Import creates a playlist from an M3U body.
func (h *Handler) Import(c *fiber.Ctx) error {
	name := c.Query("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing name"})
	}
	playlist, missing, err := h.service.ImportM3U(c.Context(), name, string(c.Body()))
	if err != nil {
		return respond(c, nil, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"playlist": playlist,
		"missing":  missing,
	})
}
