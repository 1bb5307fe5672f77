package artwork

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// Thumbnailer resolves a track to an on-disk thumbnail.
type Thumbnailer interface {
	ThumbnailPath(track *music.Track) (string, error)
}

// Handler serves cover art thumbnails.
type Handler struct {
	catalog music.Catalog
	thumbs  Thumbnailer
}

// NewHandler creates a new artwork handler.
func NewHandler(catalog music.Catalog, thumbs Thumbnailer) *Handler {
	return &Handler{catalog: catalog, thumbs: thumbs}
}

// GetTrackArtwork serves the thumbnail for one track.
func (h *Handler) GetTrackArtwork(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid track id"})
	}

	track, err := h.catalog.GetTrack(c.Context(), id)
	if err != nil {
		if errors.Is(err, music.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "track not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	path, err := h.thumbs.ThumbnailPath(track)
	if err != nil {
		if errors.Is(err, music.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no embedded artwork"})
		}
		slog.Error("Failed to build artwork thumbnail", "trackID", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.SendFile(path)
}
