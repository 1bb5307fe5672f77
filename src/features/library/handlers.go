package library

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// Handler is the handler for the library feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the library feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func respond(c *fiber.Ctx, data any, err error) error {
	if err != nil {
		if errors.Is(err, music.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}
		slog.Error("Library request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(data)
}

// GetTracks lists playable tracks. The sort query parameter picks the order.
func (h *Handler) GetTracks(c *fiber.Ctx) error {
	order := music.TrackSortOrder(c.Query("sort", string(music.SortDateAddedDesc)))
	tracks, err := h.service.GetTracks(c.Context(), order)
	return respond(c, fiber.Map{"tracks": tracks}, err)
}

// GetTrack returns one track.
func (h *Handler) GetTrack(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid track id"})
	}
	track, err := h.service.GetTrack(c.Context(), int64(id))
	return respond(c, track, err)
}

// SearchTracks returns tracks matching the q parameter.
func (h *Handler) SearchTracks(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing query"})
	}
	tracks, err := h.service.SearchTracks(c.Context(), query)
	return respond(c, fiber.Map{"tracks": tracks}, err)
}

// GetAlbums lists albums.
func (h *Handler) GetAlbums(c *fiber.Ctx) error {
	albums, err := h.service.GetAlbums(c.Context())
	return respond(c, fiber.Map{"albums": albums}, err)
}

// GetAlbumTracks lists one album's tracks.
func (h *Handler) GetAlbumTracks(c *fiber.Ctx) error {
	tracks, err := h.service.GetAlbumTracks(c.Context(), c.Params("key"))
	return respond(c, fiber.Map{"tracks": tracks}, err)
}

// GetArtists lists artists.
func (h *Handler) GetArtists(c *fiber.Ctx) error {
	artists, err := h.service.GetArtists(c.Context())
	return respond(c, fiber.Map{"artists": artists}, err)
}

// GetArtistTracks lists one artist's tracks.
func (h *Handler) GetArtistTracks(c *fiber.Ctx) error {
	tracks, err := h.service.GetArtistTracks(c.Context(), c.Params("key"))
	return respond(c, fiber.Map{"tracks": tracks}, err)
}

// GetFolders lists folders containing playable tracks.
func (h *Handler) GetFolders(c *fiber.Ctx) error {
	folders, err := h.service.GetFolders(c.Context())
	return respond(c, fiber.Map{"folders": folders}, err)
}

// GetFolderTracks lists one folder's tracks. The folder path travels in the
// query string because it contains slashes.
func (h *Handler) GetFolderTracks(c *fiber.Ctx) error {
	folder := c.Query("path")
	if folder == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing path"})
	}
	tracks, err := h.service.GetFolderTracks(c.Context(), folder)
	return respond(c, fiber.Map{"tracks": tracks}, err)
}

// GetGhosts lists soft-deleted tracks.
func (h *Handler) GetGhosts(c *fiber.Ctx) error {
	tracks, err := h.service.GetGhostTracks(c.Context())
	return respond(c, fiber.Map{"tracks": tracks}, err)
}

// CleanupGhosts permanently removes all soft-deleted tracks.
func (h *Handler) CleanupGhosts(c *fiber.Ctx) error {
	count, err := h.service.CleanupGhosts(c.Context())
	return respond(c, fiber.Map{"removed": count}, err)
}

// GetCounts returns active and ghost track counts.
func (h *Handler) GetCounts(c *fiber.Ctx) error {
	active, ghost, err := h.service.GetCounts(c.Context())
	return respond(c, fiber.Map{"active": active, "ghost": ghost}, err)
}

// GetSourceFolders lists the registered scan folders.
func (h *Handler) GetSourceFolders(c *fiber.Ctx) error {
	folders, err := h.service.GetSourceFolders(c.Context())
	return respond(c, fiber.Map{"folders": folders}, err)
}

// AddSourceFolder registers a scan folder.
func (h *Handler) AddSourceFolder(c *fiber.Ctx) error {
	var req struct {
		Path        string `json:"path"`
		DisplayName string `json:"display_name"`
	}
	if err := c.BodyParser(&req); err != nil || req.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing path"})
	}
	folder, err := h.service.AddSourceFolder(c.Context(), req.Path, req.DisplayName)
	if err != nil {
		return respond(c, nil, err)
	}
	return c.Status(fiber.StatusCreated).JSON(folder)
}

// RemoveSourceFolder unregisters a scan folder.
func (h *Handler) RemoveSourceFolder(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid folder id"})
	}
	if err := h.service.RemoveSourceFolder(c.Context(), int64(id)); err != nil {
		return respond(c, nil, err)
	}
	return c.JSON(fiber.Map{"status": "removed"})
}
