package playback

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// Handler is the handler for the playback feature.
type Handler struct {
	engine  *Engine
	catalog music.Catalog
}

// NewHandler creates a new handler for the playback feature.
func NewHandler(engine *Engine, catalog music.Catalog) *Handler {
	return &Handler{engine: engine, catalog: catalog}
}

func (h *Handler) respondErr(c *fiber.Ctx, err error) error {
	var playerErr *PlayerError
	switch {
	case errors.As(err, &playerErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"category": playerErr.Category,
			"error":    playerErr.Message,
		})
	case errors.Is(err, ErrFocusDenied):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrQueueEmpty), errors.Is(err, music.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		slog.Error("Playback request failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

// Play resolves the requested tracks and starts playback.
func (h *Handler) Play(c *fiber.Ctx) error {
	var req struct {
		TrackIDs   []int64 `json:"track_ids"`
		AlbumKey   string  `json:"album_key"`
		ArtistKey  string  `json:"artist_key"`
		FolderPath string  `json:"folder_path"`
		StartIndex int     `json:"start_index"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var tracks []*music.Track
	var err error
	switch {
	case len(req.TrackIDs) > 0:
		for _, id := range req.TrackIDs {
			track, err := h.catalog.GetTrack(c.Context(), id)
			if err != nil {
				return h.respondErr(c, err)
			}
			tracks = append(tracks, track)
		}
	case req.AlbumKey != "":
		tracks, err = h.catalog.GetTracksByAlbum(c.Context(), req.AlbumKey, "")
	case req.ArtistKey != "":
		tracks, err = h.catalog.GetTracksByArtist(c.Context(), req.ArtistKey, music.SortArtistAsc)
	case req.FolderPath != "":
		tracks, err = h.catalog.GetTracksByFolder(c.Context(), req.FolderPath, music.SortTitleAsc)
	default:
		tracks, err = h.catalog.GetActiveTracks(c.Context(), music.SortArtistAsc)
	}
	if err != nil {
		return h.respondErr(c, err)
	}
	if len(tracks) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no tracks to play"})
	}

	if err := h.engine.PlayTracks(tracks, req.StartIndex); err != nil {
		return h.respondErr(c, err)
	}
	return c.JSON(h.engine.State())
}

// Toggle flips play/pause.
func (h *Handler) Toggle(c *fiber.Ctx) error {
	if err := h.engine.Toggle(); err != nil {
		return h.respondErr(c, err)
	}
	return c.JSON(h.engine.State())
}

// Pause pauses playback.
func (h *Handler) Pause(c *fiber.Ctx) error {
	if err := h.engine.Pause(); err != nil {
		return h.respondErr(c, err)
	}
	return c.JSON(h.engine.State())
}

// Resume resumes playback.
func (h *Handler) Resume(c *fiber.Ctx) error {
	if err := h.engine.Resume(); err != nil {
		return h.respondErr(c, err)
	}
	return c.JSON(h.engine.State())
}

// Next skips to the next track.
func (h *Handler) Next(c *fiber.Ctx) error {
	if err := h.engine.SkipToNext(); err != nil {
		return h.respondErr(c, err)
	}
	return c.JSON(h.engine.State())
}

// Previous restarts the track or moves to the previous one.
func (h *Handler) Previous(c *fiber.Ctx) error {
	if err := h.engine.SkipToPrevious(); err != nil {
		return h.respondErr(c, err)
	}
	return c.JSON(h.engine.State())
}

// Seek moves the playhead.
func (h *Handler) Seek(c *fiber.Ctx) error {
	var req struct {
		PositionMs int64 `json:"position_ms"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.engine.SeekTo(req.PositionMs); err != nil {
		return h.respondErr(c, err)
	}
	return c.JSON(h.engine.State())
}

// Shuffle toggles shuffle mode.
func (h *Handler) Shuffle(c *fiber.Ctx) error {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.engine.SetShuffle(req.Enabled); err != nil {
		return h.respondErr(c, err)
	}
	return c.JSON(h.engine.State())
}

// Repeat sets the repeat mode.
func (h *Handler) Repeat(c *fiber.Ctx) error {
	var req struct {
		Mode RepeatMode `json:"mode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.engine.SetRepeat(req.Mode); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(h.engine.State())
}

// Volume sets the base playback volume.
func (h *Handler) Volume(c *fiber.Ctx) error {
	var req struct {
		Volume float64 `json:"volume"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.engine.SetVolume(req.Volume); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(h.engine.State())
}

// Status returns the current player state.
func (h *Handler) Status(c *fiber.Ctx) error {
	return c.JSON(h.engine.State())
}

// GetQueue returns the queue in play order.
func (h *Handler) GetQueue(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tracks": h.engine.QueueTracks()})
}

// AddToQueue appends a track to the queue.
func (h *Handler) AddToQueue(c *fiber.Ctx) error {
	track, err := h.trackFromBody(c)
	if err != nil {
		return h.respondErr(c, err)
	}
	if err := h.engine.AddToQueue(track); err != nil {
		return h.respondErr(c, err)
	}
	return c.JSON(h.engine.State())
}

// PlayNextInQueue inserts a track right after the current one.
func (h *Handler) PlayNextInQueue(c *fiber.Ctx) error {
	track, err := h.trackFromBody(c)
	if err != nil {
		return h.respondErr(c, err)
	}
	if err := h.engine.PlayNext(track); err != nil {
		return h.respondErr(c, err)
	}
	return c.JSON(h.engine.State())
}

// RemoveFromQueue removes a queue entry by play-order position.
func (h *Handler) RemoveFromQueue(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid index"})
	}
	if err := h.engine.RemoveFromQueue(index); err != nil {
		return h.respondErr(c, err)
	}
	return c.JSON(h.engine.State())
}

// Jump starts playback at a queue position.
func (h *Handler) Jump(c *fiber.Ctx) error {
	var req struct {
		Index int `json:"index"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.engine.JumpTo(req.Index); err != nil {
		return h.respondErr(c, err)
	}
	return c.JSON(h.engine.State())
}

// Stop halts playback and clears the queue.
func (h *Handler) Stop(c *fiber.Ctx) error {
	if err := h.engine.Stop(); err != nil {
		return h.respondErr(c, err)
	}
	return c.JSON(h.engine.State())
}

func (h *Handler) trackFromBody(c *fiber.Ctx) (*music.Track, error) {
	var req struct {
		TrackID int64 `json:"track_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return nil, music.ErrNotFound
	}
	return h.catalog.GetTrack(c.Context(), req.TrackID)
}
