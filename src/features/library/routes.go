package library

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the library feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	lib := app.Group("/library")
	lib.Get("/tracks", handler.GetTracks)
	lib.Get("/tracks/search", handler.SearchTracks)
	lib.Get("/tracks/:id", handler.GetTrack)
	lib.Get("/albums", handler.GetAlbums)
	lib.Get("/albums/:key/tracks", handler.GetAlbumTracks)
	lib.Get("/artists", handler.GetArtists)
	lib.Get("/artists/:key/tracks", handler.GetArtistTracks)
	lib.Get("/folders", handler.GetFolders)
	lib.Get("/folders/tracks", handler.GetFolderTracks)
	lib.Get("/ghosts", handler.GetGhosts)
	lib.Post("/ghosts/cleanup", handler.CleanupGhosts)
	lib.Get("/counts", handler.GetCounts)
	lib.Get("/sources", handler.GetSourceFolders)
	lib.Post("/sources", handler.AddSourceFolder)
	lib.Delete("/sources/:id", handler.RemoveSourceFolder)
}
