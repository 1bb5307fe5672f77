package metrics

import (
	"context"
	"log/slog"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// Service computes library statistics for the stats endpoint and keeps the
// Prometheus gauges in sync with the catalog.
type Service struct {
	catalog  music.Catalog
	recorder *Recorder
}

// NewService creates a new metrics service.
func NewService(catalog music.Catalog, recorder *Recorder) *Service {
	return &Service{
		catalog:  catalog,
		recorder: recorder,
	}
}

// LibraryStats holds the aggregate counts for display.
type LibraryStats struct {
	ActiveTracks  int `json:"active_tracks"`
	GhostTracks   int `json:"ghost_tracks"`
	Albums        int `json:"albums"`
	Artists       int `json:"artists"`
	Folders       int `json:"folders"`
	SourceFolders int `json:"source_folders"`
}

// GetLibraryStats retrieves the current library statistics.
func (s *Service) GetLibraryStats(ctx context.Context) (*LibraryStats, error) {
	slog.Debug("Metrics service called", "method", "GetLibraryStats")
	stats := &LibraryStats{}

	var err error
	if stats.ActiveTracks, err = s.catalog.GetTrackCountByStatus(ctx, music.StatusActive); err != nil {
		return nil, err
	}
	if stats.GhostTracks, err = s.catalog.GetTrackCountByStatus(ctx, music.StatusGhost); err != nil {
		return nil, err
	}

	if albums, err := s.catalog.GetAlbums(ctx); err != nil {
		slog.Warn("Failed to get album count", "error", err)
	} else {
		stats.Albums = len(albums)
	}
	if artists, err := s.catalog.GetArtists(ctx); err != nil {
		slog.Warn("Failed to get artist count", "error", err)
	} else {
		stats.Artists = len(artists)
	}
	if folders, err := s.catalog.GetFolders(ctx); err != nil {
		slog.Warn("Failed to get folder count", "error", err)
	} else {
		stats.Folders = len(folders)
	}
	if sources, err := s.catalog.GetSourceFolders(ctx); err != nil {
		slog.Warn("Failed to get source folder count", "error", err)
	} else {
		stats.SourceFolders = len(sources)
	}

	s.recorder.SetLibrarySize(string(music.StatusActive), stats.ActiveTracks)
	s.recorder.SetLibrarySize(string(music.StatusGhost), stats.GhostTracks)

	return stats, nil
}
