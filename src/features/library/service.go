package library

import (
	"context"
	"log/slog"
	"time"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// ScanQueue requests a debounced scan after source folder changes.
type ScanQueue interface {
	QueueDebouncedScan()
}

// Service provides the read side of the catalog plus ghost housekeeping and
// source folder management. All track writes besides ghost cleanup belong to
// the scan coordinator.
type Service struct {
	catalog music.Catalog
	scans   ScanQueue
}

// NewService creates a new library service. scans may be nil.
func NewService(catalog music.Catalog, scans ScanQueue) *Service {
	return &Service{catalog: catalog, scans: scans}
}

// GetTracks returns the playable tracks in the requested order.
func (s *Service) GetTracks(ctx context.Context, order music.TrackSortOrder) ([]*music.Track, error) {
	slog.Debug("Library service called", "method", "GetTracks", "order", order)
	return s.catalog.GetActiveTracks(ctx, order)
}

// GetTrack returns one track by id.
func (s *Service) GetTrack(ctx context.Context, id int64) (*music.Track, error) {
	slog.Debug("Library service called", "method", "GetTrack", "id", id)
	return s.catalog.GetTrack(ctx, id)
}

// SearchTracks returns playable tracks matching the query.
func (s *Service) SearchTracks(ctx context.Context, query string) ([]*music.Track, error) {
	slog.Debug("Library service called", "method", "SearchTracks", "query", query)
	return s.catalog.SearchTracks(ctx, query)
}

// GetAlbums returns the aggregated album listing.
func (s *Service) GetAlbums(ctx context.Context) ([]*music.AlbumInfo, error) {
	slog.Debug("Library service called", "method", "GetAlbums")
	return s.catalog.GetAlbums(ctx)
}

// GetAlbumTracks returns an album's tracks in disc and track order.
func (s *Service) GetAlbumTracks(ctx context.Context, albumKey string) ([]*music.Track, error) {
	slog.Debug("Library service called", "method", "GetAlbumTracks", "albumKey", albumKey)
	return s.catalog.GetTracksByAlbum(ctx, albumKey, "")
}

// GetArtists returns the aggregated artist listing.
func (s *Service) GetArtists(ctx context.Context) ([]*music.ArtistInfo, error) {
	slog.Debug("Library service called", "method", "GetArtists")
	return s.catalog.GetArtists(ctx)
}

// GetArtistTracks returns an artist's tracks grouped by album.
func (s *Service) GetArtistTracks(ctx context.Context, artistKey string) ([]*music.Track, error) {
	slog.Debug("Library service called", "method", "GetArtistTracks", "artistKey", artistKey)
	return s.catalog.GetTracksByArtist(ctx, artistKey, music.SortArtistAsc)
}

// GetFolders returns the folder browser listing.
func (s *Service) GetFolders(ctx context.Context) ([]*music.FolderInfo, error) {
	slog.Debug("Library service called", "method", "GetFolders")
	return s.catalog.GetFolders(ctx)
}

// GetFolderTracks returns the playable tracks under a folder.
func (s *Service) GetFolderTracks(ctx context.Context, folderPath string) ([]*music.Track, error) {
	slog.Debug("Library service called", "method", "GetFolderTracks", "folder", folderPath)
	return s.catalog.GetTracksByFolder(ctx, folderPath, music.SortTitleAsc)
}

// GetGhostTracks returns tracks whose files the last scan no longer found.
// They keep their playlist and history references until cleaned up.
func (s *Service) GetGhostTracks(ctx context.Context) ([]*music.Track, error) {
	slog.Debug("Library service called", "method", "GetGhostTracks")
	return s.catalog.GetGhostTracks(ctx)
}

// CleanupGhosts permanently removes all ghost tracks and returns how many
// were deleted.
func (s *Service) CleanupGhosts(ctx context.Context) (int, error) {
	slog.Debug("Library service called", "method", "CleanupGhosts")
	count, err := s.catalog.DeleteGhostTracks(ctx)
	if err != nil {
		slog.Error("Ghost cleanup failed", "error", err)
		return 0, err
	}
	return count, nil
}

// GetCounts returns the active and ghost track counts.
func (s *Service) GetCounts(ctx context.Context) (active, ghost int, err error) {
	slog.Debug("Library service called", "method", "GetCounts")
	if active, err = s.catalog.GetTrackCountByStatus(ctx, music.StatusActive); err != nil {
		return 0, 0, err
	}
	if ghost, err = s.catalog.GetTrackCountByStatus(ctx, music.StatusGhost); err != nil {
		return 0, 0, err
	}
	return active, ghost, nil
}

// AddSourceFolder registers a folder for scanning.
func (s *Service) AddSourceFolder(ctx context.Context, path, displayName string) (*music.SourceFolder, error) {
	slog.Debug("Library service called", "method", "AddSourceFolder", "path", path)
	folder := &music.SourceFolder{
		Path:        path,
		DisplayName: displayName,
		AddedAt:     time.Now().UnixMilli(),
	}
	id, err := s.catalog.AddSourceFolder(ctx, folder)
	if err != nil {
		return nil, err
	}
	folder.ID = id
	if s.scans != nil {
		s.scans.QueueDebouncedScan()
	}
	return folder, nil
}

// RemoveSourceFolder unregisters a folder. Its tracks become ghosts on the
// next scan, nothing is deleted here.
func (s *Service) RemoveSourceFolder(ctx context.Context, id int64) error {
	slog.Debug("Library service called", "method", "RemoveSourceFolder", "id", id)
	if err := s.catalog.RemoveSourceFolder(ctx, id); err != nil {
		return err
	}
	if s.scans != nil {
		s.scans.QueueDebouncedScan()
	}
	return nil
}

// GetSourceFolders lists the registered folders.
func (s *Service) GetSourceFolders(ctx context.Context) ([]*music.SourceFolder, error) {
	slog.Debug("Library service called", "method", "GetSourceFolders")
	return s.catalog.GetSourceFolders(ctx)
}
