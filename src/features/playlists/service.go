package playlists

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// Service is the domain service for the playlists feature.
type Service struct {
	playlists music.Playlists
	catalog   music.Catalog
}

// NewService creates a new playlists service.
func NewService(playlists music.Playlists, catalog music.Catalog) *Service {
	return &Service{playlists: playlists, catalog: catalog}
}

// CreatePlaylist creates a new playlist.
func (s *Service) CreatePlaylist(ctx context.Context, name, description string) (*music.Playlist, error) {
	slog.Debug("CreatePlaylist service called", "name", name)

	playlist := &music.Playlist{
		ID:           uuid.New().String(),
		Name:         name,
		Description:  description,
		Tracks:       []*music.Track{},
		CreatedDate:  time.Now(),
		ModifiedDate: time.Now(),
	}

	if err := playlist.Validate(); err != nil {
		slog.Error("CreatePlaylist validation failed", "error", err)
		return nil, err
	}

	if err := s.playlists.AddPlaylist(ctx, playlist); err != nil {
		slog.Error("CreatePlaylist failed", "name", name, "error", err)
		return nil, err
	}

	slog.Debug("CreatePlaylist completed", "id", playlist.ID, "name", name)
	return playlist, nil
}

// GetPlaylist gets a playlist by ID.
func (s *Service) GetPlaylist(ctx context.Context, id string) (*music.Playlist, error) {
	slog.Debug("GetPlaylist service called", "id", id)
	return s.playlists.GetPlaylist(ctx, id)
}

// GetAllPlaylists gets all playlists.
func (s *Service) GetAllPlaylists(ctx context.Context) ([]*music.Playlist, error) {
	slog.Debug("GetAllPlaylists service called")
	return s.playlists.GetPlaylists(ctx)
}

// RenamePlaylist updates a playlist's name and description.
func (s *Service) RenamePlaylist(ctx context.Context, id, name, description string) (*music.Playlist, error) {
	slog.Debug("RenamePlaylist service called", "id", id, "name", name)

	playlist, err := s.playlists.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	playlist.Name = name
	playlist.Description = description
	playlist.ModifiedDate = time.Now()

	if err := playlist.Validate(); err != nil {
		slog.Error("RenamePlaylist validation failed", "error", err)
		return nil, err
	}
	if err := s.playlists.UpdatePlaylist(ctx, playlist); err != nil {
		slog.Error("RenamePlaylist failed", "id", id, "error", err)
		return nil, err
	}
	return playlist, nil
}

// DeletePlaylist deletes a playlist. Tracks are untouched.
func (s *Service) DeletePlaylist(ctx context.Context, id string) error {
	slog.Debug("DeletePlaylist service called", "id", id)
	return s.playlists.DeletePlaylist(ctx, id)
}

// AddTrack appends a catalog track to a playlist.
func (s *Service) AddTrack(ctx context.Context, playlistID string, trackID int64) error {
	slog.Debug("AddTrack service called", "playlistID", playlistID, "trackID", trackID)

	// The track must exist; ghosts may be added, they play again after the
	// file returns.
	if _, err := s.catalog.GetTrack(ctx, trackID); err != nil {
		return err
	}
	return s.playlists.AddTrackToPlaylist(ctx, playlistID, trackID)
}

// RemoveTrack removes the playlist entry at the given position.
func (s *Service) RemoveTrack(ctx context.Context, playlistID string, position int) error {
	slog.Debug("RemoveTrack service called", "playlistID", playlistID, "position", position)
	return s.playlists.RemoveTrackFromPlaylist(ctx, playlistID, position)
}

// MoveTrack reorders a playlist entry.
func (s *Service) MoveTrack(ctx context.Context, playlistID string, from, to int) error {
	slog.Debug("MoveTrack service called", "playlistID", playlistID, "from", from, "to", to)
	return s.playlists.MoveTrackInPlaylist(ctx, playlistID, from, to)
}

// ExportM3U renders a playlist as extended M3U content.
func (s *Service) ExportM3U(ctx context.Context, playlistID string) (string, error) {
	slog.Debug("ExportM3U service called", "playlistID", playlistID)

	playlist, err := s.playlists.GetPlaylist(ctx, playlistID)
	if err != nil {
		return "", err
	}
	return GenerateM3U(playlist.Tracks), nil
}

// ImportM3U creates a playlist from M3U content, resolving entries against
// the catalog by content URI. Entries the catalog doesn't know are skipped
// and reported back.
func (s *Service) ImportM3U(ctx context.Context, name, content string) (*music.Playlist, []string, error) {
	slog.Debug("ImportM3U service called", "name", name)

	paths, err := ParseM3U(content)
	if err != nil {
		return nil, nil, err
	}

	var tracks []*music.Track
	var missing []string
	for _, path := range paths {
		track, err := s.catalog.GetTrackByURI(ctx, path)
		if err != nil {
			missing = append(missing, path)
			continue
		}
		tracks = append(tracks, track)
	}

	playlist := &music.Playlist{
		ID:           uuid.New().String(),
		Name:         name,
		Tracks:       tracks,
		CreatedDate:  time.Now(),
		ModifiedDate: time.Now(),
	}
	if err := playlist.Validate(); err != nil {
		return nil, nil, err
	}
	if err := s.playlists.AddPlaylist(ctx, playlist); err != nil {
		slog.Error("ImportM3U failed", "name", name, "error", err)
		return nil, nil, err
	}

	slog.Debug("ImportM3U completed", "playlistID", playlist.ID, "imported", len(tracks), "missing", len(missing))
	return playlist, missing, nil
}
