package music

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Playlist represents a named, ordered collection of tracks.
type Playlist struct {
	ID           string
	Name         string
	Description  string
	Tracks       []*Track
	CreatedDate  time.Time
	ModifiedDate time.Time
}

// TotalDuration returns the total duration of all tracks in milliseconds.
func (p *Playlist) TotalDuration() int64 {
	var total int64
	for _, track := range p.Tracks {
		total += track.Duration
	}
	return total
}

// Validate validates the playlist fields.
func (p *Playlist) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("playlist name cannot be empty")
	}
	if len(p.Name) > 200 {
		return fmt.Errorf("playlist name cannot exceed 200 characters, got %d: name -> %s", len(p.Name), p.Name)
	}
	if len(p.Description) > 1000 {
		return fmt.Errorf("playlist description cannot exceed 1000 characters, got %d", len(p.Description))
	}
	return nil
}

// Playlists is the repository interface for playlist persistence.
type Playlists interface {
	AddPlaylist(ctx context.Context, playlist *Playlist) error
	GetPlaylist(ctx context.Context, id string) (*Playlist, error)
	GetPlaylists(ctx context.Context) ([]*Playlist, error)
	UpdatePlaylist(ctx context.Context, playlist *Playlist) error
	DeletePlaylist(ctx context.Context, id string) error
	AddTrackToPlaylist(ctx context.Context, playlistID string, trackID int64) error
	RemoveTrackFromPlaylist(ctx context.Context, playlistID string, position int) error
	MoveTrackInPlaylist(ctx context.Context, playlistID string, from, to int) error
}
