package music

import (
	"context"
	"errors"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

// TrackSortOrder selects the ordering of track listings.
type TrackSortOrder string

const (
	SortDateAddedDesc TrackSortOrder = "date_added_desc"
	SortTitleAsc      TrackSortOrder = "title_asc"
	SortArtistAsc     TrackSortOrder = "artist_asc"
	SortDurationDesc  TrackSortOrder = "duration_desc"
)

// Catalog is the durable mapping from track identity to metadata record.
// It's our primary repository interface for the library domain; the scan
// coordinator is the sole writer for track rows.
type Catalog interface {
	// Track methods
	AddTrack(ctx context.Context, track *Track) (int64, error)
	AddTracks(ctx context.Context, tracks []*Track) error
	GetTrack(ctx context.Context, id int64) (*Track, error)
	GetTrackByURI(ctx context.Context, contentURI string) (*Track, error)
	UpdateTrack(ctx context.Context, track *Track) error
	UpdateTrackStatus(ctx context.Context, id int64, status TrackStatus) error
	DeleteTracks(ctx context.Context, ids []int64) error
	DeleteGhostTracks(ctx context.Context) (int, error)

	// Listing and lookup
	GetAllTracksOnce(ctx context.Context) ([]*Track, error)
	GetActiveTracks(ctx context.Context, order TrackSortOrder) ([]*Track, error)
	GetGhostTracks(ctx context.Context) ([]*Track, error)
	GetTracksByFolder(ctx context.Context, folderPath string, order TrackSortOrder) ([]*Track, error)
	GetTracksByAlbum(ctx context.Context, albumKey string, order TrackSortOrder) ([]*Track, error)
	GetTracksByArtist(ctx context.Context, artistKey string, order TrackSortOrder) ([]*Track, error)
	SearchTracks(ctx context.Context, query string) ([]*Track, error)
	GetTrackCount(ctx context.Context) (int, error)
	GetTrackCountByStatus(ctx context.Context, status TrackStatus) (int, error)

	// Read-side aggregations consumed by the library feature
	GetAlbums(ctx context.Context) ([]*AlbumInfo, error)
	GetArtists(ctx context.Context) ([]*ArtistInfo, error)
	GetFolders(ctx context.Context) ([]*FolderInfo, error)

	// Source folders the enumerator is allowed to read
	AddSourceFolder(ctx context.Context, folder *SourceFolder) (int64, error)
	RemoveSourceFolder(ctx context.Context, id int64) error
	GetSourceFolders(ctx context.Context) ([]*SourceFolder, error)
}

// AlbumInfo is the aggregated album row for list display.
type AlbumInfo struct {
	AlbumKey      string
	Album         string
	Artist        string
	ArtworkRef    string
	TrackCount    int
	TotalDuration int64
}

// ArtistInfo is the aggregated artist row for list display.
type ArtistInfo struct {
	ArtistKey  string
	Artist     string
	AlbumCount int
	TrackCount int
}

// FolderInfo is the aggregated folder row for the folder browser.
type FolderInfo struct {
	FolderPath  string
	DisplayPath string
	TrackCount  int
}

// SourceFolder is a user-granted readable folder, stored as an opaque path
// identifier. The core never interprets it beyond handing it to the media
// index.
type SourceFolder struct {
	ID          int64
	Path        string
	DisplayName string
	AddedAt     int64 // unix ms
}
