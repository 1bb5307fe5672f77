package music

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/unidecode"
)

// TrackStatus is the lifecycle state of a catalog row.
type TrackStatus string

const (
	// StatusActive marks a track that was present in the latest enumeration.
	StatusActive TrackStatus = "ACTIVE"
	// StatusGhost marks a track a full enumeration no longer returned. The row
	// is kept so user data (playlists, history) survives an unplugged SD card
	// or a moved folder. Only an explicit cleanup removes it.
	StatusGhost TrackStatus = "GHOST"
	// StatusDeleted marks a track the user confirmed for removal.
	StatusDeleted TrackStatus = "DELETED"
)

// Track represents a single audio file known to the catalog.
//
// ContentURI is the stable identity: it survives rescans as long as the
// underlying file keeps its identifier. ID is the catalog's own row id.
type Track struct {
	ID         int64
	ContentURI string

	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	AlbumKey    string
	ArtistKey   string
	Genre       string
	Year        int
	TrackNumber int
	DiscNumber  int

	Duration   int64 // ms
	Size       int64 // bytes
	BitRate    int   // kbps
	SampleRate int   // Hz
	MimeType   string

	FolderPath  string
	FileName    string
	DisplayPath string

	ArtworkRef string

	Status TrackStatus

	DateAdded    time.Time
	DateModified time.Time
	LastScanned  time.Time
}

// DisplayTitle returns the title, falling back to the file name without
// extension when the tag was blank.
func (t *Track) DisplayTitle() string {
	if strings.TrimSpace(t.Title) != "" {
		return t.Title
	}
	return strings.TrimSuffix(t.FileName, filepath.Ext(t.FileName))
}

// DisplayArtist returns the artist or a placeholder.
func (t *Track) DisplayArtist() string {
	if strings.TrimSpace(t.Artist) != "" {
		return t.Artist
	}
	return "Unknown Artist"
}

// DisplayAlbum returns the album or a placeholder.
func (t *Track) DisplayAlbum() string {
	if strings.TrimSpace(t.Album) != "" {
		return t.Album
	}
	return "Unknown Album"
}

// IsPlayable reports whether the playback engine may load this track.
func (t *Track) IsPlayable() bool {
	return t.Status == StatusActive
}

// ChangedSince reports whether the freshly enumerated counterpart differs from
// the stored row. Size plus modification timestamp is the change-detection
// signature; metadata alone never triggers an update.
func (t *Track) ChangedSince(scanned *Track) bool {
	return t.Size != scanned.Size || !t.DateModified.Equal(scanned.DateModified)
}

// Validate validates the track fields before they hit the catalog.
func (t *Track) Validate() error {
	if strings.TrimSpace(t.ContentURI) == "" {
		return fmt.Errorf("track content URI cannot be empty")
	}
	if strings.TrimSpace(t.Title) == "" && strings.TrimSpace(t.FileName) == "" {
		return fmt.Errorf("track needs a title or a file name: uri -> %s", t.ContentURI)
	}
	if t.Duration < 0 {
		return fmt.Errorf("duration cannot be negative, got %d", t.Duration)
	}
	if t.Size < 0 {
		return fmt.Errorf("size cannot be negative, got %d", t.Size)
	}
	switch t.Status {
	case StatusActive, StatusGhost, StatusDeleted:
	default:
		return fmt.Errorf("unknown track status %q", t.Status)
	}
	return nil
}

// FoldKey returns an ASCII-folded, lowercased key used for sorting and search
// so library listings behave for non-Latin tags.
func FoldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
}
