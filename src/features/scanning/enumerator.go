package scanning

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// ErrPermission is returned when a source folder can no longer be read. The
// coordinator surfaces it as a scan error instead of silently dropping the
// folder's tracks.
var ErrPermission = errors.New("source folder not readable")

// Index is the media index the enumerator reads from. Implementations stream
// candidate rows through emit and skip rows they cannot parse.
type Index interface {
	// CountTracks returns how many candidate rows the folders hold, for
	// progress denominators.
	CountTracks(ctx context.Context, folders []string) (int, error)
	// ReadTracks streams candidate rows. emit returning an error aborts the
	// read.
	ReadTracks(ctx context.Context, folders []string, emit func(*music.Track) error) error
}

// progressInterval is how many rows pass between progress callbacks.
const progressInterval = 50

// Enumerator turns the raw media index into catalog-shaped tracks: it drops
// rows under the duration floor, fills display fields and computes fold keys.
type Enumerator struct {
	index         Index
	minDurationMs int64
}

// NewEnumerator creates a new Enumerator.
func NewEnumerator(index Index, minDurationMs int64) *Enumerator {
	return &Enumerator{index: index, minDurationMs: minDurationMs}
}

// Enumerate reads every candidate row from the given folders. onProgress is
// called with (done, total) every few rows and once at the end; total is 0
// when the index cannot count up front.
func (e *Enumerator) Enumerate(ctx context.Context, folders []string, onProgress func(done, total int)) ([]*music.Track, error) {
	total, err := e.index.CountTracks(ctx, folders)
	if err != nil {
		return nil, err
	}

	var tracks []*music.Track
	seen := 0
	skipped := 0

	err = e.index.ReadTracks(ctx, folders, func(t *music.Track) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen++
		if seen%progressInterval == 0 && onProgress != nil {
			onProgress(seen, total)
		}

		if t.Duration < e.minDurationMs {
			skipped++
			return nil
		}

		e.normalize(t)
		tracks = append(tracks, t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if onProgress != nil {
		onProgress(seen, total)
	}
	if skipped > 0 {
		slog.Debug("Enumeration dropped short rows", "skipped", skipped, "floor_ms", e.minDurationMs)
	}
	return tracks, nil
}

// normalize fills the derived fields a raw index row leaves blank.
func (e *Enumerator) normalize(t *music.Track) {
	if t.FileName == "" {
		t.FileName = filepath.Base(t.ContentURI)
	}
	if t.FolderPath == "" {
		t.FolderPath = filepath.Dir(t.ContentURI)
	}
	if t.DisplayPath == "" {
		t.DisplayPath = DisplayPath(t.FolderPath)
	}
	t.AlbumKey = music.FoldKey(albumKeySource(t))
	t.ArtistKey = music.FoldKey(t.DisplayArtist())
	if t.Status == "" {
		t.Status = music.StatusActive
	}
}

func albumKeySource(t *music.Track) string {
	artist := t.AlbumArtist
	if artist == "" {
		artist = t.Artist
	}
	return artist + "\x00" + t.DisplayAlbum()
}

// DisplayPath renders a folder path as the "Storage / Music / Albums" form
// used by folder listings.
func DisplayPath(folderPath string) string {
	cleaned := strings.Trim(filepath.ToSlash(folderPath), "/")
	if cleaned == "" {
		return "Storage"
	}
	parts := strings.Split(cleaned, "/")
	return "Storage / " + strings.Join(parts, " / ")
}
