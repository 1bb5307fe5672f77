package mediaindex

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/zjarhdgkrwk-lang/stack/src/features/scanning"
	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// supportedExtensions lists the audio formats the index admits.
var supportedExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
}

// FsIndex reads candidate tracks straight off the filesystem. The absolute
// file path doubles as the content URI, so a row keeps its identity across
// rescans as long as the file stays put.
type FsIndex struct{}

// NewFsIndex creates a new filesystem media index.
func NewFsIndex() *FsIndex {
	return &FsIndex{}
}

// CountTracks walks the folders once and counts supported files, for the
// scan progress denominator.
func (x *FsIndex) CountTracks(ctx context.Context, folders []string) (int, error) {
	count := 0
	err := x.walk(ctx, folders, func(path string, info fs.FileInfo) error {
		count++
		return nil
	})
	return count, err
}

// ReadTracks walks the folders and emits one row per supported file. Files
// whose tags cannot be parsed are emitted with file-name fallbacks; files
// that cannot be opened at all are skipped with a log line.
func (x *FsIndex) ReadTracks(ctx context.Context, folders []string, emit func(*music.Track) error) error {
	return x.walk(ctx, folders, func(path string, info fs.FileInfo) error {
		track, err := x.readFile(path, info)
		if err != nil {
			slog.Warn("Skipping unreadable file", "path", path, "error", err)
			return nil
		}
		return emit(track)
	})
}

func (x *FsIndex) walk(ctx context.Context, folders []string, visit func(string, fs.FileInfo) error) error {
	for _, folder := range folders {
		if _, err := os.ReadDir(folder); err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return scanning.ErrPermission
			}
			if errors.Is(err, fs.ErrNotExist) {
				slog.Warn("Source folder missing, skipping", "folder", folder)
				continue
			}
			return err
		}

		err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				if errors.Is(err, fs.ErrPermission) {
					slog.Warn("Unreadable entry inside source folder", "path", path)
					return nil
				}
				return err
			}
			if d.IsDir() {
				// Skip hidden directories like .thumbnails.
				if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if _, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			return visit(path, info)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// readFile builds a catalog row for one file. Tags are best effort: a file
// with a broken tag block still enters the index under its file name.
func (x *FsIndex) readFile(path string, info fs.FileInfo) (*music.Track, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	track := &music.Track{
		ContentURI:   abs,
		Size:         info.Size(),
		DateModified: info.ModTime(),
		FileName:     filepath.Base(abs),
		FolderPath:   filepath.Dir(abs),
		MimeType:     supportedExtensions[strings.ToLower(filepath.Ext(abs))],
	}

	tags, err := tag.ReadFrom(file)
	if err != nil {
		slog.Debug("No readable tags, using file name", "path", path, "error", err)
	} else {
		track.Title = tags.Title()
		track.Artist = tags.Artist()
		track.AlbumArtist = tags.AlbumArtist()
		track.Album = tags.Album()
		track.Genre = tags.Genre()
		track.Year = tags.Year()
		track.TrackNumber, _ = tags.Track()
		track.DiscNumber, _ = tags.Disc()
	}

	if _, err := file.Seek(0, 0); err == nil {
		probe, err := probeDuration(file, info.Size(), strings.ToLower(filepath.Ext(abs)))
		if err != nil {
			slog.Debug("Duration probe failed", "path", path, "error", err)
		} else {
			track.Duration = probe.durationMs
			track.BitRate = probe.bitRateKbps
			track.SampleRate = probe.sampleRate
		}
	}

	return track, nil
}
