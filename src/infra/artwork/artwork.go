package artwork

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/go-flac/flacpicture"
	goflac "github.com/go-flac/go-flac"
	"github.com/nfnt/resize"

	"github.com/zjarhdgkrwk-lang/stack/src/features/config"
	"github.com/zjarhdgkrwk-lang/stack/src/music"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Cache extracts embedded cover art from audio files and keeps resized JPEG
// thumbnails on disk. Thumbnails are keyed by content URI, so a rescan that
// keeps the URI keeps the thumbnail.
type Cache struct {
	config *config.Manager
}

// NewCache creates a new artwork cache.
func NewCache(config *config.Manager) *Cache {
	return &Cache{config: config}
}

// Key returns the cache key for a track's artwork.
func Key(contentURI string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(contentURI)))
}

// ThumbnailPath returns the on-disk path of the track's thumbnail, extracting
// and resizing it on first request. It returns music.ErrNotFound when the
// file embeds no artwork.
func (c *Cache) ThumbnailPath(track *music.Track) (string, error) {
	cfg := c.config.Get()
	cachePath := filepath.Join(cfg.Artwork.CachePath, Key(track.ContentURI)+".jpg")

	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	data, err := c.extract(track.ContentURI)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", music.ErrNotFound
	}

	thumb, err := c.makeThumbnail(data, cfg.Artwork.Size, cfg.Artwork.Quality)
	if err != nil {
		return "", fmt.Errorf("failed to build thumbnail: %w", err)
	}

	if err := os.MkdirAll(cfg.Artwork.CachePath, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(cachePath, thumb, 0o644); err != nil {
		return "", err
	}
	slog.Debug("Cached artwork thumbnail", "uri", track.ContentURI, "path", cachePath)
	return cachePath, nil
}

// Evict removes a track's cached thumbnail, if any.
func (c *Cache) Evict(contentURI string) {
	cfg := c.config.Get()
	path := filepath.Join(cfg.Artwork.CachePath, Key(contentURI)+".jpg")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to evict artwork thumbnail", "path", path, "error", err)
	}
}

// extract pulls the embedded picture bytes out of the audio file. FLAC files
// get a PICTURE-block read that prefers the front cover; everything else goes
// through the generic tag reader.
func (c *Cache) extract(path string) ([]byte, error) {
	if strings.ToLower(filepath.Ext(path)) == ".flac" {
		data, err := extractFlacPicture(path)
		if err == nil && len(data) > 0 {
			return data, nil
		}
		// Fall through: some FLAC files carry art in an ID3 prefix instead.
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	tags, err := tag.ReadFrom(file)
	if err != nil {
		return nil, err
	}
	pic := tags.Picture()
	if pic == nil {
		return nil, nil
	}
	return pic.Data, nil
}

func extractFlacPicture(path string) ([]byte, error) {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return nil, err
	}

	var fallback []byte
	for _, meta := range f.Meta {
		if meta.Type != goflac.Picture {
			continue
		}
		pic, err := flacpicture.ParseFromMetaDataBlock(*meta)
		if err != nil {
			continue
		}
		if pic.PictureType == flacpicture.PictureTypeFrontCover {
			return pic.ImageData, nil
		}
		if fallback == nil {
			fallback = pic.ImageData
		}
	}
	return fallback, nil
}

func (c *Cache) makeThumbnail(data []byte, size, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	if size > 0 {
		img = resize.Thumbnail(uint(size), uint(size), img, resize.Lanczos3)
	}
	if quality <= 0 {
		quality = 85
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
