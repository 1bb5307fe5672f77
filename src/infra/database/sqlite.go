package database

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteCatalog is a SQLite implementation of the music repository
// interfaces: Catalog, Playlists, History and Preferences.
type SqliteCatalog struct {
	db *sql.DB
}

// NewSqliteCatalog opens (or creates) the database at path.
func NewSqliteCatalog(path string) (*SqliteCatalog, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &SqliteCatalog{db: db}, nil
}

// Close closes the underlying database handle.
func (d *SqliteCatalog) Close() error {
	return d.db.Close()
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content_uri TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			artist TEXT NOT NULL DEFAULT '',
			album_artist TEXT NOT NULL DEFAULT '',
			album TEXT NOT NULL DEFAULT '',
			album_key TEXT NOT NULL DEFAULT '',
			artist_key TEXT NOT NULL DEFAULT '',
			genre TEXT NOT NULL DEFAULT '',
			year INTEGER NOT NULL DEFAULT 0,
			track_number INTEGER NOT NULL DEFAULT 0,
			disc_number INTEGER NOT NULL DEFAULT 0,
			duration INTEGER NOT NULL DEFAULT 0,
			size INTEGER NOT NULL DEFAULT 0,
			bitrate INTEGER NOT NULL DEFAULT 0,
			sample_rate INTEGER NOT NULL DEFAULT 0,
			mime_type TEXT NOT NULL DEFAULT '',
			folder_path TEXT NOT NULL DEFAULT '',
			file_name TEXT NOT NULL DEFAULT '',
			display_path TEXT NOT NULL DEFAULT '',
			artwork_ref TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			date_added TEXT NOT NULL,
			date_modified TEXT NOT NULL,
			last_scanned TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS playlists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_date TEXT NOT NULL,
			modified_date TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS playlist_tracks (
			playlist_id TEXT NOT NULL,
			track_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			FOREIGN KEY (playlist_id) REFERENCES playlists(id),
			FOREIGN KEY (track_id) REFERENCES tracks(id)
		);

		CREATE TABLE IF NOT EXISTS play_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			track_id INTEGER NOT NULL,
			played_at TEXT NOT NULL,
			played_duration INTEGER NOT NULL DEFAULT 0,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			week_key TEXT NOT NULL,
			FOREIGN KEY (track_id) REFERENCES tracks(id)
		);

		CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS source_folders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			added_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tracks_status ON tracks(status);
		CREATE INDEX IF NOT EXISTS idx_tracks_album_key ON tracks(album_key);
		CREATE INDEX IF NOT EXISTS idx_tracks_artist_key ON tracks(artist_key);
		CREATE INDEX IF NOT EXISTS idx_tracks_folder ON tracks(folder_path);
		CREATE INDEX IF NOT EXISTS idx_playlist_tracks_playlist ON playlist_tracks(playlist_id, position);
		CREATE INDEX IF NOT EXISTS idx_play_history_track ON play_history(track_id);
		CREATE INDEX IF NOT EXISTS idx_play_history_week ON play_history(week_key);
	`)
	return err
}

const trackColumns = `id, content_uri, title, artist, album_artist, album, album_key, artist_key,
	genre, year, track_number, disc_number, duration, size, bitrate, sample_rate, mime_type,
	folder_path, file_name, display_path, artwork_ref, status, date_added, date_modified, last_scanned`

func scanTrack(row interface{ Scan(...any) error }) (*music.Track, error) {
	var t music.Track
	var status string
	var dateAdded, dateModified, lastScanned string
	err := row.Scan(&t.ID, &t.ContentURI, &t.Title, &t.Artist, &t.AlbumArtist, &t.Album,
		&t.AlbumKey, &t.ArtistKey, &t.Genre, &t.Year, &t.TrackNumber, &t.DiscNumber,
		&t.Duration, &t.Size, &t.BitRate, &t.SampleRate, &t.MimeType,
		&t.FolderPath, &t.FileName, &t.DisplayPath, &t.ArtworkRef, &status,
		&dateAdded, &dateModified, &lastScanned)
	if err != nil {
		return nil, err
	}
	t.Status = music.TrackStatus(status)
	t.DateAdded, _ = time.Parse(time.RFC3339, dateAdded)
	t.DateModified, _ = time.Parse(time.RFC3339, dateModified)
	t.LastScanned, _ = time.Parse(time.RFC3339, lastScanned)
	return &t, nil
}

// AddTrack inserts a track and returns the new row id.
func (d *SqliteCatalog) AddTrack(ctx context.Context, track *music.Track) (int64, error) {
	if err := track.Validate(); err != nil {
		slog.Error("AddTrack: validation failed", "error", err, "uri", track.ContentURI)
		return 0, err
	}

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO tracks (content_uri, title, artist, album_artist, album, album_key, artist_key,
			genre, year, track_number, disc_number, duration, size, bitrate, sample_rate, mime_type,
			folder_path, file_name, display_path, artwork_ref, status, date_added, date_modified, last_scanned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, track.ContentURI, track.Title, track.Artist, track.AlbumArtist, track.Album,
		track.AlbumKey, track.ArtistKey, track.Genre, track.Year, track.TrackNumber, track.DiscNumber,
		track.Duration, track.Size, track.BitRate, track.SampleRate, track.MimeType,
		track.FolderPath, track.FileName, track.DisplayPath, track.ArtworkRef, string(track.Status),
		track.DateAdded.Format(time.RFC3339), track.DateModified.Format(time.RFC3339),
		track.LastScanned.Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AddTracks inserts a batch of tracks inside one transaction.
func (d *SqliteCatalog) AddTracks(ctx context.Context, tracks []*music.Track) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (content_uri, title, artist, album_artist, album, album_key, artist_key,
			genre, year, track_number, disc_number, duration, size, bitrate, sample_rate, mime_type,
			folder_path, file_name, display_path, artwork_ref, status, date_added, date_modified, last_scanned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, track := range tracks {
		if err := track.Validate(); err != nil {
			slog.Error("AddTracks: validation failed", "error", err, "uri", track.ContentURI)
			return err
		}
		_, err = stmt.ExecContext(ctx, track.ContentURI, track.Title, track.Artist, track.AlbumArtist,
			track.Album, track.AlbumKey, track.ArtistKey, track.Genre, track.Year, track.TrackNumber,
			track.DiscNumber, track.Duration, track.Size, track.BitRate, track.SampleRate, track.MimeType,
			track.FolderPath, track.FileName, track.DisplayPath, track.ArtworkRef, string(track.Status),
			track.DateAdded.Format(time.RFC3339), track.DateModified.Format(time.RFC3339),
			track.LastScanned.Format(time.RFC3339))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetTrack returns a track by row id.
func (d *SqliteCatalog) GetTrack(ctx context.Context, id int64) (*music.Track, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	track, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, music.ErrNotFound
	}
	return track, err
}

// GetTrackByURI returns a track by its content URI, the stable identity used
// by the scan diff.
func (d *SqliteCatalog) GetTrackByURI(ctx context.Context, contentURI string) (*music.Track, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE content_uri = ?`, contentURI)
	track, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, music.ErrNotFound
	}
	return track, err
}

// UpdateTrack overwrites a track row. The caller is responsible for
// preserving date_added across rescans.
func (d *SqliteCatalog) UpdateTrack(ctx context.Context, track *music.Track) error {
	if err := track.Validate(); err != nil {
		slog.Error("UpdateTrack: validation failed", "error", err, "trackID", track.ID)
		return err
	}

	res, err := d.db.ExecContext(ctx, `
		UPDATE tracks SET content_uri = ?, title = ?, artist = ?, album_artist = ?, album = ?,
			album_key = ?, artist_key = ?, genre = ?, year = ?, track_number = ?, disc_number = ?,
			duration = ?, size = ?, bitrate = ?, sample_rate = ?, mime_type = ?,
			folder_path = ?, file_name = ?, display_path = ?, artwork_ref = ?, status = ?,
			date_added = ?, date_modified = ?, last_scanned = ?
		WHERE id = ?
	`, track.ContentURI, track.Title, track.Artist, track.AlbumArtist, track.Album,
		track.AlbumKey, track.ArtistKey, track.Genre, track.Year, track.TrackNumber, track.DiscNumber,
		track.Duration, track.Size, track.BitRate, track.SampleRate, track.MimeType,
		track.FolderPath, track.FileName, track.DisplayPath, track.ArtworkRef, string(track.Status),
		track.DateAdded.Format(time.RFC3339), track.DateModified.Format(time.RFC3339),
		track.LastScanned.Format(time.RFC3339), track.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return music.ErrNotFound
	}
	return nil
}

// UpdateTrackStatus flips the lifecycle state of a single row.
func (d *SqliteCatalog) UpdateTrackStatus(ctx context.Context, id int64, status music.TrackStatus) error {
	res, err := d.db.ExecContext(ctx, `UPDATE tracks SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return music.ErrNotFound
	}
	return nil
}

// DeleteTracks hard-deletes rows and their playlist references.
func (d *SqliteCatalog) DeleteTracks(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE track_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteGhostTracks removes every GHOST row and returns how many went away.
func (d *SqliteCatalog) DeleteGhostTracks(ctx context.Context) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM playlist_tracks WHERE track_id IN (SELECT id FROM tracks WHERE status = ?)
	`, string(music.StatusGhost))
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE status = ?`, string(music.StatusGhost))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	slog.Info("Ghost tracks removed", "count", n)
	return int(n), nil
}
