package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// AddPlaylist inserts a playlist and its track references.
func (d *SqliteCatalog) AddPlaylist(ctx context.Context, playlist *music.Playlist) error {
	if err := playlist.Validate(); err != nil {
		slog.Error("AddPlaylist: validation failed", "error", err, "playlistID", playlist.ID)
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO playlists (id, name, description, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?)
	`, playlist.ID, playlist.Name, playlist.Description,
		playlist.CreatedDate.Format(time.RFC3339), playlist.ModifiedDate.Format(time.RFC3339))
	if err != nil {
		return err
	}

	for i, track := range playlist.Tracks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)
		`, playlist.ID, track.ID, i)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetPlaylist returns a playlist with its tracks in position order.
func (d *SqliteCatalog) GetPlaylist(ctx context.Context, id string) (*music.Playlist, error) {
	var p music.Playlist
	var created, modified string
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_date, modified_date FROM playlists WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Description, &created, &modified)
	if err == sql.ErrNoRows {
		return nil, music.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedDate, _ = time.Parse(time.RFC3339, created)
	p.ModifiedDate, _ = time.Parse(time.RFC3339, modified)

	p.Tracks, err = d.queryTracks(ctx, `
		SELECT `+qualifiedTrackColumns+`
		FROM tracks t JOIN playlist_tracks pt ON pt.track_id = t.id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position ASC
	`, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const qualifiedTrackColumns = `t.id, t.content_uri, t.title, t.artist, t.album_artist, t.album,
	t.album_key, t.artist_key, t.genre, t.year, t.track_number, t.disc_number, t.duration, t.size,
	t.bitrate, t.sample_rate, t.mime_type, t.folder_path, t.file_name, t.display_path,
	t.artwork_ref, t.status, t.date_added, t.date_modified, t.last_scanned`

// GetPlaylists returns all playlists with their tracks loaded.
func (d *SqliteCatalog) GetPlaylists(ctx context.Context) ([]*music.Playlist, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id FROM playlists ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	playlists := make([]*music.Playlist, 0, len(ids))
	for _, id := range ids {
		p, err := d.GetPlaylist(ctx, id)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, nil
}

// UpdatePlaylist overwrites the playlist row and rewrites its track list.
func (d *SqliteCatalog) UpdatePlaylist(ctx context.Context, playlist *music.Playlist) error {
	if err := playlist.Validate(); err != nil {
		slog.Error("UpdatePlaylist: validation failed", "error", err, "playlistID", playlist.ID)
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE playlists SET name = ?, description = ?, modified_date = ? WHERE id = ?
	`, playlist.Name, playlist.Description, playlist.ModifiedDate.Format(time.RFC3339), playlist.ID)
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

	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ?`, playlist.ID); err != nil {
		return err
	}
	for i, track := range playlist.Tracks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)
		`, playlist.ID, track.ID, i)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeletePlaylist removes the playlist and its track references.
func (d *SqliteCatalog) DeletePlaylist(ctx context.Context, id string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
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

	return tx.Commit()
}

// AddTrackToPlaylist appends a track at the end of the playlist.
func (d *SqliteCatalog) AddTrackToPlaylist(ctx context.Context, playlistID string, trackID int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position) + 1, 0) FROM playlist_tracks WHERE playlist_id = ?
	`, playlistID).Scan(&next)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)
	`, playlistID, trackID, next)
	if err != nil {
		return err
	}

	if err := touchPlaylist(ctx, tx, playlistID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveTrackFromPlaylist removes the entry at position and closes the gap.
func (d *SqliteCatalog) RemoveTrackFromPlaylist(ctx context.Context, playlistID string, position int) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM playlist_tracks WHERE playlist_id = ? AND position = ?
	`, playlistID, position)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("playlist %s has no track at position %d: %w", playlistID, position, music.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE playlist_tracks SET position = position - 1 WHERE playlist_id = ? AND position > ?
	`, playlistID, position)
	if err != nil {
		return err
	}

	if err := touchPlaylist(ctx, tx, playlistID); err != nil {
		return err
	}
	return tx.Commit()
}

// MoveTrackInPlaylist moves the entry at from to position to, shifting the
// entries in between.
func (d *SqliteCatalog) MoveTrackInPlaylist(ctx context.Context, playlistID string, from, to int) error {
	if from == to {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var trackID int64
	err = tx.QueryRowContext(ctx, `
		SELECT track_id FROM playlist_tracks WHERE playlist_id = ? AND position = ?
	`, playlistID, from).Scan(&trackID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("playlist %s has no track at position %d: %w", playlistID, from, music.ErrNotFound)
	}
	if err != nil {
		return err
	}

	// Park the moving row outside the position range, shift, then land it.
	if _, err := tx.ExecContext(ctx, `
		UPDATE playlist_tracks SET position = -1 WHERE playlist_id = ? AND position = ?
	`, playlistID, from); err != nil {
		return err
	}

	if from < to {
		_, err = tx.ExecContext(ctx, `
			UPDATE playlist_tracks SET position = position - 1
			WHERE playlist_id = ? AND position > ? AND position <= ?
		`, playlistID, from, to)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE playlist_tracks SET position = position + 1
			WHERE playlist_id = ? AND position >= ? AND position < ?
		`, playlistID, to, from)
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE playlist_tracks SET position = ? WHERE playlist_id = ? AND position = -1
	`, to, playlistID); err != nil {
		return err
	}

	if err := touchPlaylist(ctx, tx, playlistID); err != nil {
		return err
	}
	return tx.Commit()
}

func touchPlaylist(ctx context.Context, tx *sql.Tx, playlistID string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE playlists SET modified_date = ? WHERE id = ?
	`, time.Now().Format(time.RFC3339), playlistID)
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
