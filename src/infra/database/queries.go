package database

import (
	"context"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

func orderClause(order music.TrackSortOrder) string {
	switch order {
	case music.SortTitleAsc:
		return "ORDER BY title COLLATE NOCASE ASC"
	case music.SortArtistAsc:
		return "ORDER BY artist_key ASC, album_key ASC, disc_number ASC, track_number ASC"
	case music.SortDurationDesc:
		return "ORDER BY duration DESC"
	default:
		return "ORDER BY date_added DESC"
	}
}

func (d *SqliteCatalog) queryTracks(ctx context.Context, query string, args ...any) ([]*music.Track, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []*music.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// GetAllTracksOnce returns every row regardless of status. The scan diff
// reads this once per scan to build its lookup map.
func (d *SqliteCatalog) GetAllTracksOnce(ctx context.Context) ([]*music.Track, error) {
	return d.queryTracks(ctx, `SELECT `+trackColumns+` FROM tracks`)
}

// GetActiveTracks returns playable tracks in the requested order.
func (d *SqliteCatalog) GetActiveTracks(ctx context.Context, order music.TrackSortOrder) ([]*music.Track, error) {
	return d.queryTracks(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE status = ? `+orderClause(order),
		string(music.StatusActive))
}

// GetGhostTracks returns soft-deleted tracks, most recently seen first.
func (d *SqliteCatalog) GetGhostTracks(ctx context.Context) ([]*music.Track, error) {
	return d.queryTracks(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE status = ? ORDER BY last_scanned DESC`,
		string(music.StatusGhost))
}

// GetTracksByFolder returns active tracks under one folder.
func (d *SqliteCatalog) GetTracksByFolder(ctx context.Context, folderPath string, order music.TrackSortOrder) ([]*music.Track, error) {
	return d.queryTracks(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE status = ? AND folder_path = ? `+orderClause(order),
		string(music.StatusActive), folderPath)
}

// GetTracksByAlbum returns an album's active tracks in disc/track order.
func (d *SqliteCatalog) GetTracksByAlbum(ctx context.Context, albumKey string, order music.TrackSortOrder) ([]*music.Track, error) {
	clause := "ORDER BY disc_number ASC, track_number ASC"
	if order != "" {
		clause = orderClause(order)
	}
	return d.queryTracks(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE status = ? AND album_key = ? `+clause,
		string(music.StatusActive), albumKey)
}

// GetTracksByArtist returns an artist's active tracks.
func (d *SqliteCatalog) GetTracksByArtist(ctx context.Context, artistKey string, order music.TrackSortOrder) ([]*music.Track, error) {
	return d.queryTracks(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE status = ? AND artist_key = ? `+orderClause(order),
		string(music.StatusActive), artistKey)
}

// SearchTracks matches the folded title/artist/album keys against the folded
// query so accented tags still match ASCII input.
func (d *SqliteCatalog) SearchTracks(ctx context.Context, query string) ([]*music.Track, error) {
	pattern := "%" + music.FoldKey(query) + "%"
	return d.queryTracks(ctx, `
		SELECT `+trackColumns+` FROM tracks
		WHERE status = ? AND (
			lower(title) LIKE ? OR artist_key LIKE ? OR album_key LIKE ? OR lower(file_name) LIKE ?
		)
		ORDER BY title COLLATE NOCASE ASC
	`, string(music.StatusActive), pattern, pattern, pattern, pattern)
}

// GetTrackCount returns the number of active tracks.
func (d *SqliteCatalog) GetTrackCount(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks WHERE status = ?`,
		string(music.StatusActive)).Scan(&count)
	return count, err
}

// GetTrackCountByStatus returns the number of tracks in one lifecycle state.
func (d *SqliteCatalog) GetTrackCountByStatus(ctx context.Context, status music.TrackStatus) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks WHERE status = ?`,
		string(status)).Scan(&count)
	return count, err
}

// GetAlbums returns the aggregated album listing over active tracks.
func (d *SqliteCatalog) GetAlbums(ctx context.Context) ([]*music.AlbumInfo, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT album_key, MAX(album), MAX(CASE WHEN album_artist != '' THEN album_artist ELSE artist END),
			MAX(artwork_ref), COUNT(*), SUM(duration)
		FROM tracks
		WHERE status = ? AND album_key != ''
		GROUP BY album_key
		ORDER BY album_key ASC
	`, string(music.StatusActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []*music.AlbumInfo
	for rows.Next() {
		var a music.AlbumInfo
		if err := rows.Scan(&a.AlbumKey, &a.Album, &a.Artist, &a.ArtworkRef, &a.TrackCount, &a.TotalDuration); err != nil {
			return nil, err
		}
		albums = append(albums, &a)
	}
	return albums, rows.Err()
}

// GetArtists returns the aggregated artist listing over active tracks.
func (d *SqliteCatalog) GetArtists(ctx context.Context) ([]*music.ArtistInfo, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT artist_key, MAX(artist), COUNT(DISTINCT album_key), COUNT(*)
		FROM tracks
		WHERE status = ? AND artist_key != ''
		GROUP BY artist_key
		ORDER BY artist_key ASC
	`, string(music.StatusActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []*music.ArtistInfo
	for rows.Next() {
		var a music.ArtistInfo
		if err := rows.Scan(&a.ArtistKey, &a.Artist, &a.AlbumCount, &a.TrackCount); err != nil {
			return nil, err
		}
		artists = append(artists, &a)
	}
	return artists, rows.Err()
}

// GetFolders returns the folder browser listing over active tracks.
func (d *SqliteCatalog) GetFolders(ctx context.Context) ([]*music.FolderInfo, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT folder_path, MAX(display_path), COUNT(*)
		FROM tracks
		WHERE status = ?
		GROUP BY folder_path
		ORDER BY folder_path ASC
	`, string(music.StatusActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*music.FolderInfo
	for rows.Next() {
		var f music.FolderInfo
		if err := rows.Scan(&f.FolderPath, &f.DisplayPath, &f.TrackCount); err != nil {
			return nil, err
		}
		folders = append(folders, &f)
	}
	return folders, rows.Err()
}

// AddSourceFolder registers a readable folder and returns its row id.
func (d *SqliteCatalog) AddSourceFolder(ctx context.Context, folder *music.SourceFolder) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO source_folders (path, display_name, added_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET display_name = excluded.display_name
	`, folder.Path, folder.DisplayName, folder.AddedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RemoveSourceFolder drops a registered folder.
func (d *SqliteCatalog) RemoveSourceFolder(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM source_folders WHERE id = ?`, id)
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

// GetSourceFolders lists the registered folders in insertion order.
func (d *SqliteCatalog) GetSourceFolders(ctx context.Context) ([]*music.SourceFolder, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, path, display_name, added_at FROM source_folders ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*music.SourceFolder
	for rows.Next() {
		var f music.SourceFolder
		if err := rows.Scan(&f.ID, &f.Path, &f.DisplayName, &f.AddedAt); err != nil {
			return nil, err
		}
		folders = append(folders, &f)
	}
	return folders, rows.Err()
}
