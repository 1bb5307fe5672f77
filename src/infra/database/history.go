package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// RecordPlay appends one play event. The week key is derived here when the
// caller left it empty.
func (d *SqliteCatalog) RecordPlay(ctx context.Context, event *music.PlayEvent) error {
	weekKey := event.WeekKey
	if weekKey == "" {
		weekKey = music.WeekKey(event.PlayedAt)
	}
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO play_history (track_id, played_at, played_duration, completed, week_key)
		VALUES (?, ?, ?, ?, ?)
	`, event.TrackID, event.PlayedAt.Format(time.RFC3339), event.PlayedDuration, event.Completed, weekKey)
	if err != nil {
		return err
	}
	event.ID, err = res.LastInsertId()
	return err
}

// GetTrackStats aggregates all plays of one track. A track with no plays
// yields zero counts, not ErrNotFound.
func (d *SqliteCatalog) GetTrackStats(ctx context.Context, trackID int64) (*music.TrackPlayStats, error) {
	var stats music.TrackPlayStats
	stats.TrackID = trackID

	var first, last sql.NullString
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(played_duration), 0), MIN(played_at), MAX(played_at)
		FROM play_history WHERE track_id = ?
	`, trackID).Scan(&stats.PlayCount, &stats.TotalDuration, &first, &last)
	if err != nil {
		return nil, err
	}

	if first.Valid {
		if t, err := time.Parse(time.RFC3339, first.String); err == nil {
			stats.FirstPlayedAt = &t
		}
	}
	if last.Valid {
		if t, err := time.Parse(time.RFC3339, last.String); err == nil {
			stats.LastPlayedAt = &t
		}
	}
	return &stats, nil
}

// GetWeeklyStats returns per-track aggregates for one ISO week, most played
// first.
func (d *SqliteCatalog) GetWeeklyStats(ctx context.Context, weekKey string) ([]*music.WeeklyStat, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT week_key, track_id, COUNT(*), COALESCE(SUM(played_duration), 0)
		FROM play_history
		WHERE week_key = ?
		GROUP BY track_id
		ORDER BY COUNT(*) DESC, track_id ASC
	`, weekKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*music.WeeklyStat
	for rows.Next() {
		var s music.WeeklyStat
		if err := rows.Scan(&s.WeekKey, &s.TrackID, &s.PlayCount, &s.TotalDuration); err != nil {
			return nil, err
		}
		stats = append(stats, &s)
	}
	return stats, rows.Err()
}

// GetRecentPlays returns the newest play events, newest first.
func (d *SqliteCatalog) GetRecentPlays(ctx context.Context, limit int) ([]*music.PlayEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, track_id, played_at, played_duration, completed, week_key
		FROM play_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*music.PlayEvent
	for rows.Next() {
		var e music.PlayEvent
		var playedAt string
		if err := rows.Scan(&e.ID, &e.TrackID, &playedAt, &e.PlayedDuration, &e.Completed, &e.WeekKey); err != nil {
			return nil, err
		}
		e.PlayedAt, _ = time.Parse(time.RFC3339, playedAt)
		events = append(events, &e)
	}
	return events, rows.Err()
}
