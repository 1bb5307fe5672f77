package music

import (
	"context"
	"fmt"
	"time"
)

// PlayEvent is one playback of a track, recorded when the track ends or the
// user skips away.
type PlayEvent struct {
	ID             int64
	TrackID        int64
	PlayedAt       time.Time
	PlayedDuration int64 // ms actually played
	Completed      bool
	WeekKey        string // "2026-W35", for weekly aggregation
}

// TrackPlayStats summarizes all recorded plays of one track.
type TrackPlayStats struct {
	TrackID       int64
	PlayCount     int
	TotalDuration int64
	FirstPlayedAt *time.Time
	LastPlayedAt  *time.Time
}

// WeeklyStat is the per-week play aggregate of one track.
type WeeklyStat struct {
	WeekKey       string
	TrackID       int64
	PlayCount     int
	TotalDuration int64
}

// WeekKey formats t as an ISO-week aggregation key.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// History is the repository interface for play history.
type History interface {
	RecordPlay(ctx context.Context, event *PlayEvent) error
	GetTrackStats(ctx context.Context, trackID int64) (*TrackPlayStats, error)
	GetWeeklyStats(ctx context.Context, weekKey string) ([]*WeeklyStat, error)
	GetRecentPlays(ctx context.Context, limit int) ([]*PlayEvent, error)
}
