package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// Service provides read access to the play history and the weekly charts.
// Rows are written by the playback engine.
type Service struct {
	history music.History
	catalog music.Catalog
}

// NewService creates a new history service.
func NewService(history music.History, catalog music.Catalog) *Service {
	return &Service{history: history, catalog: catalog}
}

// PlayedTrack is a play event joined with its track record.
type PlayedTrack struct {
	Event *music.PlayEvent `json:"event"`
	Track *music.Track     `json:"track,omitempty"`
}

// ChartEntry is one row of a weekly chart.
type ChartEntry struct {
	Rank      int          `json:"rank"`
	PlayCount int          `json:"play_count"`
	Track     *music.Track `json:"track,omitempty"`
	TrackID   int64        `json:"track_id"`
}

// GetRecentPlays returns the newest plays with their tracks resolved. Plays
// of deleted tracks keep the bare event.
func (s *Service) GetRecentPlays(ctx context.Context, limit int) ([]*PlayedTrack, error) {
	slog.Debug("History service called", "method", "GetRecentPlays", "limit", limit)

	events, err := s.history.GetRecentPlays(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*PlayedTrack, 0, len(events))
	for _, event := range events {
		played := &PlayedTrack{Event: event}
		if track, err := s.catalog.GetTrack(ctx, event.TrackID); err == nil {
			played.Track = track
		}
		out = append(out, played)
	}
	return out, nil
}

// GetTrackStats returns the play aggregate of one track.
func (s *Service) GetTrackStats(ctx context.Context, trackID int64) (*music.TrackPlayStats, error) {
	slog.Debug("History service called", "method", "GetTrackStats", "trackID", trackID)
	return s.history.GetTrackStats(ctx, trackID)
}

// GetWeeklyChart returns the chart for one ISO week, defaulting to the
// current week.
func (s *Service) GetWeeklyChart(ctx context.Context, weekKey string) ([]*ChartEntry, error) {
	if weekKey == "" {
		weekKey = music.WeekKey(time.Now())
	}
	slog.Debug("History service called", "method", "GetWeeklyChart", "week", weekKey)

	stats, err := s.history.GetWeeklyStats(ctx, weekKey)
	if err != nil {
		return nil, err
	}

	chart := make([]*ChartEntry, 0, len(stats))
	for i, stat := range stats {
		entry := &ChartEntry{Rank: i + 1, PlayCount: stat.PlayCount, TrackID: stat.TrackID}
		if track, err := s.catalog.GetTrack(ctx, stat.TrackID); err == nil {
			entry.Track = track
		}
		chart = append(chart, entry)
	}
	return chart, nil
}
