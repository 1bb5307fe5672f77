package library

import (
	"context"
	"testing"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// MockCatalog is a mock implementation of music.Catalog
type MockCatalog struct {
	music.Catalog // Embed interface, unimplemented methods panic if called
	tracks        []*music.Track
	sources       map[int64]*music.SourceFolder
	nextSource    int64
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{sources: make(map[int64]*music.SourceFolder), nextSource: 1}
}

func (m *MockCatalog) GetGhostTracks(ctx context.Context) ([]*music.Track, error) {
	var out []*music.Track
	for _, t := range m.tracks {
		if t.Status == music.StatusGhost {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockCatalog) DeleteGhostTracks(ctx context.Context) (int, error) {
	var kept []*music.Track
	removed := 0
	for _, t := range m.tracks {
		if t.Status == music.StatusGhost {
			removed++
		} else {
			kept = append(kept, t)
		}
	}
	m.tracks = kept
	return removed, nil
}

func (m *MockCatalog) GetTrackCountByStatus(ctx context.Context, status music.TrackStatus) (int, error) {
	count := 0
	for _, t := range m.tracks {
		if t.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *MockCatalog) AddSourceFolder(ctx context.Context, folder *music.SourceFolder) (int64, error) {
	id := m.nextSource
	m.nextSource++
	folder.ID = id
	m.sources[id] = folder
	return id, nil
}

func (m *MockCatalog) RemoveSourceFolder(ctx context.Context, id int64) error {
	if _, ok := m.sources[id]; !ok {
		return music.ErrNotFound
	}
	delete(m.sources, id)
	return nil
}

func TestCleanupGhosts_RemovesOnlyGhosts(t *testing.T) {
	catalog := NewMockCatalog()
	catalog.tracks = []*music.Track{
		{ID: 1, ContentURI: "/music/a.mp3", Status: music.StatusActive},
		{ID: 2, ContentURI: "/music/b.mp3", Status: music.StatusGhost},
		{ID: 3, ContentURI: "/music/c.mp3", Status: music.StatusGhost},
	}
	service := NewService(catalog, nil)

	count, err := service.CleanupGhosts(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 removed, got %d", count)
	}

	active, ghost, err := service.GetCounts(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if active != 1 || ghost != 0 {
		t.Errorf("expected 1 active and 0 ghosts after cleanup, got %d/%d", active, ghost)
	}
}

// MockScanQueue counts debounced scan requests.
type MockScanQueue struct {
	queued int
}

func (m *MockScanQueue) QueueDebouncedScan() { m.queued++ }

func TestSourceFolders_AddAndRemove(t *testing.T) {
	catalog := NewMockCatalog()
	scans := &MockScanQueue{}
	service := NewService(catalog, scans)
	ctx := context.Background()

	folder, err := service.AddSourceFolder(ctx, "/storage/sdcard/Music", "SD Card")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if folder.ID == 0 {
		t.Error("expected folder to receive an id")
	}
	if folder.AddedAt == 0 {
		t.Error("expected AddedAt to be set")
	}

	if err := service.RemoveSourceFolder(ctx, folder.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := service.RemoveSourceFolder(ctx, folder.ID); err != music.ErrNotFound {
		t.Errorf("expected ErrNotFound on double remove, got %v", err)
	}
	if scans.queued != 2 {
		t.Errorf("expected add and remove to each queue a scan, got %d", scans.queued)
	}
}
