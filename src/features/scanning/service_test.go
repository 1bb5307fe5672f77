package scanning

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zjarhdgkrwk-lang/stack/src/features/config"
	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// MockCatalog is a mock implementation of music.Catalog
type MockCatalog struct {
	music.Catalog // Embed interface, unimplemented methods panic if called
	mu            sync.Mutex
	tracks        map[string]*music.Track
	nextID        int64
	updates       int
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{tracks: make(map[string]*music.Track), nextID: 1}
}

func (m *MockCatalog) GetAllTracksOnce(ctx context.Context) ([]*music.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*music.Track
	for _, t := range m.tracks {
		copy := *t
		out = append(out, &copy)
	}
	return out, nil
}

func (m *MockCatalog) AddTracks(ctx context.Context, tracks []*music.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tracks {
		t.ID = m.nextID
		m.nextID++
		copy := *t
		m.tracks[t.ContentURI] = &copy
	}
	return nil
}

func (m *MockCatalog) UpdateTrack(ctx context.Context, track *music.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	copy := *track
	m.tracks[track.ContentURI] = &copy
	return nil
}

func (m *MockCatalog) UpdateTrackStatus(ctx context.Context, id int64, status music.TrackStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tracks {
		if t.ID == id {
			t.Status = status
			return nil
		}
	}
	return music.ErrNotFound
}

func (m *MockCatalog) GetSourceFolders(ctx context.Context) ([]*music.SourceFolder, error) {
	return nil, nil
}

func (m *MockCatalog) GetTrackCountByStatus(ctx context.Context, status music.TrackStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, t := range m.tracks {
		if t.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *MockCatalog) get(uri string) *music.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tracks[uri]; ok {
		copy := *t
		return &copy
	}
	return nil
}

func (m *MockCatalog) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

func (m *MockCatalog) seed(t *music.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.nextID
	m.nextID++
	m.tracks[t.ContentURI] = t
}

// MockPrefs is a mock implementation of music.Preferences
type MockPrefs struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMockPrefs() *MockPrefs {
	return &MockPrefs{values: make(map[string]string)}
}

func (m *MockPrefs) GetPref(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", music.ErrNotFound
}

func (m *MockPrefs) SetPref(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// MockIndex is a mock implementation of Index
type MockIndex struct {
	rows []*music.Track
	// block, when set, makes ReadTracks wait for ctx cancellation
	block   bool
	started chan struct{}
	// delay slows emission so tests can observe intermediate states
	delay time.Duration
}

func (m *MockIndex) CountTracks(ctx context.Context, folders []string) (int, error) {
	return len(m.rows), nil
}

func (m *MockIndex) ReadTracks(ctx context.Context, folders []string, emit func(*music.Track) error) error {
	if m.started != nil {
		close(m.started)
		m.started = nil
	}
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	for _, row := range m.rows {
		if m.delay > 0 {
			time.Sleep(m.delay)
		}
		copy := *row
		if err := emit(&copy); err != nil {
			return err
		}
	}
	return nil
}

func testConfig() *config.Manager {
	return config.NewManager(&config.Config{
		SourceFolders: []string{"/music"},
		Scan: config.Scan{
			DebounceMs:      10,
			MinDurationMs:   30_000,
			CompletedHoldMs: 300,
		},
	})
}

func newTestService(index Index, catalog *MockCatalog) *Service {
	cfg := testConfig()
	enumerator := NewEnumerator(index, cfg.Get().Scan.MinDurationMs)
	return NewService(catalog, NewMockPrefs(), enumerator, cfg, nil)
}

func waitForPhase(t *testing.T, s *Service, phase Phase) State {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		state := s.State()
		if state.Phase == phase {
			return state
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for phase %q, last state %+v", phase, state)
		case <-time.After(time.Millisecond):
		}
	}
}

func row(uri string, duration int64) *music.Track {
	return &music.Track{
		ContentURI:   uri,
		Title:        "Track " + uri,
		Artist:       "Artist",
		Album:        "Album",
		Duration:     duration,
		Size:         1024,
		DateModified: testModTime(),
	}
}

func testModTime() time.Time {
	return time.Unix(1700000000, 0)
}

func trackURI(i int) string {
	return fmt.Sprintf("/music/track-%03d.mp3", i)
}

func TestScan_AddsNewTracksAndFiltersShortRows(t *testing.T) {
	catalog := NewMockCatalog()
	index := &MockIndex{rows: []*music.Track{
		row("/music/a.mp3", 180_000),
		row("/music/b.mp3", 240_000),
		row("/music/c.flac", 300_000),
		row("/music/notification.ogg", 2_000), // under the duration floor
	}}
	service := newTestService(index, catalog)

	service.StartScan()

	state := waitForPhase(t, service, PhaseCompleted)
	if state.Added != 3 {
		t.Errorf("expected 3 added, got %d", state.Added)
	}
	if state.Updated != 0 || state.Removed != 0 {
		t.Errorf("expected no updates or removals, got %+v", state)
	}

	if catalog.get("/music/notification.ogg") != nil {
		t.Error("short row should not have entered the catalog")
	}
	added := catalog.get("/music/a.mp3")
	if added == nil {
		t.Fatal("expected /music/a.mp3 in catalog")
	}
	if added.Status != music.StatusActive {
		t.Errorf("expected ACTIVE status, got %s", added.Status)
	}
	if added.DateAdded.IsZero() {
		t.Error("expected DateAdded to be set on insert")
	}

	waitForPhase(t, service, PhaseIdle)
}

func TestScan_PreservesDateAddedOnUpdate(t *testing.T) {
	catalog := NewMockCatalog()
	originalAdded := time.Unix(1600000000, 0)
	existing := row("/music/a.mp3", 180_000)
	existing.Status = music.StatusActive
	existing.DateAdded = originalAdded
	catalog.seed(existing)

	changed := row("/music/a.mp3", 180_000)
	changed.Size = 2048 // size change marks the row dirty
	index := &MockIndex{rows: []*music.Track{changed}}
	service := newTestService(index, catalog)

	service.StartScan()
	state := waitForPhase(t, service, PhaseCompleted)

	if state.Updated != 1 {
		t.Errorf("expected 1 updated, got %d", state.Updated)
	}
	got := catalog.get("/music/a.mp3")
	if !got.DateAdded.Equal(originalAdded) {
		t.Errorf("DateAdded changed on update: want %v, got %v", originalAdded, got.DateAdded)
	}
	if got.Size != 2048 {
		t.Errorf("expected updated size 2048, got %d", got.Size)
	}
}

func TestScan_UnchangedTrackNotRewritten(t *testing.T) {
	catalog := NewMockCatalog()
	existing := row("/music/a.mp3", 180_000)
	existing.Status = music.StatusActive
	existing.DateAdded = time.Unix(1600000000, 0)
	catalog.seed(existing)

	index := &MockIndex{rows: []*music.Track{row("/music/a.mp3", 180_000)}}
	service := newTestService(index, catalog)

	service.StartScan()
	state := waitForPhase(t, service, PhaseCompleted)

	if state.Added != 0 || state.Updated != 0 || state.Removed != 0 {
		t.Errorf("expected a no-op scan, got %+v", state)
	}
	if catalog.updateCount() != 0 {
		t.Errorf("expected no catalog writes, got %d updates", catalog.updateCount())
	}
}

func TestScan_GhostsMissingTracks(t *testing.T) {
	catalog := NewMockCatalog()
	gone := row("/music/gone.mp3", 180_000)
	gone.Status = music.StatusActive
	catalog.seed(gone)
	kept := row("/music/kept.mp3", 180_000)
	kept.Status = music.StatusActive
	catalog.seed(kept)

	index := &MockIndex{rows: []*music.Track{row("/music/kept.mp3", 180_000)}}
	service := newTestService(index, catalog)

	service.StartScan()
	state := waitForPhase(t, service, PhaseCompleted)

	if state.Removed != 1 {
		t.Errorf("expected 1 removed, got %d", state.Removed)
	}
	if got := catalog.get("/music/gone.mp3"); got.Status != music.StatusGhost {
		t.Errorf("expected GHOST status, got %s", got.Status)
	}
	if got := catalog.get("/music/kept.mp3"); got.Status != music.StatusActive {
		t.Errorf("expected kept track to stay ACTIVE, got %s", got.Status)
	}
}

func TestScan_ResurrectsGhostTracks(t *testing.T) {
	catalog := NewMockCatalog()
	ghost := row("/music/back.mp3", 180_000)
	ghost.Status = music.StatusGhost
	ghost.DateAdded = time.Unix(1600000000, 0)
	catalog.seed(ghost)

	index := &MockIndex{rows: []*music.Track{row("/music/back.mp3", 180_000)}}
	service := newTestService(index, catalog)

	service.StartScan()
	waitForPhase(t, service, PhaseCompleted)

	got := catalog.get("/music/back.mp3")
	if got.Status != music.StatusActive {
		t.Errorf("expected resurrected track to be ACTIVE, got %s", got.Status)
	}
	if !got.DateAdded.Equal(time.Unix(1600000000, 0)) {
		t.Error("resurrection must keep the original DateAdded")
	}
}

func TestScan_SecondScanWaitsForRunningScan(t *testing.T) {
	catalog := NewMockCatalog()
	started := make(chan struct{})
	index := &MockIndex{block: true, started: started}
	service := newTestService(index, catalog)

	service.StartScan()
	<-started

	// A request made mid-scan is not dropped: it waits for the gate and runs
	// once the first scan releases it.
	service.StartScan()
	service.enumerator = NewEnumerator(&MockIndex{rows: []*music.Track{row("/music/a.mp3", 180_000)}}, 0)

	service.StopScan()
	waitForPhase(t, service, PhaseCompleted)

	if catalog.get("/music/a.mp3") == nil {
		t.Error("the waiting scan never ran")
	}
	waitForPhase(t, service, PhaseIdle)
}

func TestScan_CancelResetsToIdleSilently(t *testing.T) {
	catalog := NewMockCatalog()
	started := make(chan struct{})
	index := &MockIndex{block: true, started: started}
	service := newTestService(index, catalog)

	service.StartScan()
	<-started
	service.StopScan()

	state := waitForPhase(t, service, PhaseIdle)
	if state.Message != "" {
		t.Errorf("cancelled scan must not surface an error, got %q", state.Message)
	}
	if catalog.get("/music/a.mp3") != nil {
		t.Error("cancelled scan must not have written tracks")
	}

	// The gate must be free again.
	index2 := &MockIndex{}
	service.enumerator = NewEnumerator(index2, 0)
	service.StartScan()
	waitForPhase(t, service, PhaseCompleted)
}

func TestScan_DebounceCollapsesBursts(t *testing.T) {
	catalog := NewMockCatalog()
	index := &MockIndex{rows: []*music.Track{row("/music/a.mp3", 180_000)}}
	service := newTestService(index, catalog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.Start(ctx)

	for i := 0; i < 5; i++ {
		service.QueueDebouncedScan()
		time.Sleep(2 * time.Millisecond)
	}

	waitForPhase(t, service, PhaseCompleted)
	waitForPhase(t, service, PhaseIdle)
	// One scan means one insert, a second would have produced zero adds but
	// also a second Completed; give it room to misbehave.
	time.Sleep(50 * time.Millisecond)
	if got := catalog.get("/music/a.mp3"); got == nil {
		t.Fatal("expected debounced scan to run")
	}
}

func TestScan_TwoPhaseProgressComposition(t *testing.T) {
	catalog := NewMockCatalog()
	var rows []*music.Track
	for i := 0; i < 120; i++ {
		rows = append(rows, row(trackURI(i), 180_000))
	}
	index := &MockIndex{rows: rows, delay: time.Millisecond}
	service := newTestService(index, catalog)

	states, unsubscribe := service.Subscribe()
	defer unsubscribe()

	service.StartScan()

	sawFirstHalf := false
	deadline := time.After(2 * time.Second)
	for {
		select {
		case state := <-states:
			if state.Phase == PhaseScanning {
				if state.Progress < 0 || state.Progress > 1 {
					t.Fatalf("progress out of range: %f", state.Progress)
				}
				if state.Label == "Scanning files..." && state.Progress <= 0.5 {
					sawFirstHalf = true
				}
				if state.Label == "Updating library..." && state.Progress < 0.5 {
					t.Fatalf("diff phase reported progress below one half: %f", state.Progress)
				}
			}
			if state.Phase == PhaseCompleted {
				if !sawFirstHalf {
					t.Error("never observed enumeration progress in the first half")
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for scan completion")
		}
	}
}
