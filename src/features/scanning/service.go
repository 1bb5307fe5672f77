package scanning

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zjarhdgkrwk-lang/stack/src/features/config"
	"github.com/zjarhdgkrwk-lang/stack/src/features/metrics"
	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

const lastScanPrefKey = "scan.last_completed_at"

// Service is the scan coordinator. It is the only writer of track rows: the
// gate admits one scan at a time and a request made mid-scan waits its turn
// instead of being dropped.
type Service struct {
	catalog    music.Catalog
	prefs      music.Preferences
	enumerator *Enumerator
	cfg        *config.Manager
	recorder   *metrics.Recorder

	gate  sync.Mutex
	state *publisher

	mu     sync.Mutex
	queued bool
	cancel context.CancelFunc

	trigger chan struct{}
}

// NewService creates a new scan coordinator.
func NewService(catalog music.Catalog, prefs music.Preferences, enumerator *Enumerator, cfg *config.Manager, recorder *metrics.Recorder) *Service {
	return &Service{
		catalog:    catalog,
		prefs:      prefs,
		enumerator: enumerator,
		cfg:        cfg,
		recorder:   recorder,
		state:      newPublisher(),
		trigger:    make(chan struct{}, 1),
	}
}

// Start launches the debounce loop. It returns immediately; the loop stops
// when ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	go s.debounceLoop(ctx)
}

// State returns the current scan state.
func (s *Service) State() State {
	return s.state.get()
}

// Subscribe returns a channel that receives state changes, starting with the
// current state. Call the returned function to unsubscribe.
func (s *Service) Subscribe() (<-chan State, func()) {
	return s.state.subscribe()
}

// LastCompletedAt returns when the last scan finished, or the zero time.
func (s *Service) LastCompletedAt(ctx context.Context) time.Time {
	raw, err := s.prefs.GetPref(ctx, lastScanPrefKey)
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// StartScan begins a scan in the background. A request made while another
// scan holds the gate waits for it and then runs; one waiting request is
// enough to pick up anything a later one would see, so further requests fold
// into it.
func (s *Service) StartScan() {
	slog.Debug("Scan service called", "method", "StartScan")
	s.mu.Lock()
	if s.queued {
		s.mu.Unlock()
		slog.Debug("Scan request folded into the waiting scan")
		return
	}
	s.queued = true
	s.mu.Unlock()

	go func() {
		s.gate.Lock()
		defer s.gate.Unlock()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s.mu.Lock()
		s.queued = false
		s.cancel = cancel
		s.mu.Unlock()

		s.run(ctx)
	}()
}

// StopScan cancels the running scan, if any. The state resets to Idle without
// passing through Completed or Error.
func (s *Service) StopScan() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// QueueDebouncedScan requests a scan after the debounce window. Bursts of
// requests collapse into one scan; each request restarts the window.
func (s *Service) QueueDebouncedScan() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Service) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-s.trigger:
			window := time.Duration(s.cfg.Get().Scan.DebounceMs) * time.Millisecond
			if timer == nil {
				timer = time.NewTimer(window)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(window)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			s.StartScan()
		}
	}
}

func (s *Service) run(ctx context.Context) {
	started := time.Now()

	folders, err := s.sourceFolders(ctx)
	if err != nil {
		s.finishError(err, started)
		return
	}

	// Phase one, enumeration, fills the first half of the progress bar.
	s.state.set(State{Phase: PhaseScanning, Label: "Scanning files...", Progress: 0})
	scanned, err := s.enumerator.Enumerate(ctx, folders, func(done, total int) {
		var p float64
		if total > 0 {
			p = float64(done) / float64(total)
		}
		s.state.set(State{
			Phase:        PhaseScanning,
			Label:        "Scanning files...",
			Progress:     p * 0.5,
			ScannedCount: done,
			TotalCount:   total,
		})
	})
	if err != nil {
		s.finishError(err, started)
		return
	}

	// Phase two, the catalog diff, fills the second half.
	result, err := s.applyDiff(ctx, scanned, func(p float64) {
		s.state.set(State{
			Phase:    PhaseScanning,
			Label:    "Updating library...",
			Progress: 0.5 + p*0.5,
		})
	})
	if err != nil {
		s.finishError(err, started)
		return
	}

	elapsed := time.Since(started)
	slog.Info("Scan completed",
		"added", result.added, "updated", result.updated, "removed", result.removed,
		"tracks", len(scanned), "elapsed", elapsed)
	s.recorder.ObserveScan("completed", elapsed.Seconds(), result.added, result.updated, result.removed)
	s.refreshLibraryGauges(ctx)

	if err := s.prefs.SetPref(ctx, lastScanPrefKey, time.Now().Format(time.RFC3339)); err != nil {
		slog.Warn("Failed to persist last scan time", "error", err)
	}

	s.state.set(State{
		Phase:      PhaseCompleted,
		Added:      result.added,
		Updated:    result.updated,
		Removed:    result.removed,
		DurationMs: elapsed.Milliseconds(),
	})
	s.holdThenIdle()
}

func (s *Service) finishError(err error, started time.Time) {
	// A cancelled scan resets quietly. Partial catalog writes stay; the next
	// full scan reconciles them.
	if errors.Is(err, context.Canceled) {
		slog.Info("Scan cancelled", "elapsed", time.Since(started))
		s.recorder.ObserveScan("cancelled", 0, 0, 0, 0)
		s.state.set(Idle())
		return
	}

	slog.Error("Scan failed", "error", err, "elapsed", time.Since(started))
	s.recorder.ObserveScan("error", 0, 0, 0, 0)
	s.state.set(State{Phase: PhaseError, Message: err.Error()})
	s.holdThenIdle()
}

// holdThenIdle keeps the terminal state visible briefly so clients polling
// the status endpoint can observe it, then resets to Idle. The gate is held
// for the duration, no scan can start meanwhile.
func (s *Service) holdThenIdle() {
	hold := time.Duration(s.cfg.Get().Scan.CompletedHoldMs) * time.Millisecond
	if hold > 0 {
		time.Sleep(hold)
	}
	s.state.set(Idle())
}

// sourceFolders merges the configured folders with the user-registered ones.
func (s *Service) sourceFolders(ctx context.Context) ([]string, error) {
	folders := append([]string(nil), s.cfg.Get().SourceFolders...)

	registered, err := s.catalog.GetSourceFolders(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(folders))
	for _, f := range folders {
		known[f] = true
	}
	for _, sf := range registered {
		if !known[sf.Path] {
			folders = append(folders, sf.Path)
			known[sf.Path] = true
		}
	}
	return folders, nil
}

type diffResult struct {
	added   int
	updated int
	removed int
}

// applyDiff reconciles the enumerated tracks against the catalog. New URIs
// are inserted, changed rows updated with their original date_added kept,
// and rows no enumeration returned go ACTIVE to GHOST rather than away.
func (s *Service) applyDiff(ctx context.Context, scanned []*music.Track, onProgress func(float64)) (diffResult, error) {
	var result diffResult

	existing, err := s.catalog.GetAllTracksOnce(ctx)
	if err != nil {
		return result, err
	}
	byURI := make(map[string]*music.Track, len(existing))
	for _, t := range existing {
		byURI[t.ContentURI] = t
	}

	now := time.Now()
	seen := make(map[string]bool, len(scanned))
	var toAdd []*music.Track
	steps := len(scanned) + 1

	for i, t := range scanned {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		seen[t.ContentURI] = true

		old, ok := byURI[t.ContentURI]
		if !ok {
			t.Status = music.StatusActive
			t.DateAdded = now
			t.LastScanned = now
			toAdd = append(toAdd, t)
		} else if old.ChangedSince(t) || old.Status != music.StatusActive {
			t.ID = old.ID
			t.Status = music.StatusActive
			// date_added survives updates, it anchors "recently added".
			t.DateAdded = old.DateAdded
			t.LastScanned = now
			if err := s.catalog.UpdateTrack(ctx, t); err != nil {
				return result, err
			}
			result.updated++
		}

		if (i+1)%progressInterval == 0 {
			onProgress(float64(i+1) / float64(steps))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(toAdd) > 0 {
		if err := s.catalog.AddTracks(ctx, toAdd); err != nil {
			return result, err
		}
		result.added = len(toAdd)
	}

	for _, old := range existing {
		if old.Status == music.StatusActive && !seen[old.ContentURI] {
			if err := s.catalog.UpdateTrackStatus(ctx, old.ID, music.StatusGhost); err != nil {
				return result, err
			}
			result.removed++
		}
	}

	onProgress(1)
	return result, nil
}

func (s *Service) refreshLibraryGauges(ctx context.Context) {
	for _, status := range []music.TrackStatus{music.StatusActive, music.StatusGhost} {
		count, err := s.catalog.GetTrackCountByStatus(ctx, status)
		if err != nil {
			continue
		}
		s.recorder.SetLibrarySize(string(status), count)
	}
}
