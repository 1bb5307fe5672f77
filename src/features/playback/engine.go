package playback

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/zjarhdgkrwk-lang/stack/src/features/config"
	"github.com/zjarhdgkrwk-lang/stack/src/features/metrics"
	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

var (
	// ErrEngineClosed is returned by calls made after shutdown.
	ErrEngineClosed = errors.New("playback engine closed")
	// ErrFocusDenied is returned when the focus line refuses playback.
	ErrFocusDenied = errors.New("audio focus denied")
	// ErrQueueEmpty is returned by playback requests on an empty queue.
	ErrQueueEmpty = errors.New("playback queue is empty")
)

// Shuffle and repeat survive restarts through the preferences store, under
// the same keys the settings feature registers.
const (
	shufflePrefKey = "playback.shuffle"
	repeatPrefKey  = "playback.repeat"
)

// Engine drives the dual-decoder player. All mutable state is confined to
// the run loop goroutine; the exported methods marshal onto it through the
// calls channel, so none of them may be called from inside the loop.
type Engine struct {
	cfg      *config.Manager
	recorder *metrics.Recorder
	history  music.History
	prefs    music.Preferences

	queue *Queue
	focus FocusLine

	state *statePublisher
	calls chan func()
	done  chan struct{}
	once  sync.Once

	// Run-loop confined from here down.
	active Decoder
	warm   Decoder

	playing       bool
	buffering     bool
	repeat        RepeatMode
	volume        float64
	ducked        bool
	pausedByFocus bool
	focusHeld     bool

	// preloadTriggered is the one-shot per track: once the threshold fires
	// the warm decoder is loaded and no further crossing re-triggers it,
	// even after seeking backwards.
	preloadTriggered bool
	warmURI          string
	warmReady        bool

	positionMs int64
	durationMs int64
	playedMs   int64
	lastError  *PlayerError
}

// NewEngine creates a playback engine over two decoders and a focus line.
func NewEngine(active, warm Decoder, focus FocusLine, history music.History, prefs music.Preferences, cfg *config.Manager, recorder *metrics.Recorder) *Engine {
	return &Engine{
		cfg:      cfg,
		recorder: recorder,
		history:  history,
		prefs:    prefs,
		queue:    NewQueue(),
		focus:    focus,
		state:    newStatePublisher(),
		calls:    make(chan func()),
		done:     make(chan struct{}),
		active:   active,
		warm:     warm,
		repeat:   RepeatOff,
		volume:   1.0,
	}
}

// Start launches the run loop. The engine shuts down when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	defer e.shutdown(ctx)
	e.restoreModes(ctx)

	interval := time.Duration(e.cfg.Get().Playback.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-e.calls:
			fn()
		case <-ticker.C:
			e.poll(ctx)
		case ev := <-e.active.Events():
			e.onActiveEvent(ctx, ev)
		case ev := <-e.warm.Events():
			e.onWarmEvent(ev)
		case fe := <-e.focus.Events():
			e.onFocusEvent(ctx, fe)
		}
	}
}

func (e *Engine) shutdown(ctx context.Context) {
	e.once.Do(func() {
		if e.playing {
			e.recordPlay(ctx, e.queue.Current(), false)
		}
		_ = e.active.Stop(context.Background())
		_ = e.warm.Stop(context.Background())
		_ = e.active.Release()
		_ = e.warm.Release()
		if e.focusHeld {
			_ = e.focus.Abandon(context.Background())
		}
		close(e.done)
	})
}

// call runs fn on the run loop and waits for its result.
func (e *Engine) call(fn func() error) error {
	errCh := make(chan error, 1)
	select {
	case e.calls <- func() { errCh <- fn() }:
	case <-e.done:
		return ErrEngineClosed
	}
	select {
	case err := <-errCh:
		return err
	case <-e.done:
		return ErrEngineClosed
	}
}

// State returns the current player state snapshot.
func (e *Engine) State() State {
	return e.state.get()
}

// Subscribe returns a channel of state changes, starting with the current
// state. Call the returned function to unsubscribe.
func (e *Engine) Subscribe() (<-chan State, func()) {
	return e.state.subscribe()
}

// PlayTracks replaces the queue and starts playback at startIndex.
func (e *Engine) PlayTracks(tracks []*music.Track, startIndex int) error {
	return e.call(func() error {
		slog.Debug("Playback engine called", "method", "PlayTracks", "tracks", len(tracks), "start", startIndex)
		if len(tracks) == 0 {
			return ErrQueueEmpty
		}
		if e.playing {
			e.recordPlay(context.Background(), e.queue.Current(), false)
		}
		e.queue.SetTracks(tracks, startIndex)
		return e.startCurrent(context.Background())
	})
}

// Resume starts or resumes playback of the current track.
func (e *Engine) Resume() error {
	return e.call(func() error {
		slog.Debug("Playback engine called", "method", "Resume")
		if e.queue.Current() == nil {
			return ErrQueueEmpty
		}
		if e.playing {
			return nil
		}
		if err := e.ensureFocus(context.Background()); err != nil {
			return err
		}
		if err := e.active.Play(context.Background()); err != nil {
			return e.failActive(err)
		}
		e.playing = true
		e.pausedByFocus = false
		e.publish()
		return nil
	})
}

// Pause pauses playback, keeping the focus line and queue position.
func (e *Engine) Pause() error {
	return e.call(func() error {
		slog.Debug("Playback engine called", "method", "Pause")
		if !e.playing {
			return nil
		}
		if err := e.active.Pause(context.Background()); err != nil {
			return e.failActive(err)
		}
		e.playing = false
		e.pausedByFocus = false
		e.publish()
		return nil
	})
}

// Toggle flips between playing and paused.
func (e *Engine) Toggle() error {
	state := e.State()
	if state.Playing {
		return e.Pause()
	}
	return e.Resume()
}

// SkipToNext advances to the next track. Repeat ONE does not trap a manual
// skip.
func (e *Engine) SkipToNext() error {
	return e.call(func() error {
		slog.Debug("Playback engine called", "method", "SkipToNext")
		return e.advance(context.Background(), true)
	})
}

// SkipToPrevious restarts the current track when more than the configured
// threshold has played (or there is no previous track); otherwise it moves
// to the previous track.
func (e *Engine) SkipToPrevious() error {
	return e.call(func() error {
		slog.Debug("Playback engine called", "method", "SkipToPrevious")
		if e.queue.Current() == nil {
			return ErrQueueEmpty
		}

		threshold := e.cfg.Get().Playback.PreviousThresholdMs
		if e.positionMs > threshold || e.queue.Index() == 0 {
			if err := e.active.Seek(context.Background(), 0); err != nil {
				return e.failActive(err)
			}
			e.positionMs = 0
			e.playedMs = 0
			e.publish()
			return nil
		}

		e.recordPlay(context.Background(), e.queue.Current(), false)
		if prev := e.queue.Previous(); prev != nil {
			e.recorder.ObserveTransition("manual")
			return e.startCurrent(context.Background())
		}
		return nil
	})
}

// SeekTo moves the playhead. A backward seek does not re-arm the preload
// trigger.
func (e *Engine) SeekTo(positionMs int64) error {
	return e.call(func() error {
		if e.queue.Current() == nil {
			return ErrQueueEmpty
		}
		if positionMs < 0 {
			positionMs = 0
		}
		if err := e.active.Seek(context.Background(), positionMs); err != nil {
			return e.failActive(err)
		}
		e.positionMs = positionMs
		if positionMs > e.playedMs {
			e.playedMs = positionMs
		}
		e.publish()
		return nil
	})
}

// SetShuffle toggles shuffle mode and persists it.
func (e *Engine) SetShuffle(on bool) error {
	return e.call(func() error {
		e.queue.SetShuffle(on)
		e.dropPreload(context.Background())
		e.savePref(shufflePrefKey, strconv.FormatBool(on))
		e.publish()
		return nil
	})
}

// SetRepeat sets the repeat mode and persists it.
func (e *Engine) SetRepeat(mode RepeatMode) error {
	return e.call(func() error {
		switch mode {
		case RepeatOff, RepeatAll, RepeatOne:
		default:
			return errors.New("unknown repeat mode: " + string(mode))
		}
		e.repeat = mode
		e.savePref(repeatPrefKey, string(mode))
		e.publish()
		return nil
	})
}

// SetVolume sets the base playback volume.
func (e *Engine) SetVolume(volume float64) error {
	return e.call(func() error {
		if volume < 0 || volume > 1 {
			return errors.New("volume out of range")
		}
		e.volume = volume
		if !e.ducked {
			if err := e.active.SetVolume(context.Background(), volume); err != nil {
				return e.failActive(err)
			}
		}
		e.publish()
		return nil
	})
}

// AddToQueue appends a track to the queue.
func (e *Engine) AddToQueue(track *music.Track) error {
	return e.call(func() error {
		e.queue.Add(track)
		e.publish()
		return nil
	})
}

// PlayNext inserts a track right after the current one.
func (e *Engine) PlayNext(track *music.Track) error {
	return e.call(func() error {
		e.queue.InsertNext(track)
		e.dropPreload(context.Background())
		e.publish()
		return nil
	})
}

// RemoveFromQueue removes the track at the given play-order position. The
// current track keeps playing unless it is the one removed.
func (e *Engine) RemoveFromQueue(index int) error {
	return e.call(func() error {
		wasCurrent := index == e.queue.Index()
		if e.queue.RemoveAt(index) == nil {
			return music.ErrNotFound
		}
		if wasCurrent {
			if e.queue.Current() == nil {
				return e.stopLocked(context.Background())
			}
			return e.startCurrent(context.Background())
		}
		e.dropPreload(context.Background())
		e.publish()
		return nil
	})
}

// JumpTo starts playback of the track at the given play-order position.
func (e *Engine) JumpTo(index int) error {
	return e.call(func() error {
		if e.playing {
			e.recordPlay(context.Background(), e.queue.Current(), false)
		}
		if e.queue.JumpTo(index) == nil {
			return music.ErrNotFound
		}
		e.recorder.ObserveTransition("manual")
		return e.startCurrent(context.Background())
	})
}

// QueueTracks returns the queue contents in play order.
func (e *Engine) QueueTracks() []*music.Track {
	var tracks []*music.Track
	_ = e.call(func() error {
		tracks = e.queue.Tracks()
		return nil
	})
	return tracks
}

// Stop halts playback, clears the queue and gives up the focus line.
func (e *Engine) Stop() error {
	return e.call(func() error {
		slog.Debug("Playback engine called", "method", "Stop")
		if e.playing {
			e.recordPlay(context.Background(), e.queue.Current(), false)
		}
		e.queue.Clear()
		return e.stopLocked(context.Background())
	})
}

// stopLocked halts both decoders and resets transient state. Run loop only.
func (e *Engine) stopLocked(ctx context.Context) error {
	e.playing = false
	e.pausedByFocus = false
	e.buffering = false
	e.positionMs = 0
	e.durationMs = 0
	e.playedMs = 0
	e.resetPreload()
	_ = e.active.Stop(ctx)
	_ = e.warm.Stop(ctx)
	if e.focusHeld {
		_ = e.focus.Abandon(ctx)
		e.focusHeld = false
	}
	e.publish()
	return nil
}

// startCurrent cold-loads the queue's current track into the active decoder.
func (e *Engine) startCurrent(ctx context.Context) error {
	track := e.queue.Current()
	if track == nil {
		return ErrQueueEmpty
	}
	if err := e.ensureFocus(ctx); err != nil {
		e.playing = false
		e.publish()
		return err
	}

	e.resetPreload()
	e.lastError = nil
	e.buffering = true
	e.positionMs = 0
	e.playedMs = 0
	e.durationMs = track.Duration

	if err := e.active.Load(ctx, track.ContentURI); err != nil {
		return e.failActive(err)
	}
	e.playing = true
	e.publish()
	return nil
}

// advance moves to what plays next. Natural track ends honor repeat ONE;
// manual skips do not.
func (e *Engine) advance(ctx context.Context, manual bool) error {
	current := e.queue.Current()
	if current == nil {
		return ErrQueueEmpty
	}
	e.recordPlay(ctx, current, !manual)

	if e.repeat == RepeatOne && !manual {
		if err := e.active.Seek(ctx, 0); err != nil {
			return e.failActive(err)
		}
		if err := e.active.Play(ctx); err != nil {
			return e.failActive(err)
		}
		e.positionMs = 0
		e.playedMs = 0
		e.recorder.ObserveTransition("repeat_one")
		e.publish()
		return nil
	}

	next := e.queue.Next()
	if next == nil && e.repeat == RepeatAll {
		next = e.queue.Rewind()
	}
	if next == nil {
		// End of the queue: stay on the last track, paused at zero.
		e.playing = false
		e.positionMs = 0
		e.playedMs = 0
		e.resetPreload()
		_ = e.active.Stop(ctx)
		if e.focusHeld {
			_ = e.focus.Abandon(ctx)
			e.focusHeld = false
		}
		e.publish()
		return nil
	}

	if e.warmReady && e.warmURI == next.ContentURI {
		return e.gaplessSwap(ctx, next)
	}

	if manual {
		e.recorder.ObserveTransition("manual")
	} else {
		e.recorder.ObserveTransition("auto")
	}
	return e.startCurrent(ctx)
}

// gaplessSwap promotes the warm decoder, already holding the next track, to
// active. The old active decoder becomes the new warm one.
func (e *Engine) gaplessSwap(ctx context.Context, track *music.Track) error {
	e.active, e.warm = e.warm, e.active
	_ = e.warm.Stop(ctx)
	e.resetPreload()

	e.lastError = nil
	e.buffering = false
	e.positionMs = 0
	e.playedMs = 0
	e.durationMs = track.Duration

	volume := e.volume
	if e.ducked {
		volume = e.cfg.Get().Playback.DuckVolume
	}
	if err := e.active.SetVolume(ctx, volume); err != nil {
		return e.failActive(err)
	}
	if err := e.active.Play(ctx); err != nil {
		return e.failActive(err)
	}
	e.playing = true
	e.recorder.ObserveTransition("gapless")
	e.publish()
	return nil
}

// poll runs only while playing; a paused or idle engine never touches the
// decoder on the tick.
func (e *Engine) poll(ctx context.Context) {
	if !e.playing || e.queue.Current() == nil {
		return
	}

	if pos, err := e.active.Position(ctx); err == nil {
		e.positionMs = pos
		if pos > e.playedMs {
			e.playedMs = pos
		}
	}
	if dur, err := e.active.Duration(ctx); err == nil && dur > 0 {
		e.durationMs = dur
	}

	e.maybePreload(ctx)
	e.publish()
}

// maybePreload loads the upcoming track into the warm decoder once per track
// when the playhead passes the threshold.
func (e *Engine) maybePreload(ctx context.Context) {
	if !e.playing || e.preloadTriggered || e.durationMs <= 0 {
		return
	}
	threshold := e.cfg.Get().Playback.PreloadThreshold
	if float64(e.positionMs) < threshold*float64(e.durationMs) {
		return
	}
	e.preloadTriggered = true

	// Repeat ONE replays the already-loaded source, nothing to warm up.
	if e.repeat == RepeatOne {
		return
	}
	next := e.queue.PeekNext(e.repeat)
	if next == nil || next == e.queue.Current() {
		return
	}

	if err := e.warm.Load(ctx, next.ContentURI); err != nil {
		slog.Warn("Preload failed, next transition falls back to a cold load", "uri", next.ContentURI, "error", err)
		e.recorder.ObserveDecoderFault("warm")
		return
	}
	e.warmURI = next.ContentURI
	e.warmReady = false
	e.recorder.ObservePreload()
	slog.Debug("Preloading next track", "uri", next.ContentURI)
}

// dropPreload discards a warm load whose target may no longer be the next
// track, after queue mutations or shuffle changes.
func (e *Engine) dropPreload(ctx context.Context) {
	if e.warmURI == "" {
		return
	}
	_ = e.warm.Stop(ctx)
	e.warmURI = ""
	e.warmReady = false
	// The one-shot flag stays as it is: crossing the threshold again on the
	// same track must not fire twice.
}

func (e *Engine) resetPreload() {
	e.preloadTriggered = false
	e.warmURI = ""
	e.warmReady = false
}

func (e *Engine) onActiveEvent(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventPrepared:
		e.buffering = false
		if e.playing && !e.pausedByFocus {
			volume := e.volume
			if e.ducked {
				volume = e.cfg.Get().Playback.DuckVolume
			}
			_ = e.active.SetVolume(ctx, volume)
			if err := e.active.Play(ctx); err != nil {
				_ = e.failActive(err)
				return
			}
		}
		e.publish()
	case EventEnded:
		if err := e.advance(ctx, false); err != nil && !errors.Is(err, ErrQueueEmpty) {
			slog.Error("Track transition failed", "error", err)
		}
	case EventFault:
		_ = e.failActive(ev.Err)
	}
}

func (e *Engine) onWarmEvent(ev Event) {
	switch ev.Kind {
	case EventPrepared:
		if e.warmURI != "" {
			e.warmReady = true
			slog.Debug("Warm decoder ready", "uri", e.warmURI)
		}
	case EventFault:
		slog.Warn("Warm decoder fault, dropping preload", "uri", e.warmURI, "error", ev.Err)
		e.recorder.ObserveDecoderFault("warm")
		e.warmURI = ""
		e.warmReady = false
	}
}

func (e *Engine) onFocusEvent(ctx context.Context, fe FocusEvent) {
	slog.Debug("Focus event", "event", fe)
	e.recorder.ObserveFocusEvent(string(fe))

	switch fe {
	case FocusLoss:
		// Permanent loss is a full stop: queue gone, state back to defaults.
		if e.playing {
			e.recordPlay(ctx, e.queue.Current(), false)
		}
		e.restoreVolume(ctx)
		e.queue.Clear()
		_ = e.stopLocked(ctx)
	case FocusLossTransient:
		if e.playing {
			_ = e.active.Pause(ctx)
			e.playing = false
			e.pausedByFocus = true
		}
	case FocusLossTransientCanDuck:
		if e.playing && !e.ducked {
			e.ducked = true
			_ = e.active.SetVolume(ctx, e.cfg.Get().Playback.DuckVolume)
		}
	case FocusGain:
		e.restoreVolume(ctx)
		if e.pausedByFocus {
			e.pausedByFocus = false
			if err := e.active.Play(ctx); err == nil {
				e.playing = true
			}
		}
	}
	e.publish()
}

func (e *Engine) restoreVolume(ctx context.Context) {
	if e.ducked {
		e.ducked = false
		_ = e.active.SetVolume(ctx, e.volume)
	}
}

// ensureFocus requests the focus line when not held. Denial fails closed.
func (e *Engine) ensureFocus(ctx context.Context) error {
	if e.focusHeld {
		return nil
	}
	granted, err := e.focus.Request(ctx)
	if err != nil {
		return err
	}
	if !granted {
		e.recorder.ObserveFocusEvent("denied")
		return ErrFocusDenied
	}
	e.focusHeld = true
	return nil
}

// failActive surfaces an active decoder failure as a categorized player
// error and halts playback.
func (e *Engine) failActive(err error) error {
	playerErr := categorize(err)
	slog.Error("Active decoder failed", "category", playerErr.Category, "error", playerErr.Message)
	e.recorder.ObserveDecoderFault("active")
	e.recorder.ObservePlaybackError(string(playerErr.Category))
	e.lastError = playerErr
	e.playing = false
	e.buffering = false
	e.publish()
	return playerErr
}

// categorize maps an arbitrary decoder error into the closed error set.
func categorize(err error) *PlayerError {
	var playerErr *PlayerError
	if errors.As(err, &playerErr) {
		return playerErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &PlayerError{Category: ErrorNetwork, Message: err.Error()}
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return &PlayerError{Category: ErrorSource, Message: err.Error()}
	}
	return &PlayerError{Category: ErrorDecoder, Message: err.Error()}
}

// restoreModes seeds shuffle and repeat from the persisted preferences. Runs
// on the run loop before the first select, so no call can race it.
func (e *Engine) restoreModes(ctx context.Context) {
	if e.prefs == nil {
		return
	}
	if raw, err := e.prefs.GetPref(ctx, repeatPrefKey); err == nil {
		switch mode := RepeatMode(raw); mode {
		case RepeatOff, RepeatAll, RepeatOne:
			e.repeat = mode
		}
	}
	if raw, err := e.prefs.GetPref(ctx, shufflePrefKey); err == nil {
		if on, err := strconv.ParseBool(raw); err == nil {
			e.queue.SetShuffle(on)
		}
	}
	e.publish()
}

func (e *Engine) savePref(key, value string) {
	if e.prefs == nil {
		return
	}
	if err := e.prefs.SetPref(context.Background(), key, value); err != nil {
		slog.Warn("Failed to persist playback preference", "key", key, "error", err)
	}
}

// recordPlay writes a history row for the track that just stopped playing.
func (e *Engine) recordPlay(ctx context.Context, track *music.Track, completed bool) {
	if track == nil || e.history == nil || e.playedMs <= 0 {
		return
	}
	event := &music.PlayEvent{
		TrackID:        track.ID,
		PlayedAt:       time.Now(),
		PlayedDuration: e.playedMs,
		Completed:      completed,
	}
	if err := e.history.RecordPlay(ctx, event); err != nil {
		slog.Warn("Failed to record play", "trackID", track.ID, "error", err)
	}
}

func (e *Engine) publish() {
	e.state.set(State{
		Track:      e.queue.Current(),
		Playing:    e.playing,
		PositionMs: e.positionMs,
		DurationMs: e.durationMs,
		Buffering:  e.buffering,
		Shuffled:   e.queue.Shuffled(),
		Repeat:     e.repeat,
		QueueIndex: e.queue.Index(),
		QueueLen:   e.queue.Len(),
		Volume:     e.volume,
		Ducked:     e.ducked,
		Error:      e.lastError,
	})
}
