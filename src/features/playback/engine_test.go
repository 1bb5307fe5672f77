package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zjarhdgkrwk-lang/stack/src/features/config"
)

// FakeDecoder is a scriptable Decoder for engine tests.
type FakeDecoder struct {
	mu       sync.Mutex
	events   chan Event
	uri      string
	playing  bool
	position int64
	duration int64
	volume   float64
	loads    int
	plays    int
	stops    int
	loadErr  error
}

func NewFakeDecoder() *FakeDecoder {
	return &FakeDecoder{events: make(chan Event, 16), volume: 1.0}
}

func (d *FakeDecoder) Load(ctx context.Context, uri string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loadErr != nil {
		return d.loadErr
	}
	d.uri = uri
	d.loads++
	d.position = 0
	d.events <- Event{Kind: EventPrepared}
	return nil
}

func (d *FakeDecoder) Play(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = true
	d.plays++
	return nil
}

func (d *FakeDecoder) Pause(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
	return nil
}

func (d *FakeDecoder) Seek(ctx context.Context, positionMs int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.position = positionMs
	return nil
}

func (d *FakeDecoder) Position(ctx context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position, nil
}

func (d *FakeDecoder) Duration(ctx context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duration, nil
}

func (d *FakeDecoder) SetVolume(ctx context.Context, volume float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = volume
	return nil
}

func (d *FakeDecoder) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
	d.uri = ""
	d.stops++
	return nil
}

func (d *FakeDecoder) Release() error       { return nil }
func (d *FakeDecoder) Events() <-chan Event { return d.events }
func (d *FakeDecoder) emitEnded()           { d.events <- Event{Kind: EventEnded} }

func (d *FakeDecoder) emitFault(e *PlayerError) {
	d.events <- Event{Kind: EventFault, Err: e}
}

func (d *FakeDecoder) setProgress(position, duration int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.position = position
	d.duration = duration
}

func (d *FakeDecoder) loadCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loads
}

func (d *FakeDecoder) playCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.plays
}

func (d *FakeDecoder) loadedURI() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uri
}

func (d *FakeDecoder) currentVolume() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

// FakeFocus is a scriptable FocusLine.
type FakeFocus struct {
	mu       sync.Mutex
	grant    bool
	events   chan FocusEvent
	requests int
	abandons int
}

func NewFakeFocus(grant bool) *FakeFocus {
	return &FakeFocus{grant: grant, events: make(chan FocusEvent, 4)}
}

func (f *FakeFocus) Request(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return f.grant, nil
}

func (f *FakeFocus) Abandon(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandons++
	return nil
}

func (f *FakeFocus) Events() <-chan FocusEvent { return f.events }

// FakePrefs is an in-memory preferences store.
type FakePrefs struct {
	mu     sync.Mutex
	values map[string]string
}

func NewFakePrefs() *FakePrefs {
	return &FakePrefs{values: make(map[string]string)}
}

func (p *FakePrefs) GetPref(ctx context.Context, key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.values[key]; ok {
		return v, nil
	}
	return "", errors.New("preference not set")
}

func (p *FakePrefs) SetPref(ctx context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return nil
}

func (p *FakePrefs) get(key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[key]
}

func playbackConfig() *config.Manager {
	return config.NewManager(&config.Config{
		Playback: config.Playback{
			PollIntervalMs:      10,
			PreloadThreshold:    0.80,
			DuckVolume:          0.2,
			PreviousThresholdMs: 3000,
		},
	})
}

type engineFixture struct {
	engine *Engine
	active *FakeDecoder
	warm   *FakeDecoder
	focus  *FakeFocus
	prefs  *FakePrefs
}

func newEngineFixture(t *testing.T, grantFocus bool) *engineFixture {
	return newEngineFixtureWithPrefs(t, grantFocus, NewFakePrefs())
}

func newEngineFixtureWithPrefs(t *testing.T, grantFocus bool, prefs *FakePrefs) *engineFixture {
	t.Helper()
	active := NewFakeDecoder()
	warm := NewFakeDecoder()
	focus := NewFakeFocus(grantFocus)
	engine := NewEngine(active, warm, focus, nil, prefs, playbackConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	engine.Start(ctx)

	return &engineFixture{engine: engine, active: active, warm: warm, focus: focus, prefs: prefs}
}

func waitForState(t *testing.T, e *Engine, pred func(State) bool) State {
	t.Helper()
	var last State
	require.Eventually(t, func() bool {
		last = e.State()
		return pred(last)
	}, 2*time.Second, 2*time.Millisecond, "timed out waiting for state, last: %+v", last)
	return last
}

func TestEngine_PlayStartsActiveDecoder(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(3)

	require.NoError(t, f.engine.PlayTracks(tracks, 0))

	state := waitForState(t, f.engine, func(s State) bool { return s.Playing && !s.Buffering })
	assert.Equal(t, tracks[0].ID, state.Track.ID)
	assert.Equal(t, tracks[0].ContentURI, f.active.loadedURI())
	assert.GreaterOrEqual(t, f.active.playCount(), 1)
	assert.Equal(t, 3, state.QueueLen)
}

func TestEngine_PlayOnEmptyQueue(t *testing.T) {
	f := newEngineFixture(t, true)
	assert.ErrorIs(t, f.engine.PlayTracks(nil, 0), ErrQueueEmpty)
	assert.ErrorIs(t, f.engine.Resume(), ErrQueueEmpty)
}

func TestEngine_FocusDenialFailsClosed(t *testing.T) {
	f := newEngineFixture(t, false)

	err := f.engine.PlayTracks(makeTracks(2), 0)
	assert.ErrorIs(t, err, ErrFocusDenied)
	assert.False(t, f.engine.State().Playing)
	assert.Equal(t, 0, f.active.playCount())
}

func TestEngine_PreloadTriggersOnceAtThreshold(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(2)
	require.NoError(t, f.engine.PlayTracks(tracks, 0))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })

	// Below the threshold nothing warms up.
	f.active.setProgress(70_000, 100_000)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, f.warm.loadCount())

	// Crossing 80% loads the next track into the warm decoder.
	f.active.setProgress(85_000, 100_000)
	require.Eventually(t, func() bool { return f.warm.loadCount() == 1 }, time.Second, 2*time.Millisecond)
	assert.Equal(t, tracks[1].ContentURI, f.warm.loadedURI())

	// The trigger is one-shot: seeking back and crossing again stays quiet.
	require.NoError(t, f.engine.SeekTo(10_000))
	f.active.setProgress(10_000, 100_000)
	time.Sleep(50 * time.Millisecond)
	f.active.setProgress(95_000, 100_000)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.warm.loadCount())
}

func TestEngine_GaplessSwapOnEnded(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(2)
	require.NoError(t, f.engine.PlayTracks(tracks, 0))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })

	f.active.setProgress(85_000, 100_000)
	require.Eventually(t, func() bool { return f.warm.loadCount() == 1 }, time.Second, 2*time.Millisecond)

	f.active.emitEnded()

	state := waitForState(t, f.engine, func(s State) bool {
		return s.Track != nil && s.Track.ID == tracks[1].ID && s.Playing
	})
	assert.Equal(t, 1, state.QueueIndex)
	// The warm decoder was promoted, not reloaded.
	assert.Equal(t, 1, f.warm.loadCount())
	assert.GreaterOrEqual(t, f.warm.playCount(), 1)
}

func TestEngine_EndedWithoutPreloadColdLoads(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(2)
	require.NoError(t, f.engine.PlayTracks(tracks, 0))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })
	f.active.setProgress(30_000, 100_000)

	f.active.emitEnded()

	waitForState(t, f.engine, func(s State) bool {
		return s.Track != nil && s.Track.ID == tracks[1].ID && s.Playing
	})
	assert.Equal(t, 2, f.active.loadCount(), "no warm track means a cold load on the active decoder")
	assert.Equal(t, 0, f.warm.loadCount())
}

func TestEngine_EndOfQueueStops(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(2)
	require.NoError(t, f.engine.PlayTracks(tracks, 1))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })
	f.active.setProgress(50_000, 100_000)

	f.active.emitEnded()

	state := waitForState(t, f.engine, func(s State) bool { return !s.Playing })
	assert.Equal(t, int64(0), state.PositionMs)
	assert.Nil(t, state.Error)
}

func TestEngine_RepeatAllWrapsAround(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(2)
	require.NoError(t, f.engine.PlayTracks(tracks, 1))
	require.NoError(t, f.engine.SetRepeat(RepeatAll))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })
	f.active.setProgress(50_000, 100_000)

	f.active.emitEnded()

	state := waitForState(t, f.engine, func(s State) bool {
		return s.Track != nil && s.Track.ID == tracks[0].ID && s.Playing
	})
	assert.Equal(t, 0, state.QueueIndex)
}

func TestEngine_RepeatOneReplaysCurrentTrack(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(2)
	require.NoError(t, f.engine.PlayTracks(tracks, 0))
	require.NoError(t, f.engine.SetRepeat(RepeatOne))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })
	f.active.setProgress(50_000, 100_000)
	plays := f.active.playCount()

	f.active.emitEnded()

	waitForState(t, f.engine, func(s State) bool {
		return s.Playing && s.Track.ID == tracks[0].ID
	})
	require.Eventually(t, func() bool { return f.active.playCount() > plays }, time.Second, 2*time.Millisecond)
	assert.Equal(t, 1, f.active.loadCount(), "repeat one replays without reloading")
	assert.Equal(t, 0, f.engine.State().QueueIndex)
}

func TestEngine_ManualSkipIgnoresRepeatOne(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(2)
	require.NoError(t, f.engine.PlayTracks(tracks, 0))
	require.NoError(t, f.engine.SetRepeat(RepeatOne))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })

	require.NoError(t, f.engine.SkipToNext())

	waitForState(t, f.engine, func(s State) bool {
		return s.Track != nil && s.Track.ID == tracks[1].ID
	})
}

func TestEngine_SkipToPreviousRestartsPastThreshold(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(3)
	require.NoError(t, f.engine.PlayTracks(tracks, 1))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })

	// Past the threshold the current track restarts.
	f.active.setProgress(5_000, 100_000)
	waitForState(t, f.engine, func(s State) bool { return s.PositionMs == 5_000 })

	require.NoError(t, f.engine.SkipToPrevious())

	state := f.engine.State()
	assert.Equal(t, tracks[1].ID, state.Track.ID, "same track after a late previous")
	assert.Equal(t, int64(0), state.PositionMs)
}

func TestEngine_SkipToPreviousMovesBackEarly(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(3)
	require.NoError(t, f.engine.PlayTracks(tracks, 1))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })

	f.active.setProgress(1_000, 100_000)
	waitForState(t, f.engine, func(s State) bool { return s.PositionMs == 1_000 })

	require.NoError(t, f.engine.SkipToPrevious())

	waitForState(t, f.engine, func(s State) bool {
		return s.Track != nil && s.Track.ID == tracks[0].ID
	})
}

func TestEngine_SkipToPreviousAtHeadRestarts(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(3)
	require.NoError(t, f.engine.PlayTracks(tracks, 0))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })

	f.active.setProgress(1_000, 100_000)
	waitForState(t, f.engine, func(s State) bool { return s.PositionMs == 1_000 })

	require.NoError(t, f.engine.SkipToPrevious())

	state := f.engine.State()
	assert.Equal(t, tracks[0].ID, state.Track.ID)
	assert.Equal(t, int64(0), state.PositionMs)
}

func TestEngine_TransientLossPausesAndGainResumes(t *testing.T) {
	f := newEngineFixture(t, true)
	require.NoError(t, f.engine.PlayTracks(makeTracks(2), 0))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })

	f.focus.events <- FocusLossTransient
	waitForState(t, f.engine, func(s State) bool { return !s.Playing })

	f.focus.events <- FocusGain
	waitForState(t, f.engine, func(s State) bool { return s.Playing })
}

func TestEngine_PermanentLossDoesNotResume(t *testing.T) {
	f := newEngineFixture(t, true)
	require.NoError(t, f.engine.PlayTracks(makeTracks(2), 0))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })

	f.focus.events <- FocusLoss
	state := waitForState(t, f.engine, func(s State) bool { return !s.Playing })
	assert.Nil(t, state.Track, "a permanent loss stops playback outright")
	assert.Equal(t, 0, state.QueueLen)
	assert.Equal(t, int64(0), state.PositionMs)
	f.focus.mu.Lock()
	abandons := f.focus.abandons
	f.focus.mu.Unlock()
	assert.Equal(t, 1, abandons)

	f.focus.events <- FocusGain
	time.Sleep(50 * time.Millisecond)
	assert.False(t, f.engine.State().Playing, "a permanent loss must not auto-resume on gain")
}

func TestEngine_DuckLowersVolumeAndGainRestoresIt(t *testing.T) {
	f := newEngineFixture(t, true)
	require.NoError(t, f.engine.PlayTracks(makeTracks(2), 0))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })

	f.focus.events <- FocusLossTransientCanDuck
	waitForState(t, f.engine, func(s State) bool { return s.Ducked })
	assert.InDelta(t, 0.2, f.active.currentVolume(), 0.001)
	assert.True(t, f.engine.State().Playing, "ducking keeps playback running")

	f.focus.events <- FocusGain
	waitForState(t, f.engine, func(s State) bool { return !s.Ducked })
	assert.InDelta(t, 1.0, f.active.currentVolume(), 0.001)
}

func TestEngine_DecoderFaultSurfacesCategorizedError(t *testing.T) {
	f := newEngineFixture(t, true)
	require.NoError(t, f.engine.PlayTracks(makeTracks(2), 0))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })

	f.active.emitFault(&PlayerError{Category: ErrorSource, Message: "file vanished"})

	state := waitForState(t, f.engine, func(s State) bool { return s.Error != nil })
	assert.Equal(t, ErrorSource, state.Error.Category)
	assert.False(t, state.Playing)
}

func TestEngine_WarmFaultDropsPreloadQuietly(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(2)
	require.NoError(t, f.engine.PlayTracks(tracks, 0))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })

	f.active.setProgress(85_000, 100_000)
	require.Eventually(t, func() bool { return f.warm.loadCount() == 1 }, time.Second, 2*time.Millisecond)

	f.warm.emitFault(&PlayerError{Category: ErrorDecoder, Message: "bad stream"})
	time.Sleep(30 * time.Millisecond)
	assert.Nil(t, f.engine.State().Error, "a warm fault never surfaces to the listener")
	assert.True(t, f.engine.State().Playing)

	// The next transition falls back to a cold load.
	f.active.emitEnded()
	waitForState(t, f.engine, func(s State) bool {
		return s.Track != nil && s.Track.ID == tracks[1].ID
	})
	assert.Equal(t, 2, f.active.loadCount())
}

func TestEngine_StopClearsQueueAndAbandonsFocus(t *testing.T) {
	f := newEngineFixture(t, true)
	require.NoError(t, f.engine.PlayTracks(makeTracks(2), 0))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })

	require.NoError(t, f.engine.Stop())

	state := f.engine.State()
	assert.False(t, state.Playing)
	assert.Nil(t, state.Track)
	assert.Equal(t, 0, state.QueueLen)
	f.focus.mu.Lock()
	defer f.focus.mu.Unlock()
	assert.Equal(t, 1, f.focus.abandons)
}

func TestEngine_SkipToPreviousAtExactThresholdMovesBack(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(3)
	require.NoError(t, f.engine.PlayTracks(tracks, 1))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })

	// Exactly at the threshold the skip still moves back; only strictly past
	// it does the current track restart.
	f.active.setProgress(3_000, 100_000)
	waitForState(t, f.engine, func(s State) bool { return s.PositionMs == 3_000 })

	require.NoError(t, f.engine.SkipToPrevious())

	waitForState(t, f.engine, func(s State) bool {
		return s.Track != nil && s.Track.ID == tracks[0].ID
	})
}

func TestEngine_PausedEngineStopsPolling(t *testing.T) {
	f := newEngineFixture(t, true)
	require.NoError(t, f.engine.PlayTracks(makeTracks(2), 0))
	waitForState(t, f.engine, func(s State) bool { return s.Playing })
	f.active.setProgress(5_000, 100_000)
	waitForState(t, f.engine, func(s State) bool { return s.PositionMs == 5_000 })

	require.NoError(t, f.engine.Pause())

	// Decoder movement while paused never reaches the published state.
	f.active.setProgress(9_000, 100_000)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(5_000), f.engine.State().PositionMs)

	require.NoError(t, f.engine.Resume())
	waitForState(t, f.engine, func(s State) bool { return s.PositionMs == 9_000 })
}

func TestEngine_ModesPersistAndRestore(t *testing.T) {
	prefs := NewFakePrefs()
	f := newEngineFixtureWithPrefs(t, true, prefs)

	require.NoError(t, f.engine.SetRepeat(RepeatAll))
	require.NoError(t, f.engine.SetShuffle(true))
	assert.Equal(t, "ALL", prefs.get("playback.repeat"))
	assert.Equal(t, "true", prefs.get("playback.shuffle"))

	// A fresh engine over the same store comes up with the saved modes.
	g := newEngineFixtureWithPrefs(t, true, prefs)
	state := waitForState(t, g.engine, func(s State) bool {
		return s.Repeat == RepeatAll && s.Shuffled
	})
	assert.Equal(t, RepeatAll, state.Repeat)
	assert.True(t, state.Shuffled)
}

func TestEngine_ShuffleStatePropagates(t *testing.T) {
	f := newEngineFixture(t, true)
	tracks := makeTracks(10)
	require.NoError(t, f.engine.PlayTracks(tracks, 4))

	require.NoError(t, f.engine.SetShuffle(true))
	state := f.engine.State()
	assert.True(t, state.Shuffled)
	assert.Equal(t, tracks[4].ID, state.Track.ID, "current track survives shuffling")
	assert.Equal(t, 0, state.QueueIndex)

	require.NoError(t, f.engine.SetShuffle(false))
	state = f.engine.State()
	assert.False(t, state.Shuffled)
	assert.Equal(t, tracks[4].ID, state.Track.ID)
	assert.Equal(t, 4, state.QueueIndex)
}
