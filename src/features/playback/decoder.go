package playback

import "context"

// EventKind is the kind of a decoder event.
type EventKind string

const (
	// EventPrepared fires when a loaded source is ready to play.
	EventPrepared EventKind = "prepared"
	// EventEnded fires when the current source played to its end.
	EventEnded EventKind = "ended"
	// EventFault fires when the decoder failed; Err carries the category.
	EventFault EventKind = "fault"
)

// Event is an asynchronous decoder notification.
type Event struct {
	Kind EventKind
	Err  *PlayerError
}

// Decoder is one playback pipeline. The engine always owns two: the active
// one that is audible and a warm one holding the preloaded next track.
// Asynchronous outcomes (prepared, ended, faults) arrive on Events; all
// methods are called from the engine's run loop only.
type Decoder interface {
	// Load replaces the decoder's source. Readiness is signalled by an
	// EventPrepared on Events.
	Load(ctx context.Context, uri string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, positionMs int64) error
	// Position returns the current position in ms, 0 when nothing is loaded.
	Position(ctx context.Context) (int64, error)
	// Duration returns the source duration in ms, 0 when unknown.
	Duration(ctx context.Context) (int64, error)
	SetVolume(ctx context.Context, volume float64) error
	// Stop halts playback and drops the loaded source.
	Stop(ctx context.Context) error
	// Release frees the decoder. No method may be called afterwards.
	Release() error
	Events() <-chan Event
}
