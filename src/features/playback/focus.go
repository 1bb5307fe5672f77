package playback

import "context"

// FocusEvent is one audio focus arbitration signal.
type FocusEvent string

const (
	// FocusGain restores full playback after a transient interruption.
	FocusGain FocusEvent = "gain"
	// FocusLoss takes the output away permanently; playback pauses and the
	// line is abandoned.
	FocusLoss FocusEvent = "loss"
	// FocusLossTransient pauses playback until FocusGain arrives.
	FocusLossTransient FocusEvent = "loss_transient"
	// FocusLossTransientCanDuck lowers the volume instead of pausing.
	FocusLossTransientCanDuck FocusEvent = "loss_transient_can_duck"
)

// FocusLine is the shared-output arbiter. Playback must hold the line before
// producing audio: Request is called before every start or resume and a
// denial keeps the player paused.
type FocusLine interface {
	// Request asks for the line. It returns false when another consumer
	// refuses to yield.
	Request(ctx context.Context) (bool, error)
	// Abandon gives the line up voluntarily.
	Abandon(ctx context.Context) error
	// Events delivers interruptions for as long as the line is held.
	Events() <-chan FocusEvent
}

// openFocusLine is a FocusLine that always grants and never interrupts, for
// hosts without an arbiter.
type openFocusLine struct {
	events chan FocusEvent
}

// NewOpenFocusLine returns a FocusLine that always grants the line.
func NewOpenFocusLine() FocusLine {
	return &openFocusLine{events: make(chan FocusEvent)}
}

func (f *openFocusLine) Request(ctx context.Context) (bool, error) { return true, nil }
func (f *openFocusLine) Abandon(ctx context.Context) error         { return nil }
func (f *openFocusLine) Events() <-chan FocusEvent                 { return f.events }
