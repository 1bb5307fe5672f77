package playback

import (
	"sync"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// RepeatMode controls what happens when the queue runs out.
type RepeatMode string

const (
	RepeatOff RepeatMode = "OFF"
	RepeatAll RepeatMode = "ALL"
	RepeatOne RepeatMode = "ONE"
)

// ErrorCategory is the closed set of playback error kinds surfaced to
// clients. Anything a decoder reports maps into one of these.
type ErrorCategory string

const (
	ErrorNetwork ErrorCategory = "NetworkError"
	ErrorDecoder ErrorCategory = "DecoderError"
	ErrorSource  ErrorCategory = "SourceError"
)

// PlayerError is a surfaced playback failure.
type PlayerError struct {
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`
}

func (e *PlayerError) Error() string {
	return string(e.Category) + ": " + e.Message
}

// State is the observable player state snapshot.
type State struct {
	Track      *music.Track `json:"track,omitempty"`
	Playing    bool         `json:"playing"`
	PositionMs int64        `json:"position_ms"`
	DurationMs int64        `json:"duration_ms"`
	Buffering  bool         `json:"buffering"`
	Shuffled   bool         `json:"shuffled"`
	Repeat     RepeatMode   `json:"repeat"`
	QueueIndex int          `json:"queue_index"`
	QueueLen   int          `json:"queue_len"`
	Volume     float64      `json:"volume"`
	Ducked     bool         `json:"ducked"`
	Error      *PlayerError `json:"error,omitempty"`
}

// statePublisher fans player state out to subscribers with latest-value
// replay, same contract as the scan publisher.
type statePublisher struct {
	mu    sync.Mutex
	state State
	subs  map[int]chan State
	next  int
}

func newStatePublisher() *statePublisher {
	return &statePublisher{
		state: State{Repeat: RepeatOff, Volume: 1.0, QueueIndex: -1},
		subs:  make(map[int]chan State),
	}
}

func (p *statePublisher) get() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *statePublisher) set(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (p *statePublisher) subscribe() (<-chan State, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.next
	p.next++
	ch := make(chan State, 1)
	ch <- p.state
	p.subs[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
	return ch, cancel
}
