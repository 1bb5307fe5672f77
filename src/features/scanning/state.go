package scanning

import "sync"

// Phase is the coarse state of the scan coordinator.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseScanning  Phase = "scanning"
	PhaseCompleted Phase = "completed"
	PhaseError     Phase = "error"
)

// State is the observable scan state. Exactly one phase is set; the other
// fields are meaningful only for their phase.
type State struct {
	Phase Phase `json:"phase"`

	// Scanning
	Progress     float64 `json:"progress,omitempty"`
	Label        string  `json:"label,omitempty"`
	ScannedCount int     `json:"scanned_count,omitempty"`
	TotalCount   int     `json:"total_count,omitempty"`

	// Completed
	Added      int   `json:"added,omitempty"`
	Updated    int   `json:"updated,omitempty"`
	Removed    int   `json:"removed,omitempty"`
	DurationMs int64 `json:"duration_ms,omitempty"`

	// Error
	Message string `json:"message,omitempty"`
}

// Idle is the resting state.
func Idle() State { return State{Phase: PhaseIdle} }

// publisher fans state changes out to subscribers. A new subscriber
// immediately receives the latest value; slow subscribers lose intermediate
// values, never the newest one.
type publisher struct {
	mu    sync.Mutex
	state State
	subs  map[int]chan State
	next  int
}

func newPublisher() *publisher {
	return &publisher{
		state: Idle(),
		subs:  make(map[int]chan State),
	}
}

func (p *publisher) get() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *publisher) set(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
	for _, ch := range p.subs {
		// Drop the stale buffered value so the send below never blocks.
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (p *publisher) subscribe() (<-chan State, func()) {
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
