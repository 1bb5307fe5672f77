package playback

import (
	"math/rand"
	"time"

	"github.com/zjarhdgkrwk-lang/stack/src/music"
)

// Queue holds the play order. The canonical order the queue was built with
// is never lost: shuffle permutes a view over it, and disabling shuffle
// returns to the canonical order with the cursor still on the same track.
//
// Queue is not safe for concurrent use; the engine confines it to its run
// loop.
type Queue struct {
	canonical []*music.Track
	order     []int // play order, indices into canonical
	pos       int   // cursor into order, -1 when empty
	shuffled  bool
	rng       *rand.Rand
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		pos: -1,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetTracks replaces the queue contents and puts the cursor on startIndex
// (canonical position). Shuffle state is preserved: a shuffled queue
// reshuffles around the new start track.
func (q *Queue) SetTracks(tracks []*music.Track, startIndex int) {
	q.canonical = append([]*music.Track(nil), tracks...)
	q.order = make([]int, len(q.canonical))
	for i := range q.order {
		q.order[i] = i
	}
	if len(q.canonical) == 0 {
		q.pos = -1
		return
	}
	if startIndex < 0 || startIndex >= len(q.canonical) {
		startIndex = 0
	}
	q.pos = startIndex
	if q.shuffled {
		q.reshuffle()
	}
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int { return len(q.order) }

// IsEmpty reports whether the queue holds no tracks.
func (q *Queue) IsEmpty() bool { return len(q.order) == 0 }

// Index returns the cursor position in the current play order, -1 when
// empty.
func (q *Queue) Index() int { return q.pos }

// Current returns the track under the cursor, nil when empty.
func (q *Queue) Current() *music.Track {
	if q.pos < 0 || q.pos >= len(q.order) {
		return nil
	}
	return q.canonical[q.order[q.pos]]
}

// Shuffled reports whether shuffle is on.
func (q *Queue) Shuffled() bool { return q.shuffled }

// SetShuffle toggles shuffle. Enabling moves the current track to the front
// of a fresh Fisher-Yates permutation; disabling restores canonical order
// with the cursor back on the current track's canonical position.
func (q *Queue) SetShuffle(on bool) {
	if on == q.shuffled {
		return
	}
	q.shuffled = on

	if q.IsEmpty() {
		return
	}

	if on {
		q.reshuffle()
		return
	}

	current := q.order[q.pos]
	q.order = make([]int, len(q.canonical))
	for i := range q.order {
		q.order[i] = i
	}
	q.pos = current
}

// reshuffle rebuilds the play order: current track first, the rest
// Fisher-Yates shuffled behind it.
func (q *Queue) reshuffle() {
	current := q.order[q.pos]
	rest := make([]int, 0, len(q.canonical)-1)
	for i := range q.canonical {
		if i != current {
			rest = append(rest, i)
		}
	}
	q.rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	q.order = append([]int{current}, rest...)
	q.pos = 0
}

// Next advances the cursor and returns the new current track. At the end of
// the queue it returns nil and leaves the cursor in place; repeat handling
// belongs to the engine.
func (q *Queue) Next() *music.Track {
	if q.pos < 0 || q.pos+1 >= len(q.order) {
		return nil
	}
	q.pos++
	return q.Current()
}

// Previous moves the cursor back and returns the new current track, or nil
// at the head of the queue.
func (q *Queue) Previous() *music.Track {
	if q.pos <= 0 {
		return nil
	}
	q.pos--
	return q.Current()
}

// PeekNext returns the track that would play after the current one under the
// given repeat mode, without moving the cursor. Returns nil when playback
// would stop.
func (q *Queue) PeekNext(repeat RepeatMode) *music.Track {
	if q.IsEmpty() {
		return nil
	}
	if repeat == RepeatOne {
		return q.Current()
	}
	if q.pos+1 < len(q.order) {
		return q.canonical[q.order[q.pos+1]]
	}
	if repeat == RepeatAll {
		return q.canonical[q.order[0]]
	}
	return nil
}

// JumpTo puts the cursor on the given play-order position.
func (q *Queue) JumpTo(index int) *music.Track {
	if index < 0 || index >= len(q.order) {
		return nil
	}
	q.pos = index
	return q.Current()
}

// Rewind puts the cursor back on the first track of the play order.
func (q *Queue) Rewind() *music.Track {
	if q.IsEmpty() {
		return nil
	}
	q.pos = 0
	return q.Current()
}

// Add appends a track to the end of both orders.
func (q *Queue) Add(track *music.Track) {
	q.canonical = append(q.canonical, track)
	q.order = append(q.order, len(q.canonical)-1)
	if q.pos < 0 {
		q.pos = 0
	}
}

// InsertNext places a track immediately after the cursor in the play order
// (and after the current track's canonical position in canonical order).
func (q *Queue) InsertNext(track *music.Track) {
	if q.IsEmpty() {
		q.Add(track)
		return
	}

	canonicalPos := q.order[q.pos] + 1
	q.canonical = append(q.canonical, nil)
	copy(q.canonical[canonicalPos+1:], q.canonical[canonicalPos:])
	q.canonical[canonicalPos] = track

	// Canonical indices at or past the insertion point shift by one.
	for i, idx := range q.order {
		if idx >= canonicalPos {
			q.order[i] = idx + 1
		}
	}

	q.order = append(q.order, 0)
	copy(q.order[q.pos+2:], q.order[q.pos+1:])
	q.order[q.pos+1] = canonicalPos
}

// RemoveAt removes the track at the given play-order position. Removing a
// track before the cursor shifts the cursor back; removing the current track
// leaves the cursor pointing at what was the next track.
func (q *Queue) RemoveAt(index int) *music.Track {
	if index < 0 || index >= len(q.order) {
		return nil
	}

	canonicalPos := q.order[index]
	removed := q.canonical[canonicalPos]

	q.canonical = append(q.canonical[:canonicalPos], q.canonical[canonicalPos+1:]...)
	q.order = append(q.order[:index], q.order[index+1:]...)
	for i, idx := range q.order {
		if idx > canonicalPos {
			q.order[i] = idx - 1
		}
	}

	if q.IsEmpty() {
		q.pos = -1
	} else if index < q.pos {
		q.pos--
	} else if q.pos >= len(q.order) {
		q.pos = len(q.order) - 1
	}
	return removed
}

// Tracks returns the tracks in play order.
func (q *Queue) Tracks() []*music.Track {
	out := make([]*music.Track, len(q.order))
	for i, idx := range q.order {
		out[i] = q.canonical[idx]
	}
	return out
}

// CanonicalTracks returns the tracks in the order the queue was built with.
func (q *Queue) CanonicalTracks() []*music.Track {
	return append([]*music.Track(nil), q.canonical...)
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.canonical = nil
	q.order = nil
	q.pos = -1
}
