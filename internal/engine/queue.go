package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/arena/internal/event"
)

// Queue limits.
const (
	// MaxQueueSize is the number of pending events beyond which new
	// non-critical events are refused.
	MaxQueueSize = 256

	// MaxEventStack is how many ticks a non-critical event may wait before
	// it is considered stale and pruned undelivered.
	MaxEventStack = 2
)

// ErrQueueFull is returned when a non-critical event is refused because the
// queue is at capacity. Critical events are never refused.
var ErrQueueFull = errors.New("event queue full")

// Queue is one agent's pending events, kept sorted by event.Compare.
//
// Add stamps the event with the enqueue tick and a sequence number and
// freezes it. Equal events keep insertion order.
//
// Thread-safety: all methods lock. In practice only the owning agent's
// goroutine touches a Queue.
type Queue struct {
	mu     sync.Mutex
	events []*event.Event
	seq    uint64
	limit  int
}

// NewQueue creates an empty queue. A limit of 0 or less means MaxQueueSize.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = MaxQueueSize
	}
	return &Queue{
		events: make([]*event.Event, 0, 32),
		limit:  limit,
	}
}

// Add freezes e at tick and inserts it in delivery order.
//
// When the queue is at capacity, stale non-critical events are pruned first;
// if it is still full a non-critical e is refused with ErrQueueFull. The
// pruned events are returned so callers can account for them.
func (q *Queue) Add(e *event.Event, tick int64) ([]*event.Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var pruned []*event.Event
	if len(q.events) >= q.limit && !e.IsCritical() {
		pruned = q.pruneLocked(tick - MaxEventStack)
		if len(q.events) >= q.limit {
			return pruned, fmt.Errorf("add %s at tick %d: %w", e.Kind(), tick, ErrQueueFull)
		}
	}

	if err := e.Freeze(tick, q.seq+1); err != nil {
		return pruned, err
	}
	q.seq++

	i := sort.Search(len(q.events), func(i int) bool {
		return event.Less(e, q.events[i])
	})
	q.events = append(q.events, nil)
	copy(q.events[i+1:], q.events[i:])
	q.events[i] = e
	return pruned, nil
}

// Peek returns the next event to deliver without removing it.
func (q *Queue) Peek() *event.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	return q.events[0]
}

// Remove deletes e from the queue. Returns false if e is not queued.
func (q *Queue) Remove(e *event.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, queued := range q.events {
		if queued == e {
			q.removeAt(i)
			return true
		}
	}
	return false
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// All returns a snapshot of the pending events in delivery order.
func (q *Queue) All() []*event.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*event.Event, len(q.events))
	copy(out, q.events)
	return out
}

// Filter returns the pending events of kind k in delivery order.
func (q *Queue) Filter(k event.Kind) []*event.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*event.Event
	for _, e := range q.events {
		if e.Kind() == k {
			out = append(out, e)
		}
	}
	return out
}

// Clear removes pending events. Critical events survive unless
// includeCritical is set. Returns the number removed.
func (q *Queue) Clear(includeCritical bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if includeCritical {
		n := len(q.events)
		clear(q.events)
		q.events = q.events[:0]
		return n
	}
	kept := q.events[:0]
	for _, e := range q.events {
		if e.IsCritical() {
			kept = append(kept, e)
		}
	}
	n := len(q.events) - len(kept)
	clear(q.events[len(kept):])
	q.events = kept
	return n
}

// PruneThrough removes non-critical events with time <= tick and returns
// them.
func (q *Queue) PruneThrough(tick int64) []*event.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pruneLocked(tick)
}

func (q *Queue) pruneLocked(tick int64) []*event.Event {
	var pruned []*event.Event
	kept := q.events[:0]
	for _, e := range q.events {
		if !e.IsCritical() && e.Time() <= tick {
			pruned = append(pruned, e)
			continue
		}
		kept = append(kept, e)
	}
	clear(q.events[len(kept):])
	q.events = kept
	return pruned
}

func (q *Queue) removeAt(i int) {
	copy(q.events[i:], q.events[i+1:])
	// Drop the trailing pointer so the event can be collected.
	q.events[len(q.events)-1] = nil
	q.events = q.events[:len(q.events)-1]
}
