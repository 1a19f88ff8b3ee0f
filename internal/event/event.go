package event

import (
	"fmt"
	"log/slog"
)

// Event is one notification queued for a single agent.
//
// Time and priority may be changed until the owning queue freezes the event.
// After that, mutation returns ErrFrozen and the event is left unchanged.
type Event struct {
	kind     Kind
	time     int64
	priority int
	frozen   bool
	seq      uint64
	payload  Payload
	log      *slog.Logger
}

// New wraps a payload in an event carrying the kind's default priority.
func New(p Payload) *Event {
	k := p.Kind()
	return &Event{
		kind:     k,
		priority: k.DefaultPriority(),
		payload:  p,
	}
}

// NewAt is New with the time preset. The queue still overwrites time on
// enqueue.
func NewAt(t int64, p Payload) *Event {
	e := New(p)
	e.time = t
	return e
}

// SetLogger routes the event's warnings (clamped priority, mutation after
// enqueue) to l, normally the receiving agent's logger. Without one they go
// to the default logger.
func (e *Event) SetLogger(l *slog.Logger) { e.log = l }

func (e *Event) logger() *slog.Logger {
	if e.log == nil {
		return slog.Default()
	}
	return e.log
}

func (e *Event) Kind() Kind       { return e.kind }
func (e *Event) Time() int64      { return e.time }
func (e *Event) Priority() int    { return e.priority }
func (e *Event) Payload() Payload { return e.payload }

// Seq is the enqueue sequence number. Zero until the event is queued.
func (e *Event) Seq() uint64 { return e.seq }

// IsCritical reports whether the event must be delivered regardless of
// delivery budgets and queue limits.
func (e *Event) IsCritical() bool { return e.kind.Critical() }

// Frozen reports whether the event has entered a queue.
func (e *Event) Frozen() bool { return e.frozen }

// SetTime presets the event time. Rejected once frozen.
func (e *Event) SetTime(t int64) error {
	if e.frozen {
		e.logger().Warn("SYSTEM: event time change ignored after enqueue",
			"kind", e.kind.String(), "time", e.time, "requested", t)
		return fmt.Errorf("set time on %s: %w", e.kind, ErrFrozen)
	}
	e.time = t
	return nil
}

// SetPriority changes the priority before enqueue.
//
// Critical kinds keep their reserved priority and the reserved values 100 and
// -1 cannot be assigned; both return ErrReservedPriority. Any other value
// outside [0,99] is clamped with a warning.
func (e *Event) SetPriority(p int) error {
	if e.frozen {
		e.logger().Warn("SYSTEM: event priority change ignored after enqueue",
			"kind", e.kind.String(), "priority", e.priority, "requested", p)
		return fmt.Errorf("set priority on %s: %w", e.kind, ErrFrozen)
	}
	if e.kind.Critical() || IsReservedPriority(p) {
		return fmt.Errorf("set priority %d on %s: %w", p, e.kind, ErrReservedPriority)
	}
	clamped, adjusted := ClampPriority(p)
	if adjusted {
		e.logger().Warn("SYSTEM: priority out of range, clamped",
			"kind", e.kind.String(), "requested", p, "priority", clamped)
	}
	e.priority = clamped
	return nil
}

// Freeze stamps the enqueue time and sequence and makes the event immutable.
// Only queues call this; freezing twice returns ErrFrozen.
func (e *Event) Freeze(t int64, seq uint64) error {
	if e.frozen {
		return fmt.Errorf("freeze %s: %w", e.kind, ErrFrozen)
	}
	e.time = t
	e.seq = seq
	e.frozen = true
	return nil
}

func (e *Event) String() string {
	return fmt.Sprintf("%s@%d/p%d", e.kind, e.time, e.priority)
}
