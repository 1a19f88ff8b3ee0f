package engine

import (
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"

	"github.com/roach88/arena/internal/event"
)

// interruptSignal unwinds an abandoned handler up to the dispatch frame
// that invoked it.
type interruptSignal struct {
	priority int
}

// haltSignal unwinds the agent goroutine when the agent dies or the round
// ends. The runner recovers it.
type haltSignal struct{}

// noTop is the top priority while no handler is running.
const noTop = math.MinInt

// dispatcher delivers queued events to one agent's handlers.
//
// topPriority is the priority of the innermost running handler. Only events
// at or above it are considered; lower ones wait until that handler returns.
type dispatcher struct {
	agent    string
	log      *slog.Logger
	queue    *Queue
	handlers event.HandlerSet
	policy   DeliveryPolicy
	metrics  Metrics
	observer DeliveryObserver

	interruptible [event.MaxPriority + 1]bool
	topPriority   int
	current       *event.Event
	depth         int
}

func newDispatcher(agent string, log *slog.Logger, q *Queue, hs event.HandlerSet) *dispatcher {
	return &dispatcher{
		agent:       agent,
		log:         log,
		queue:       q,
		handlers:    hs,
		policy:      NewStalePolicy(),
		metrics:     nopMetrics{},
		observer:    nopObserver{},
		topPriority: noTop,
	}
}

// run delivers pending events until none remain at or above the top
// priority. It is re-entered from commits made inside handlers. Only an
// event that will actually reach a handler can interrupt the running one.
func (d *dispatcher) run(tick int64) {
	d.policy.Begin(tick)
	for {
		e := d.queue.Peek()
		if e == nil || e.Priority() < d.topPriority {
			return
		}
		if !d.admit(e) {
			d.queue.Remove(e)
			continue
		}
		if d.current != nil && d.isInterruptible(d.topPriority) {
			d.setInterruptible(d.topPriority, false)
			d.metrics.HandlerInterrupted()
			d.log.Debug("handler interrupted",
				"running", d.current.Kind().String(), "by", e.Kind().String(), "priority", e.Priority())
			panic(interruptSignal{priority: e.Priority()})
		}
		if e.Priority() == d.topPriority {
			return
		}
		d.queue.Remove(e)
		d.deliver(e)
	}
}

// flush delivers everything pending regardless of the top priority. Used
// once the agent is halted; interrupts no longer apply.
func (d *dispatcher) flush(tick int64) {
	d.policy.Begin(tick)
	d.interruptible = [event.MaxPriority + 1]bool{}
	for {
		e := d.queue.Peek()
		if e == nil {
			return
		}
		d.queue.Remove(e)
		if d.admit(e) {
			d.deliver(e)
		}
	}
}

// admit reports whether e would reach a handler. Events refused by the
// delivery policy are counted as dropped; events for a capability the
// agent lacks are discarded silently. Critical events bypass the policy.
func (d *dispatcher) admit(e *event.Event) bool {
	if !d.handlers.Accepts(e.Kind()) {
		return false
	}
	if e.IsCritical() {
		return true
	}
	ok, reason := d.policy.Admit(e)
	if !ok {
		d.metrics.EventDropped(reason)
		d.log.Debug("event dropped", "kind", e.Kind().String(), "time", e.Time(), "reason", reason)
	}
	return ok
}

// deliver runs one admitted event's handler as the new top, restoring the
// previous top on the way out. An interrupt aimed at this handler stops
// here; a halt keeps unwinding.
func (d *dispatcher) deliver(e *event.Event) {
	prevTop, prevCurrent := d.topPriority, d.current
	d.topPriority, d.current = e.Priority(), e
	d.depth++
	defer func() {
		d.topPriority, d.current = prevTop, prevCurrent
		d.depth--
	}()

	d.observer.ObserveDelivery(d.agent, e)
	d.metrics.EventDispatched(e.Kind())
	if d.invoke(e) {
		// A completed handler clears interruptibility for its class.
		d.setInterruptible(e.Priority(), false)
	}
}

// invoke calls the handler. Returns false when the handler was abandoned.
func (d *dispatcher) invoke(e *event.Event) (completed bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch r.(type) {
		case interruptSignal:
			completed = false
		case haltSignal:
			panic(r)
		default:
			completed = false
			d.log.Error(fmt.Sprintf("SYSTEM: panic occurred on %s", e.Kind()),
				"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	e.Dispatch(d.handlers)
	return true
}

func (d *dispatcher) isInterruptible(priority int) bool {
	if priority < event.MinPriority || priority > event.MaxPriority {
		return false
	}
	return d.interruptible[priority]
}

// setInterruptible marks a priority class. Reserved priorities are never
// interruptible.
func (d *dispatcher) setInterruptible(priority int, on bool) {
	if priority < event.MinPriority || priority > event.MaxPriority {
		return
	}
	d.interruptible[priority] = on
}
