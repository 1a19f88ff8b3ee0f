package engine

import "github.com/roach88/arena/internal/event"

// Metrics receives engine counters. observability.Collector implements it;
// the engine never imports a metrics library directly.
type Metrics interface {
	EventDispatched(kind event.Kind)
	EventDropped(reason string)
	HandlerInterrupted()
	TurnSkipped()
	AgentRemoved(reason string)
}

// Drop and removal reasons reported to Metrics.
const (
	DropStale     = "stale"
	DropQueueFull = "queue_full"
	DropBudget    = "budget"

	RemovedSkippedTurns = "skipped_turns"
	RemovedDeath        = "death"
)

// DeliveryObserver is notified of every event handed to a handler, in
// delivery order. The battle journal implements it.
type DeliveryObserver interface {
	ObserveDelivery(agent string, e *event.Event)
}

type nopMetrics struct{}

func (nopMetrics) EventDispatched(event.Kind) {}
func (nopMetrics) EventDropped(string)        {}
func (nopMetrics) HandlerInterrupted()        {}
func (nopMetrics) TurnSkipped()               {}
func (nopMetrics) AgentRemoved(string)        {}

type nopObserver struct{}

func (nopObserver) ObserveDelivery(string, *event.Event) {}
