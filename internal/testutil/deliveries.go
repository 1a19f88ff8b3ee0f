// Package testutil holds test helpers shared by the battle packages.
package testutil

import (
	"sync"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// DeliveryLog records every delivery of a battle, per round, as
// "agent:Kind" entries. It satisfies battle.Recorder.
//
// Thread-safety: agents deliver on their own goroutines; all methods are
// safe for concurrent use.
type DeliveryLog struct {
	mu      sync.Mutex
	entries map[int][]string
	counts  map[string]map[event.Kind]int
}

func NewDeliveryLog() *DeliveryLog {
	return &DeliveryLog{
		entries: make(map[int][]string),
		counts:  make(map[string]map[event.Kind]int),
	}
}

// RoundObserver returns the observer for one round.
func (l *DeliveryLog) RoundObserver(round int) engine.DeliveryObserver {
	return roundLog{log: l, round: round}
}

type roundLog struct {
	log   *DeliveryLog
	round int
}

func (r roundLog) ObserveDelivery(agent string, e *event.Event) {
	r.log.add(r.round, agent, e.Kind())
}

func (l *DeliveryLog) add(round int, agent string, kind event.Kind) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[round] = append(l.entries[round], agent+":"+kind.String())
	if l.counts[agent] == nil {
		l.counts[agent] = make(map[event.Kind]int)
	}
	l.counts[agent][kind]++
}

// Round returns the entries of round n in delivery order. Entries of
// different agents interleave as their goroutines ran.
func (l *DeliveryLog) Round(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries[n]...)
}

// Count is how many events of kind agent was handed over all rounds.
func (l *DeliveryLog) Count(agent string, kind event.Kind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[agent][kind]
}
