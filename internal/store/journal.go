package store

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// Journal records the deliveries of one battle. It hands a
// DeliveryObserver to every round.
//
// Write failures are logged and counted, never returned: a journal
// problem must not stall the agents.
type Journal struct {
	store    *Store
	battleID string

	written atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

// NewJournal journals into s under battleID. The battle row must already
// exist (see WriteBattle).
func NewJournal(s *Store, battleID string) *Journal {
	return &Journal{store: s, battleID: battleID}
}

// RoundObserver returns the observer for one round.
func (j *Journal) RoundObserver(round int) engine.DeliveryObserver {
	return &roundObserver{journal: j, round: round}
}

func (j *Journal) BattleID() string { return j.battleID }

// Written, Skipped and Failed count deliveries journaled, left out as
// non-serializable, and lost to write errors.
func (j *Journal) Written() int64 { return j.written.Load() }
func (j *Journal) Skipped() int64 { return j.skipped.Load() }
func (j *Journal) Failed() int64  { return j.failed.Load() }

type roundObserver struct {
	journal *Journal
	round   int
}

func (o *roundObserver) ObserveDelivery(agent string, e *event.Event) {
	j := o.journal
	if !e.Kind().Transmissible() {
		j.skipped.Add(1)
		slog.Debug("delivery not journaled", "agent", agent, "kind", e.Kind().String())
		return
	}
	if err := j.store.WriteDelivery(context.Background(), j.battleID, o.round, agent, e); err != nil {
		j.failed.Add(1)
		slog.Error("journal write failed",
			"battle", j.battleID, "round", o.round, "agent", agent,
			"kind", e.Kind().String(), "seq", e.Seq(), "error", err)
		return
	}
	j.written.Add(1)
}
