package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/arena/internal/event"
)

// AgentTrace is the delivered event stream of one agent in one round.
type AgentTrace struct {
	Round     int
	Agent     string
	Events    []*event.Event
	FirstTick int64
	LastTick  int64
	Terminal  event.Kind // Death, RoundEnded or BattleEnded; zero if the stream is cut short
}

// Replay rebuilds the journaled deliveries of a battle as per-agent
// traces, ordered by round and then agent. Events come back frozen, in
// the order they were dispatched.
func (s *Store) Replay(ctx context.Context, battleID string, filter DeliveryFilter) ([]AgentTrace, error) {
	if _, err := s.ReadBattle(ctx, battleID); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	deliveries, err := s.ReadDeliveries(ctx, battleID, filter)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	type key struct {
		round int
		agent string
	}
	byAgent := make(map[key]*AgentTrace)
	var order []key
	for _, d := range deliveries {
		e, err := d.Event()
		if err != nil {
			return nil, fmt.Errorf("replay: delivery %d: %w", d.ID, err)
		}
		k := key{d.Round, d.Agent}
		tr, ok := byAgent[k]
		if !ok {
			tr = &AgentTrace{Round: d.Round, Agent: d.Agent, FirstTick: d.Tick}
			byAgent[k] = tr
			order = append(order, k)
		}
		tr.Events = append(tr.Events, e)
		if d.Tick < tr.FirstTick {
			tr.FirstTick = d.Tick
		}
		if d.Tick > tr.LastTick {
			tr.LastTick = d.Tick
		}
		switch d.Kind {
		case event.KindDeath, event.KindRoundEnded, event.KindBattleEnded:
			tr.Terminal = d.Kind
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].round != order[j].round {
			return order[i].round < order[j].round
		}
		return order[i].agent < order[j].agent
	})
	traces := make([]AgentTrace, 0, len(order))
	for _, k := range order {
		traces = append(traces, *byAgent[k])
	}
	return traces, nil
}
