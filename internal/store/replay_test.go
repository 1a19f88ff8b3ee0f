package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/arena/internal/event"
)

func TestReplay_GroupsByRoundAndAgent(t *testing.T) {
	s := createTestStore(t)
	seedDeliveries(t, s)

	traces, err := s.Replay(context.Background(), "b1", DeliveryFilter{})
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if len(traces) != 3 {
		t.Fatalf("got %d traces, want 3", len(traces))
	}

	a1 := traces[0]
	if a1.Round != 1 || a1.Agent != "a" {
		t.Fatalf("first trace = round %d agent %s", a1.Round, a1.Agent)
	}
	if len(a1.Events) != 3 {
		t.Fatalf("round 1 agent a has %d events, want 3", len(a1.Events))
	}
	if a1.Events[0].Kind() != event.KindStatus || a1.Events[2].Kind() != event.KindWin {
		t.Errorf("unexpected event order: %s, %s", a1.Events[0], a1.Events[2])
	}
	if a1.FirstTick != 1 || a1.LastTick != 3 {
		t.Errorf("tick span = [%d, %d], want [1, 3]", a1.FirstTick, a1.LastTick)
	}
	if a1.Terminal != 0 {
		t.Errorf("Terminal = %s, want none", a1.Terminal)
	}

	if traces[1].Agent != "b" || traces[2].Round != 2 {
		t.Errorf("trace order = %s/%d, %s/%d", traces[1].Agent, traces[1].Round, traces[2].Agent, traces[2].Round)
	}
}

func TestReplay_Terminal(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestBattle(t, s, "b1")

	for _, e := range []*event.Event{
		queuedEvent(t, 1, 1, event.Status{Round: 1}),
		queuedEvent(t, 2, 2, event.Death{}),
	} {
		if err := s.WriteDelivery(ctx, "b1", 1, "a", e); err != nil {
			t.Fatalf("WriteDelivery() failed: %v", err)
		}
	}

	traces, err := s.Replay(ctx, "b1", DeliveryFilter{Agent: "a"})
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if len(traces) != 1 || traces[0].Terminal != event.KindDeath {
		t.Errorf("traces = %+v", traces)
	}
}

func TestReplay_UnknownBattle(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Replay(context.Background(), "missing", DeliveryFilter{})
	if !errors.Is(err, ErrBattleNotFound) {
		t.Errorf("Replay(missing) = %v, want ErrBattleNotFound", err)
	}
}
