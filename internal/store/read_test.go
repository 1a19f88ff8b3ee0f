package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/arena/internal/event"
)

func seedDeliveries(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	createTestBattle(t, s, "b1")

	writes := []struct {
		round int
		agent string
		e     *event.Event
	}{
		{2, "a", queuedEvent(t, 1, 1, event.Status{Round: 2})},
		{1, "b", queuedEvent(t, 1, 2, event.HitWall{Bearing: 45})},
		{1, "a", queuedEvent(t, 2, 5, event.ScannedAgent{Name: "b", Distance: 120})},
		{1, "a", queuedEvent(t, 1, 3, event.Status{Round: 1, Energy: 100})},
		{1, "b", queuedEvent(t, 1, 1, event.Status{Round: 1})},
		{1, "a", queuedEvent(t, 3, 9, event.Win{})},
	}
	for _, w := range writes {
		if err := s.WriteDelivery(ctx, "b1", w.round, w.agent, w.e); err != nil {
			t.Fatalf("WriteDelivery() failed: %v", err)
		}
	}
}

func TestReadDeliveries_Ordering(t *testing.T) {
	s := createTestStore(t)
	seedDeliveries(t, s)

	got, err := s.ReadDeliveries(context.Background(), "b1", DeliveryFilter{})
	if err != nil {
		t.Fatalf("ReadDeliveries() failed: %v", err)
	}

	type key struct {
		round int
		agent string
		seq   int64
	}
	want := []key{
		{1, "a", 3}, {1, "a", 5}, {1, "a", 9},
		{1, "b", 1}, {1, "b", 2},
		{2, "a", 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d deliveries, want %d", len(got), len(want))
	}
	for i, d := range got {
		if k := (key{d.Round, d.Agent, d.Seq}); k != want[i] {
			t.Errorf("delivery[%d] = %+v, want %+v", i, k, want[i])
		}
	}
}

func TestReadDeliveries_Filters(t *testing.T) {
	s := createTestStore(t)
	seedDeliveries(t, s)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter DeliveryFilter
		want   int
	}{
		{"round", DeliveryFilter{Round: 2}, 1},
		{"agent", DeliveryFilter{Agent: "b"}, 2},
		{"kind", DeliveryFilter{Kind: event.KindStatus}, 3},
		{"combined", DeliveryFilter{Round: 1, Agent: "a", Kind: event.KindWin}, 1},
		{"no match", DeliveryFilter{Agent: "nobody"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ReadDeliveries(ctx, "b1", tt.filter)
			if err != nil {
				t.Fatalf("ReadDeliveries() failed: %v", err)
			}
			if got == nil {
				t.Fatal("ReadDeliveries() returned nil, want empty slice")
			}
			if len(got) != tt.want {
				t.Errorf("got %d deliveries, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDelivery_Event(t *testing.T) {
	s := createTestStore(t)
	seedDeliveries(t, s)

	got, err := s.ReadDeliveries(context.Background(), "b1", DeliveryFilter{Kind: event.KindScannedAgent})
	if err != nil {
		t.Fatalf("ReadDeliveries() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d deliveries, want 1", len(got))
	}

	e, err := got[0].Event()
	if err != nil {
		t.Fatalf("Event() failed: %v", err)
	}
	if !e.Frozen() {
		t.Error("rebuilt event should be frozen")
	}
	if e.Time() != 2 || e.Seq() != 5 || e.Priority() != event.KindScannedAgent.DefaultPriority() {
		t.Errorf("rebuilt event = %s seq %d", e, e.Seq())
	}
	scan, ok := e.Payload().(event.ScannedAgent)
	if !ok || scan.Name != "b" || scan.Distance != 120 {
		t.Errorf("payload = %#v", e.Payload())
	}
}

func TestDelivery_CriticalFlag(t *testing.T) {
	s := createTestStore(t)
	seedDeliveries(t, s)

	got, err := s.ReadDeliveries(context.Background(), "b1", DeliveryFilter{Kind: event.KindWin})
	if err != nil {
		t.Fatalf("ReadDeliveries() failed: %v", err)
	}
	if len(got) != 1 || !got[0].Critical || got[0].Priority != event.PriorityCritical {
		t.Errorf("Win delivery = %+v", got)
	}
}

func TestCountDeliveries(t *testing.T) {
	s := createTestStore(t)
	seedDeliveries(t, s)

	counts, err := s.CountDeliveries(context.Background(), "b1")
	if err != nil {
		t.Fatalf("CountDeliveries() failed: %v", err)
	}
	if counts[event.KindStatus] != 3 || counts[event.KindWin] != 1 || counts[event.KindHitWall] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestReadBattle_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadBattle(context.Background(), "missing")
	if !errors.Is(err, ErrBattleNotFound) {
		t.Errorf("ReadBattle(missing) = %v, want ErrBattleNotFound", err)
	}
}
