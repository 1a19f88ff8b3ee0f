package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arena/internal/event"
)

func kinds(events []*event.Event) []event.Kind {
	out := make([]event.Kind, len(events))
	for i, e := range events {
		out[i] = e.Kind()
	}
	return out
}

func TestQueue_OrdersByTimeThenPriority(t *testing.T) {
	q := NewQueue(0)
	for _, p := range []event.Payload{event.HitWall{}, event.ProjectileMissed{}, event.ScannedAgent{}} {
		_, err := q.Add(event.New(p), 5)
		require.NoError(t, err)
	}
	_, err := q.Add(event.New(event.Status{}), 4)
	require.NoError(t, err)

	assert.Equal(t, []event.Kind{
		event.KindStatus,
		event.KindProjectileMissed,
		event.KindHitWall,
		event.KindScannedAgent,
	}, kinds(q.All()))
}

func TestQueue_AddFreezesEvent(t *testing.T) {
	q := NewQueue(0)
	e := event.NewAt(99, event.HitWall{})

	_, err := q.Add(e, 3)
	require.NoError(t, err)
	assert.True(t, e.Frozen())
	assert.Equal(t, int64(3), e.Time())
	assert.Equal(t, uint64(1), e.Seq())

	require.ErrorIs(t, e.SetPriority(10), event.ErrFrozen)
	_, err = q.Add(e, 4)
	require.ErrorIs(t, err, event.ErrFrozen, "an event is queued once")
}

func TestQueue_EqualEventsKeepInsertionOrder(t *testing.T) {
	q := NewQueue(0)
	first := event.New(event.HitWall{Bearing: 1})
	second := event.New(event.HitWall{Bearing: 2})
	_, _ = q.Add(first, 1)
	_, _ = q.Add(second, 1)

	assert.Same(t, first, q.Peek())
	require.True(t, q.Remove(first))
	assert.Same(t, second, q.Peek())
	assert.False(t, q.Remove(first))
}

func TestQueue_FullRefusesNonCriticalOnly(t *testing.T) {
	q := NewQueue(3)
	for i := 0; i < 3; i++ {
		_, err := q.Add(event.New(event.HitWall{}), 10)
		require.NoError(t, err)
	}

	_, err := q.Add(event.New(event.ScannedAgent{}), 10)
	require.ErrorIs(t, err, ErrQueueFull)

	_, err = q.Add(event.New(event.Death{}), 10)
	require.NoError(t, err, "critical events are never refused")
	_, err = q.Add(event.New(event.SkippedTurn{Turn: 10}), 10)
	require.NoError(t, err)
	assert.Equal(t, 5, q.Len())
}

func TestQueue_FullPrunesStaleBeforeRefusing(t *testing.T) {
	q := NewQueue(2)
	_, _ = q.Add(event.New(event.HitWall{}), 1)
	_, _ = q.Add(event.New(event.HitWall{}), 2)

	pruned, err := q.Add(event.New(event.ScannedAgent{}), 4)
	require.NoError(t, err)
	assert.Len(t, pruned, 2, "events at or before tick 2 are stale at tick 4")
	assert.Equal(t, 1, q.Len())
}

func TestQueue_PruneThroughKeepsCritical(t *testing.T) {
	q := NewQueue(0)
	_, _ = q.Add(event.New(event.HitWall{}), 1)
	_, _ = q.Add(event.New(event.SkippedTurn{Turn: 1}), 1)
	_, _ = q.Add(event.New(event.HitWall{}), 2)

	pruned := q.PruneThrough(1)
	assert.Len(t, pruned, 1)
	assert.Equal(t, []event.Kind{event.KindSkippedTurn, event.KindHitWall}, kinds(q.All()))
}

func TestQueue_ClearAndFilter(t *testing.T) {
	q := NewQueue(0)
	_, _ = q.Add(event.New(event.ScannedAgent{Distance: 30}), 1)
	_, _ = q.Add(event.New(event.ScannedAgent{Distance: 10}), 1)
	_, _ = q.Add(event.New(event.Win{}), 1)

	scans := q.Filter(event.KindScannedAgent)
	require.Len(t, scans, 2)
	assert.Equal(t, 10.0, scans[0].Payload().(event.ScannedAgent).Distance)

	assert.Equal(t, 2, q.Clear(false))
	assert.Equal(t, []event.Kind{event.KindWin}, kinds(q.All()))
	assert.Equal(t, 1, q.Clear(true))
	assert.Nil(t, q.Peek())
}
