package robots

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arena/internal/battle"
	"github.com/roach88/arena/internal/event"
	"github.com/roach88/arena/internal/physics"
	"github.com/roach88/arena/internal/testutil"
)

func runDuel(t *testing.T, robot string, maxTicks int64) *testutil.DeliveryLog {
	t.Helper()
	reg := Default()
	f, ok := reg.Lookup(robot)
	require.True(t, ok)
	duck, _ := reg.Lookup("sitting-duck")

	field, err := physics.NewKinematic(800, 600, []physics.Spawn{
		{Name: robot, X: 400, Y: 200},
		{Name: "duck", X: 400, Y: 400},
	})
	require.NoError(t, err)

	rec := testutil.NewDeliveryLog()
	b, err := battle.New(field, []battle.Entrant{
		{Name: robot, New: f},
		{Name: "duck", New: duck},
	},
		battle.WithMaxTicks(maxTicks),
		battle.WithTurnBudget(time.Second),
		battle.WithRecorder(rec),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := b.Run(ctx)
	require.NoError(t, err)
	require.Len(t, res.Rounds, 1)
	return rec
}

func TestTracker_HitsSittingDuck(t *testing.T) {
	rec := runDuel(t, "tracker", 300)

	assert.Positive(t, rec.Count("tracker", event.KindScannedAgent))
	assert.Positive(t, rec.Count("duck", event.KindHitByProjectile))
	assert.Positive(t, rec.Count("tracker", event.KindProjectileHit))
}

func TestRobots_CompleteADuel(t *testing.T) {
	for _, robot := range []string{"spinner", "walls", "scout"} {
		t.Run(robot, func(t *testing.T) {
			rec := runDuel(t, robot, 120)
			assert.Zero(t, rec.Count(robot, event.KindSkippedTurn))
			assert.Positive(t, rec.Count(robot, event.KindStatus))
			assert.Equal(t, 1, rec.Count(robot, event.KindRoundEnded))
		})
	}
}
