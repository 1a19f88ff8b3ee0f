package robots

import (
	"context"
	"math"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// aimTolerance is how far off target, in degrees, the gun may be when the
// tracker fires.
const aimTolerance = 3

// Tracker sweeps its radar until it finds a target, then keeps gun and
// radar on it and fires once the gun is aligned.
type Tracker struct {
	event.NopBasic
	c      *engine.Controller
	target string
	Shots  int
}

func (t *Tracker) Run(ctx context.Context, c *engine.Controller) error {
	t.c = c
	for ctx.Err() == nil {
		if err := c.TurnRadar(360); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) OnScannedAgent(_ *event.Event, a event.ScannedAgent) {
	if t.target != "" && a.Name != t.target {
		return
	}
	t.target = a.Name
	c := t.c

	abs := c.Heading() + a.Bearing
	gunTurn := relative(abs - c.GunHeading())
	radarTurn := relative(abs - c.RadarHeading())
	// Overshoot the radar slightly so the next sweep crosses the target.
	radarTurn += math.Copysign(10, radarTurn)

	_ = c.SetTurnGun(gunTurn)
	_ = c.SetTurnRadar(radarTurn)
	if math.Abs(gunTurn) < aimTolerance && c.GunHeat() == 0 {
		if err := c.SetFire(firePower(a.Distance)); err == nil {
			t.Shots++
		}
	}
}

func (t *Tracker) OnAgentDeath(_ *event.Event, d event.AgentDeath) {
	if d.Name == t.target {
		t.target = ""
	}
}
