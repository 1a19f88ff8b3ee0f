package robots

import (
	"context"
	"math"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// Walls heads for the nearest wall and then drives along the edges of the
// field, firing when its gun sweeps over another agent.
type Walls struct {
	event.NopBasic
	event.NopAdvanced
	c *engine.Controller

	Corners int
	Skipped int
}

func (w *Walls) Run(ctx context.Context, c *engine.Controller) error {
	w.c = c
	// Face north and drive into the wall.
	if err := c.TurnBody(relative(-c.Heading())); err != nil {
		return err
	}
	if err := c.TurnGun(relative(90 - c.GunHeading())); err != nil {
		return err
	}
	for ctx.Err() == nil {
		if err := c.Move(math.MaxInt16); err != nil {
			return err
		}
		if err := c.TurnBody(90); err != nil {
			return err
		}
		w.Corners++
	}
	return nil
}

func (w *Walls) OnScannedAgent(_ *event.Event, a event.ScannedAgent) {
	if w.c.GunHeat() == 0 {
		_ = w.c.SetFire(firePower(a.Distance))
	}
}

func (w *Walls) OnHitAgent(_ *event.Event, h event.HitAgent) {
	if math.Abs(h.Bearing) < 90 {
		_ = w.c.SetMove(-50)
	}
}

func (w *Walls) OnSkippedTurn(*event.Event, event.SkippedTurn) {
	w.Skipped++
}
