package robots

import (
	"context"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// SittingDuck never moves. It counts how often it was hit.
type SittingDuck struct {
	event.NopBasic
	Hits int
}

func (d *SittingDuck) Run(ctx context.Context, c *engine.Controller) error {
	for ctx.Err() == nil {
		if err := c.DoNothing(); err != nil {
			return err
		}
	}
	return nil
}

func (d *SittingDuck) OnHitByProjectile(*event.Event, event.HitByProjectile) {
	d.Hits++
}
