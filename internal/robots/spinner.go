package robots

import (
	"context"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// Spinner circles in place with its gun and radar locked to the body, and
// fires at whatever the radar sweeps over.
type Spinner struct {
	event.NopBasic
	c *engine.Controller
}

func (s *Spinner) Run(ctx context.Context, c *engine.Controller) error {
	s.c = c
	if err := c.SetMaxVelocity(5); err != nil {
		return err
	}
	for ctx.Err() == nil {
		if err := c.SetTurnBody(30); err != nil {
			return err
		}
		if err := c.SetMove(40); err != nil {
			return err
		}
		if err := c.SetTurnRadar(45); err != nil {
			return err
		}
		if err := c.Execute(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Spinner) OnScannedAgent(_ *event.Event, a event.ScannedAgent) {
	if s.c.GunHeat() > 0 {
		return
	}
	if err := s.c.SetFire(firePower(a.Distance)); err != nil {
		s.c.Logger().Warn("fire failed", "error", err)
	}
}

func (s *Spinner) OnHitWall(*event.Event, event.HitWall) {
	_ = s.c.SetMove(-80)
}
