package robots

import (
	"context"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// Scout sweeps the field and reports every agent it scans to its
// teammates. It fires at targets a teammate reported while its own radar
// is elsewhere.
type Scout struct {
	event.NopBasic
	event.NopTeam
	c *engine.Controller

	Reports []string
}

func (s *Scout) Run(ctx context.Context, c *engine.Controller) error {
	s.c = c
	for ctx.Err() == nil {
		if err := c.SetTurnRadar(45); err != nil {
			return err
		}
		if err := c.Execute(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scout) OnScannedAgent(_ *event.Event, a event.ScannedAgent) {
	if err := s.c.BroadcastMessage([]byte(a.Name)); err != nil {
		s.c.Logger().Debug("broadcast failed", "error", err)
	}
}

func (s *Scout) OnMessage(_ *event.Event, m event.Message) {
	s.Reports = append(s.Reports, m.Sender+":"+string(m.Data))
}
