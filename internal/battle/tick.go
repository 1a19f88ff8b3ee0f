package battle

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// Advance runs one host tick of the current round and reports whether the
// round is over. On a physics error the round is left running and the
// caller decides whether to abort it.
func (b *Battle) Advance(ctx context.Context) (bool, error) {
	if b.seats == nil {
		return false, fmt.Errorf("no round running")
	}
	start := time.Now()
	tick := b.clock.Next()
	ctx, span := b.tracer.Start(ctx, "battle.tick", trace.WithAttributes(
		attribute.Int("battle.round", b.round),
		attribute.Int64("battle.tick", tick),
	), trace.WithLinks(trace.LinkFromContext(b.roundCtx)))
	defer span.End()

	live := b.live()
	cmds := make(map[string]engine.Commands, len(live))
	skipped := make(map[string]error)

	turnCtx, cancel := context.WithTimeout(ctx, b.turnBudget)
	for _, s := range live {
		if c, ok := s.peer.AwaitCommit(turnCtx); ok {
			cmds[s.entrant.Name] = c
			continue
		}
		skipped[s.entrant.Name] = s.peer.RecordSkipped(tick)
	}
	cancel()
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var removed []string
	for _, s := range live {
		if engine.IsSkippedTurnsExceeded(skipped[s.entrant.Name]) {
			removed = append(removed, s.entrant.Name)
			b.physics.Remove(s.entrant.Name)
		}
	}

	outcomes, err := b.physics.Step(ctx, tick, cmds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("physics step at tick %d: %w", tick, err)
	}

	b.recordDebug(cmds)
	mail := b.route(cmds)
	input := b.takeInput()

	for _, s := range live {
		name := s.entrant.Name
		r := engine.Result{Tick: tick}
		if o, ok := outcomes[name]; ok {
			r.Outcome = &o
			s.status = o.Status
		}
		if _, ok := skipped[name]; ok {
			r.Events = append(r.Events, event.SkippedTurn{Turn: tick})
		}
		for _, gone := range removed {
			if gone != name {
				r.Events = append(r.Events, event.AgentDeath{Name: gone})
			}
		}
		r.Events = append(r.Events, mail[name]...)
		r.Events = append(r.Events, input[name]...)
		s.peer.Deliver(r)

		switch {
		case slices.Contains(removed, name):
			s.peer.KillForSkippedTurns(tick)
			b.fallen = append(b.fallen, name)
			b.notifyRemoval(Removal{Agent: name, Round: b.round, Tick: tick, Reason: engine.RemovedSkippedTurns})
			span.AddEvent("agent.removed", trace.WithAttributes(attribute.String("agent", name)))
		case r.Outcome != nil && r.Outcome.Died:
			b.metrics.AgentRemoved(engine.RemovedDeath)
			s.peer.Halt(tick, event.Death{})
			b.fallen = append(b.fallen, name)
			span.AddEvent("agent.died", trace.WithAttributes(attribute.String("agent", name)))
		}
	}

	alive := len(b.live())
	span.SetAttributes(attribute.Int("battle.live_agents", alive), attribute.Int("battle.skipped", len(skipped)))
	b.metrics.SetLiveAgents(alive)
	b.metrics.ObserveTick(time.Since(start))

	done := alive == 0 || (len(b.order) > 1 && alive <= 1) || tick >= b.maxTicks
	return done, nil
}

func (b *Battle) live() []*seat {
	var out []*seat
	for _, name := range b.order {
		if s := b.seats[name]; s != nil && s.peer.Alive() {
			out = append(out, s)
		}
	}
	return out
}

func (b *Battle) notifyRemoval(r Removal) {
	select {
	case b.removals <- r:
	default:
		b.log.Warn("removal channel full, notification dropped", "agent", r.Agent, "round", r.Round)
	}
}

// route turns committed team messages into Message events for the
// sender's teammates. Each recipient gets its own copy of the data.
func (b *Battle) route(cmds map[string]engine.Commands) map[string][]event.Payload {
	out := make(map[string][]event.Payload)
	for _, sender := range b.order {
		c, ok := cmds[sender]
		if !ok || len(c.Messages) == 0 {
			continue
		}
		team := b.seats[sender].entrant.Team
		for _, m := range c.Messages {
			delivered := 0
			for _, to := range b.order {
				if to == sender || team == "" || b.seats[to].entrant.Team != team {
					continue
				}
				if m.To != "" && m.To != to {
					continue
				}
				if !b.seats[to].peer.Alive() {
					continue
				}
				out[to] = append(out[to], event.Message{
					Sender: sender,
					Data:   append([]byte(nil), m.Data...),
				})
				delivered++
			}
			if delivered == 0 {
				b.log.Warn("team message has no recipient", "agent", sender, "to", m.To, "team", team)
			}
		}
	}
	return out
}
