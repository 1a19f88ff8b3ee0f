package config

import (
	"fmt"

	"github.com/roach88/arena/internal/battle"
	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/physics"
)

// Lookup resolves robot names to agent factories.
type Lookup interface {
	Lookup(robot string) (func() engine.Agent, bool)
}

// Entrants builds the battle entrants, resolving robots through robots.
func (b *Battle) Entrants(robots Lookup) ([]battle.Entrant, error) {
	out := make([]battle.Entrant, 0, len(b.Agents))
	for i, a := range b.Agents {
		f, ok := robots.Lookup(a.Robot)
		if !ok {
			return nil, &Error{
				Field:   fmt.Sprintf("agents[%d].robot", i),
				Message: fmt.Sprintf("unknown robot %q", a.Robot),
			}
		}
		prio, err := a.Priorities()
		if err != nil {
			return nil, &Error{Field: fmt.Sprintf("agents[%d].event_priorities", i), Message: err.Error()}
		}
		out = append(out, battle.Entrant{
			Name:       a.Name,
			Team:       a.Team,
			IO:         a.IO,
			Priorities: prio,
			New:        f,
		})
	}
	return out, nil
}

// Spawns returns the physics start positions.
func (b *Battle) Spawns() []physics.Spawn {
	out := make([]physics.Spawn, 0, len(b.Agents))
	for _, a := range b.Agents {
		out = append(out, physics.Spawn{Name: a.Name, X: a.X, Y: a.Y, Heading: a.Heading})
	}
	return out
}

// Physics builds the reference battlefield for the file.
func (b *Battle) Physics() (*physics.Kinematic, error) {
	return physics.NewKinematic(b.Arena.Width, b.Arena.Height, b.Spawns())
}

// Options returns the battle options the file sets.
func (b *Battle) Options() ([]battle.Option, error) {
	budget, err := b.TurnBudgetDuration()
	if err != nil {
		return nil, &Error{Field: "turn_budget", Message: err.Error()}
	}
	return []battle.Option{
		battle.WithName(b.Name),
		battle.WithRounds(b.Rounds),
		battle.WithMaxTicks(b.MaxTicks),
		battle.WithTurnBudget(budget),
		battle.WithMaxSkippedTurns(b.MaxSkippedTurns, b.MaxSkippedTurnsIO),
	}, nil
}
