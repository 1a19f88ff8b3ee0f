package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/arena/internal/battle"
	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
	"github.com/roach88/arena/internal/physics"
	"github.com/roach88/arena/internal/store"
)

const (
	// DefaultTurnBudget is generous so scripted agents never skip by
	// accident; scenarios that test skipping set their own.
	DefaultTurnBudget = time.Second
	shutdownGrace     = 2 * time.Second
)

// Harness is the test execution engine for one scenario run.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	battleID string
	recorder *traceRecorder
	physics  *physics.Scripted
	battle   *battle.Battle
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal. Assertion and
// invariant failures are reported in the result; the error return is for
// scenarios that could not run at all.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(ctx, scenario, st)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	if err := h.play(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to run battle: %w", err)
	}
	if err := st.FinishBattle(ctx, h.battleID, result.Rounds); err != nil {
		return nil, fmt.Errorf("failed to finish battle: %w", err)
	}
	result.Trace = h.recorder.trace()

	actx := &AssertionContext{Store: st, Ctx: ctx, BattleID: h.battleID}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	for _, msg := range CheckInvariants(result.Trace) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(ctx context.Context, s *Scenario, st *store.Store) (*Harness, error) {
	battleID := s.BattleID
	if battleID == "" {
		battleID = DefaultBattleID
	}
	if err := st.WriteBattle(ctx, battleID, s.Name, s); err != nil {
		return nil, fmt.Errorf("failed to record battle: %w", err)
	}

	h := &Harness{
		scenario: s,
		store:    st,
		battleID: battleID,
		recorder: newTraceRecorder(store.NewJournal(st, battleID)),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	names := make([]string, 0, len(s.Agents))
	entrants := make([]battle.Entrant, 0, len(s.Agents))
	for _, spec := range s.Agents {
		// Fail now rather than inside the round.
		if _, err := newScriptedAgent(spec, h.recorder); err != nil {
			return nil, fmt.Errorf("agent %s: %w", spec.Name, err)
		}
		prio, err := priorities(spec.EventPriorities)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", spec.Name, err)
		}
		names = append(names, spec.Name)
		entrants = append(entrants, battle.Entrant{
			Name:       spec.Name,
			Team:       spec.Team,
			IO:         spec.IO,
			Priorities: prio,
			New: func() engine.Agent {
				a, _ := newScriptedAgent(spec, h.recorder)
				return a
			},
		})
	}
	h.physics = physics.NewScripted(names, buildScript(s.Physics))

	budget := DefaultTurnBudget
	if s.TurnBudget != "" {
		d, err := time.ParseDuration(s.TurnBudget)
		if err != nil {
			return nil, fmt.Errorf("turn_budget: %w", err)
		}
		budget = d
	}
	opts := []battle.Option{
		battle.WithName(s.Name),
		battle.WithIDGenerator(engine.NewFixedGenerator(battleID)),
		battle.WithRounds(s.Rounds),
		battle.WithMaxTicks(s.MaxTicks),
		battle.WithTurnBudget(budget),
		battle.WithShutdownGrace(shutdownGrace),
		battle.WithRecorder(h.recorder),
		battle.WithLogger(h.logger),
	}
	if s.MaxSkippedTurns > 0 {
		opts = append(opts, battle.WithMaxSkippedTurns(s.MaxSkippedTurns, s.MaxSkippedTurns))
	}

	b, err := battle.New(h.physics, entrants, opts...)
	if err != nil {
		return nil, err
	}
	h.battle = b
	return h, nil
}

// play drives the battle round by round, injecting inputs before the
// tick they are due.
func (h *Harness) play(ctx context.Context, result *Result) error {
	b := h.battle
	for round := 1; round <= b.Rounds(); round++ {
		if err := b.StartRound(ctx, round); err != nil {
			return err
		}
		for {
			if err := h.inject(b.Tick() + 1); err != nil {
				b.EndRound()
				return err
			}
			done, err := b.Advance(ctx)
			if err != nil {
				b.EndRound()
				return err
			}
			if done {
				break
			}
		}
		result.Rounds = append(result.Rounds, b.EndRound())
	}
	return nil
}

func (h *Harness) inject(tick int64) error {
	for _, in := range h.scenario.Inputs {
		if in.Tick != tick {
			continue
		}
		var ch rune
		for _, r := range in.Key {
			ch = r
			break
		}
		if err := h.battle.SendInput(in.Agent, event.KeyPressed{Key: event.Key{Char: ch}}); err != nil {
			return fmt.Errorf("input for %s at tick %d: %w", in.Agent, tick, err)
		}
	}
	return nil
}

func priorities(byName map[string]int) (map[event.Kind]int, error) {
	if len(byName) == 0 {
		return nil, nil
	}
	out := make(map[event.Kind]int, len(byName))
	for name, p := range byName {
		k, err := event.ParseKind(name)
		if err != nil {
			return nil, err
		}
		out[k] = p
	}
	return out, nil
}

// buildScript turns the scenario's physics section into a physics.Script.
func buildScript(spec map[int64]map[string]OutcomeSpec) physics.Script {
	script := make(physics.Script, len(spec))
	for tick, agents := range spec {
		script[tick] = make(map[string]engine.Outcome, len(agents))
		for agent, o := range agents {
			script[tick][agent] = o.outcome(agent)
		}
	}
	return script
}

func (o OutcomeSpec) outcome(agent string) engine.Outcome {
	out := engine.Outcome{Died: o.Died}
	if o.Energy != 0 {
		out.Status = event.Status{Energy: o.Energy}
	}
	for _, s := range o.Scans {
		out.Scans = append(out.Scans, event.ScannedAgent{
			Name: s.Name, Distance: s.Distance, Bearing: s.Bearing, Energy: s.Energy,
		})
	}
	for _, b := range o.WallHits {
		out.WallHits = append(out.WallHits, event.HitWall{Bearing: b})
	}
	for _, owner := range o.HitBy {
		out.HitsTaken = append(out.HitsTaken, event.HitByProjectile{
			Projectile: event.Projectile{Owner: owner, Victim: agent, Power: 1},
		})
	}
	for _, victim := range o.Hits {
		out.Hits = append(out.Hits, event.ProjectileHit{
			Victim:     victim,
			Projectile: event.Projectile{Owner: agent, Victim: victim, Power: 1},
		})
	}
	for _, name := range o.Deaths {
		out.Deaths = append(out.Deaths, event.AgentDeath{Name: name})
	}
	return out
}
