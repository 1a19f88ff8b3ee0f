package battle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// RoundResult summarizes one finished round.
type RoundResult struct {
	Round   int
	Turns   int64
	Winner  string // empty unless exactly one agent survived
	Ranks   map[string]int
	Removed []string
}

// Result summarizes a battle.
type Result struct {
	ID      string
	Name    string
	Rounds  []RoundResult
	Scores  map[string]int
	Ranking []string
	Aborted bool
}

// Run plays every round. If ctx is cancelled mid-round the round is
// aborted: survivors get BattleEnded{Aborted: true} and Run returns the
// partial result with ctx's error.
func (b *Battle) Run(ctx context.Context) (*Result, error) {
	ctx, span := b.tracer.Start(ctx, "battle.run", trace.WithAttributes(
		attribute.String("battle.id", b.id),
		attribute.String("battle.name", b.name),
		attribute.Int("battle.rounds", b.rounds),
	))
	defer span.End()

	slog.Info("battle starting", "id", b.id, "name", b.name, "rounds", b.rounds, "agents", len(b.entrants))
	res := &Result{ID: b.id, Name: b.name}
	for round := 1; round <= b.rounds; round++ {
		if err := b.StartRound(ctx, round); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return b.finish(res, true), err
		}
		for {
			done, err := b.Advance(ctx)
			if err != nil {
				b.abortRound()
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return b.finish(res, true), err
			}
			if done {
				break
			}
		}
		res.Rounds = append(res.Rounds, b.EndRound())
	}
	slog.Info("battle finished", "id", b.id, "ticks", b.totalTurns)
	return b.finish(res, false), nil
}

func (b *Battle) finish(res *Result, aborted bool) *Result {
	res.Aborted = aborted
	res.Scores = make(map[string]int, len(b.scores))
	for k, v := range b.scores {
		res.Scores[k] = v
	}
	res.Ranking = b.ranking()
	return res
}

// StartRound places the agents and starts one goroutine per agent. Each
// agent is handed its start Status before its first commit.
func (b *Battle) StartRound(ctx context.Context, round int) error {
	if b.seats != nil {
		return fmt.Errorf("round %d still running", b.round)
	}
	statuses, err := b.physics.Reset(round)
	if err != nil {
		return fmt.Errorf("reset physics for round %d: %w", round, err)
	}

	b.round = round
	b.clock.Reset()
	b.fallen = nil
	b.roundCtx, b.cancelRound = context.WithCancel(ctx)
	b.roundCtx, b.roundSpan = b.tracer.Start(b.roundCtx, "battle.round",
		trace.WithAttributes(attribute.Int("battle.round", round)))

	var observer engine.DeliveryObserver
	if b.recorder != nil {
		observer = b.recorder.RoundObserver(round)
	}

	b.seats = make(map[string]*seat, len(b.entrants))
	for _, e := range b.entrants {
		agent := e.New()
		log := b.log.With("agent", e.Name, "round", round)
		peer := engine.NewPeer(e.Name,
			engine.WithIO(e.IO),
			engine.WithMaxSkippedTurns(b.maxSkipped, b.maxSkippedIO),
			engine.WithPeerLogger(log),
			engine.WithPeerMetrics(b.metrics),
		)
		opts := []engine.ControllerOption{
			engine.WithLogger(log),
			engine.WithHandlers(engine.Classify(agent)),
			engine.WithMetrics(b.metrics),
			engine.WithObserver(observer),
			engine.WithCallBudget(b.callBudget),
			engine.WithEventPriorities(e.Priorities),
		}
		if b.graphics != nil {
			opts = append(opts, engine.WithPainting(b.graphics))
		}
		ctrl := engine.NewController(e.Name, opts...)
		if err := ctrl.Attach(peer); err != nil {
			return fmt.Errorf("attach %s: %w", e.Name, err)
		}

		peer.Deliver(engine.Result{Tick: 0, Outcome: &engine.Outcome{Status: statuses[e.Name]}})
		b.seats[e.Name] = &seat{entrant: e, peer: peer, ctrl: ctrl, status: statuses[e.Name]}

		go func() {
			if err := ctrl.Run(b.roundCtx, agent); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("agent goroutine ended with error", "error", err)
			}
		}()
	}
	b.metrics.SetLiveAgents(len(b.seats))
	slog.Debug("round started", "round", round, "agents", len(b.seats))
	return nil
}

// EndRound halts the survivors with their end-of-round events and waits,
// up to the shutdown grace, for every agent that was not removed to
// unwind.
func (b *Battle) EndRound() RoundResult {
	tick := b.clock.Current()
	b.totalTurns += tick
	last := b.round == b.rounds

	survivors := b.live()
	ranks := b.roundRanks(survivors)
	for name, rank := range ranks {
		b.scores[name] += len(b.order) - rank
	}
	battleRanks := make(map[string]int, len(b.order))
	for i, name := range b.ranking() {
		battleRanks[name] = i + 1
	}

	res := RoundResult{Round: b.round, Turns: tick, Ranks: ranks}
	if len(survivors) == 1 {
		res.Winner = survivors[0].entrant.Name
	}
	for _, s := range survivors {
		var final []event.Payload
		if res.Winner == s.entrant.Name {
			final = append(final, event.Win{})
		}
		final = append(final, event.RoundEnded{Round: b.round, Turns: tick, TotalTurns: b.totalTurns})
		if last {
			final = append(final, event.BattleEnded{Rank: battleRanks[s.entrant.Name], Rounds: b.rounds})
		}
		s.peer.Halt(tick, final...)
	}
	for _, name := range b.order {
		if b.seats[name].peer.Removed() {
			res.Removed = append(res.Removed, name)
		}
	}

	b.teardown()
	slog.Info("round ended", "round", res.Round, "turns", res.Turns, "winner", res.Winner)
	return res
}

// abortRound halts everyone with an aborted BattleEnded.
func (b *Battle) abortRound() {
	if b.seats == nil {
		return
	}
	tick := b.clock.Current()
	for _, s := range b.live() {
		s.peer.Halt(tick, event.BattleEnded{Aborted: true, Rounds: b.rounds})
	}
	slog.Warn("round aborted", "round", b.round, "tick", tick)
	b.teardown()
}

func (b *Battle) teardown() {
	timer := time.NewTimer(b.grace)
	defer timer.Stop()
	for _, name := range b.order {
		s := b.seats[name]
		if s.peer.Removed() {
			continue
		}
		select {
		case <-s.peer.Done():
		case <-timer.C:
			slog.Warn("agent did not stop within the shutdown grace", "agent", name, "grace", b.grace)
			timer.Reset(0)
		}
	}
	b.cancelRound()
	b.roundSpan.End()
	b.seats = nil

	b.mu.Lock()
	b.inbox = make(map[string][]event.Payload)
	b.mu.Unlock()
}

// roundRanks ranks survivors first, by energy, then fallen agents in
// reverse order of death.
func (b *Battle) roundRanks(survivors []*seat) map[string]int {
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].status.Energy > survivors[j].status.Energy
	})
	ranks := make(map[string]int, len(b.order))
	rank := 1
	for _, s := range survivors {
		ranks[s.entrant.Name] = rank
		rank++
	}
	for i := len(b.fallen) - 1; i >= 0; i-- {
		ranks[b.fallen[i]] = rank
		rank++
	}
	return ranks
}

// ranking orders entrants by total score, then name.
func (b *Battle) ranking() []string {
	out := append([]string(nil), b.order...)
	sort.SliceStable(out, func(i, j int) bool {
		if b.scores[out[i]] != b.scores[out[j]] {
			return b.scores[out[i]] > b.scores[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
