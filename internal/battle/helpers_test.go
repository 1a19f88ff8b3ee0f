package battle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// journal collects what every agent was handed, across rounds.
type journal struct {
	mu      sync.Mutex
	entries map[string][]string
}

func newJournal() *journal {
	return &journal{entries: make(map[string][]string)}
}

func (j *journal) add(agent, entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[agent] = append(j.entries[agent], entry)
}

func (j *journal) of(agent string) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries[agent]...)
}

// listener is an agent with every capability that notes the events it
// receives, except Status.
type listener struct {
	event.NopBasic
	event.NopAdvanced
	event.NopInteractive
	event.NopTeam

	name string
	log  *journal
	run  func(ctx context.Context, c *engine.Controller) error
}

func newListener(name string, log *journal, run func(ctx context.Context, c *engine.Controller) error) func() engine.Agent {
	return func() engine.Agent {
		return &listener{name: name, log: log, run: run}
	}
}

func (p *listener) Run(ctx context.Context, c *engine.Controller) error {
	if p.run != nil {
		return p.run(ctx, c)
	}
	for ctx.Err() == nil {
		if err := c.DoNothing(); err != nil {
			return err
		}
	}
	return nil
}

func (p *listener) OnAgentDeath(_ *event.Event, d event.AgentDeath) { p.log.add(p.name, "AgentDeath:"+d.Name) }
func (p *listener) OnDeath(*event.Event)                            { p.log.add(p.name, "Death") }
func (p *listener) OnWin(*event.Event)                              { p.log.add(p.name, "Win") }
func (p *listener) OnRoundEnded(_ *event.Event, r event.RoundEnded) {
	p.log.add(p.name, fmt.Sprintf("RoundEnded:%d", r.Round))
}
func (p *listener) OnBattleEnded(_ *event.Event, b event.BattleEnded) {
	p.log.add(p.name, fmt.Sprintf("BattleEnded:rank=%d:aborted=%t", b.Rank, b.Aborted))
}
func (p *listener) OnSkippedTurn(_ *event.Event, s event.SkippedTurn) {
	p.log.add(p.name, fmt.Sprintf("SkippedTurn:%d", s.Turn))
}
func (p *listener) OnMessage(_ *event.Event, m event.Message) {
	p.log.add(p.name, fmt.Sprintf("Message:%s:%s", m.Sender, m.Data))
}
func (p *listener) OnKeyPressed(_ *event.Event, k event.Key) {
	p.log.add(p.name, fmt.Sprintf("KeyPressed:%c", k.Char))
}

// stuck never commits.
func stuck(ctx context.Context, _ *engine.Controller) error {
	<-ctx.Done()
	return nil
}

// testOpts returns the common options plus extra. Each call gets its own
// id generator, so every battle built from it is "battle-1".
func testOpts(extra ...Option) []Option {
	return append([]Option{
		WithTurnBudget(2 * time.Second),
		WithShutdownGrace(2 * time.Second),
		WithIDGenerator(engine.NewFixedGenerator("battle-1")),
	}, extra...)
}
