package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/arena/internal/event"
)

// testAgent records every delivery except Status and lets tests hook
// individual kinds.
type testAgent struct {
	event.NopBasic
	event.NopAdvanced

	run   func(ctx context.Context, c *Controller) error
	hooks map[event.Kind]func(c *Controller, e *event.Event)

	c   *Controller
	mu  sync.Mutex
	log []string
}

func newTestAgent(run func(ctx context.Context, c *Controller) error) *testAgent {
	return &testAgent{run: run, hooks: make(map[event.Kind]func(*Controller, *event.Event))}
}

func (a *testAgent) Run(ctx context.Context, c *Controller) error {
	a.c = c
	if a.run != nil {
		return a.run(ctx, c)
	}
	for ctx.Err() == nil {
		if err := c.DoNothing(); err != nil {
			return err
		}
	}
	return nil
}

func (a *testAgent) note(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.log = append(a.log, fmt.Sprintf(format, args...))
}

func (a *testAgent) entries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.log...)
}

func (a *testAgent) handle(e *event.Event, label string) {
	a.note("%s", label)
	if hook, ok := a.hooks[e.Kind()]; ok {
		hook(a.c, e)
	}
}

func (a *testAgent) OnScannedAgent(e *event.Event, s event.ScannedAgent) {
	a.handle(e, fmt.Sprintf("ScannedAgent:%s:%g", s.Name, s.Distance))
}
func (a *testAgent) OnHitWall(e *event.Event, _ event.HitWall) { a.handle(e, "HitWall") }
func (a *testAgent) OnProjectileHit(e *event.Event, _ event.ProjectileHit) {
	a.handle(e, "ProjectileHit")
}
func (a *testAgent) OnProjectileMissed(e *event.Event, _ event.ProjectileMissed) {
	a.handle(e, "ProjectileMissed")
}
func (a *testAgent) OnAgentDeath(e *event.Event, d event.AgentDeath) {
	a.handle(e, "AgentDeath:"+d.Name)
}
func (a *testAgent) OnDeath(e *event.Event) { a.handle(e, "Death") }
func (a *testAgent) OnWin(e *event.Event)   { a.handle(e, "Win") }
func (a *testAgent) OnRoundEnded(e *event.Event, _ event.RoundEnded) {
	a.handle(e, "RoundEnded")
}
func (a *testAgent) OnCustom(e *event.Event, c event.Custom) {
	a.handle(e, fmt.Sprintf("Custom:%s@%d", c.Condition.Name(), e.Time()))
}
func (a *testAgent) OnSkippedTurn(e *event.Event, s event.SkippedTurn) {
	a.handle(e, fmt.Sprintf("SkippedTurn:%d", s.Turn))
}

// testHost plays the battle side of one agent.
type testHost struct {
	t    *testing.T
	peer *Peer
	tick int64
}

func startAgent(t *testing.T, agent Agent, opts ...ControllerOption) (*testHost, *Controller) {
	t.Helper()
	peer := NewPeer("tester", WithMaxSkippedTurns(30, 240))
	opts = append([]ControllerOption{WithHandlers(Classify(agent))}, opts...)
	c := NewController("tester", opts...)
	require.NoError(t, c.Attach(peer))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = c.Run(ctx, agent) }()

	h := &testHost{t: t, peer: peer}
	t.Cleanup(func() {
		h.finish()
		cancel()
	})
	return h, c
}

// await blocks until the agent commits.
func (h *testHost) await() Commands {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cmds, ok := h.peer.AwaitCommit(ctx)
	require.True(h.t, ok, "agent did not commit")
	return cmds
}

// step waits for a commit and answers it with the next tick.
func (h *testHost) step(o *Outcome, events ...event.Payload) Commands {
	h.t.Helper()
	cmds := h.await()
	h.tick++
	h.peer.Deliver(Result{Tick: h.tick, Outcome: o, Events: events})
	return cmds
}

// finish ends the round and waits for the agent goroutine.
func (h *testHost) finish() {
	h.peer.Halt(h.tick+1, event.RoundEnded{Round: 1, Turns: h.tick})
	select {
	case <-h.peer.Done():
	case <-time.After(2 * time.Second):
		h.t.Error("agent goroutine did not stop")
	}
}
