package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/arena/internal/event"
)

// Result is what the host hands an agent for one tick.
type Result struct {
	Tick int64

	// Outcome is nil for ticks that carry only host events.
	Outcome *Outcome

	// Events are host-generated payloads: skipped turns, team messages,
	// input, round lifecycle.
	Events []event.Payload

	// Halt marks the agent's final result for the round.
	Halt bool
}

// Peer is the host-side half of an agent. The host waits on it for
// commits and delivers results through it; the agent's Controller is the
// other half.
//
// A commit is answered with every result delivered since the previous
// answer, so an agent that overran its turn budget still sees the ticks it
// missed, including their SkippedTurn events.
type Peer struct {
	name string
	io   bool
	log  *slog.Logger

	submit  chan Commands
	results chan []Result
	haltCh  chan struct{}
	done    chan struct{}

	mu       sync.Mutex
	pending  []Result
	awaiting bool
	halted   bool
	removed  bool
	quota    *SkipQuota
	metrics  Metrics

	maxSkipped   int
	maxSkippedIO int
	doneOnce     sync.Once
}

// PeerOption configures a Peer.
type PeerOption func(*Peer)

// WithIO marks the agent as doing file I/O. I/O agents get the higher
// skipped-turn limit.
func WithIO(io bool) PeerOption {
	return func(p *Peer) {
		p.io = io
	}
}

// WithMaxSkippedTurns sets the consecutive skipped-turn limits for regular
// and I/O agents. Non-positive values keep the defaults.
func WithMaxSkippedTurns(regular, io int) PeerOption {
	return func(p *Peer) {
		if regular > 0 {
			p.maxSkipped = regular
		}
		if io > 0 {
			p.maxSkippedIO = io
		}
	}
}

// WithPeerLogger sets the logger for host-side notices about this agent.
func WithPeerLogger(l *slog.Logger) PeerOption {
	return func(p *Peer) {
		p.log = l
	}
}

// WithPeerMetrics sets the metrics sink for skipped turns and removals.
func WithPeerMetrics(m Metrics) PeerOption {
	return func(p *Peer) {
		if m != nil {
			p.metrics = m
		}
	}
}

// NewPeer creates the host side of agent name.
func NewPeer(name string, opts ...PeerOption) *Peer {
	p := &Peer{
		name:    name,
		log:     slog.Default().With("agent", name),
		submit:  make(chan Commands, 1),
		results: make(chan []Result, 1),
		haltCh:  make(chan struct{}),
		done:    make(chan struct{}),
		metrics: nopMetrics{},

		maxSkipped:   DefaultMaxSkippedTurns,
		maxSkippedIO: DefaultMaxSkippedTurnsIO,
	}
	for _, opt := range opts {
		opt(p)
	}
	limit := p.maxSkipped
	if p.io {
		limit = p.maxSkippedIO
	}
	p.quota = NewSkipQuota(limit)
	return p
}

func (p *Peer) Name() string { return p.name }
func (p *Peer) IO() bool     { return p.io }

// Alive reports whether the agent still takes part in the round.
func (p *Peer) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.halted
}

// Removed reports whether the agent was removed for skipped turns.
func (p *Peer) Removed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removed
}

// SkippedTurns returns the current consecutive skip count.
func (p *Peer) SkippedTurns() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quota.Consecutive()
}

// AwaitCommit blocks until the agent commits or ctx is done. The host
// passes a context carrying the tick's turn-budget deadline. Returns false
// when no commit arrived.
func (p *Peer) AwaitCommit(ctx context.Context) (Commands, bool) {
	if !p.Alive() {
		return Commands{}, false
	}
	select {
	case cmds := <-p.submit:
		return p.accept(cmds), true
	default:
	}
	select {
	case cmds := <-p.submit:
		return p.accept(cmds), true
	case <-ctx.Done():
		return Commands{}, false
	}
}

func (p *Peer) accept(cmds Commands) Commands {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.awaiting = true
	p.quota.Reset()
	return cmds
}

// RecordSkipped counts a tick without a commit. It returns a
// SkippedTurnsExceededError on the tick the limit is reached; the host
// then calls KillForSkippedTurns.
func (p *Peer) RecordSkipped(tick int64) error {
	p.mu.Lock()
	err := p.quota.Skip(p.name, tick)
	n := p.quota.Consecutive()
	p.mu.Unlock()

	p.metrics.TurnSkipped()
	p.log.Warn("SYSTEM: skipped turn", "tick", tick, "consecutive", n)
	return err
}

// Deliver queues a tick's result. If the agent's commit was consumed this
// tick, everything queued is handed over now.
func (p *Peer) Deliver(r Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.halted {
		return
	}
	p.pending = append(p.pending, r)
	p.flushLocked()
}

// Halt ends the agent's round. The final events (Death, or Win and
// RoundEnded) are delivered with the last result; commands issued while
// handling them are ignored.
func (p *Peer) Halt(tick int64, final ...event.Payload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.halted {
		return
	}
	p.pending = append(p.pending, Result{Tick: tick, Events: final, Halt: true})
	p.flushLocked()
	p.halted = true
	close(p.haltCh)
}

// KillForSkippedTurns removes the agent for the round with a Death event.
// The agent's goroutine may be stuck; it is not waited for.
func (p *Peer) KillForSkippedTurns(tick int64) {
	p.mu.Lock()
	if p.halted {
		p.mu.Unlock()
		return
	}
	p.removed = true
	n := p.quota.Consecutive()
	p.mu.Unlock()

	p.log.Warn("SYSTEM: agent removed for skipped turns", "tick", tick, "consecutive", n)
	p.metrics.AgentRemoved(RemovedSkippedTurns)
	p.Halt(tick, event.Death{})
}

// Done is closed when the agent goroutine has returned.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

func (p *Peer) markDone() {
	p.doneOnce.Do(func() { close(p.done) })
}

func (p *Peer) flushLocked() {
	if !p.awaiting || len(p.pending) == 0 {
		return
	}
	batch := p.pending
	p.pending = nil
	p.awaiting = false
	p.results <- batch
}

// commit is the agent side: submit commands and block until the tick that
// consumed them is answered, or the round ends for this agent.
func (p *Peer) commit(cmds Commands) []Result {
	p.mu.Lock()
	if p.halted {
		p.mu.Unlock()
		return p.drain()
	}
	p.mu.Unlock()

	select {
	case p.submit <- cmds:
	case <-p.haltCh:
		return p.drain()
	}
	select {
	case batch := <-p.results:
		return batch
	case <-p.haltCh:
		// A batch flushed just before the halt is answered on its own so
		// the final events are processed in a later pass.
		select {
		case batch := <-p.results:
			return batch
		default:
		}
		return p.drain()
	}
}

// take returns results queued before the agent's first commit, such as the
// round-start snapshot, without blocking.
func (p *Peer) take() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.awaiting {
		return nil
	}
	out := p.pending
	p.pending = nil
	return out
}

func (p *Peer) drain() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Result
	select {
	case batch := <-p.results:
		out = append(out, batch...)
	default:
	}
	out = append(out, p.pending...)
	p.pending = nil
	return out
}
