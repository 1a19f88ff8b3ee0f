package battle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

const (
	DefaultRounds        = 1
	DefaultMaxTicks      = 10000
	DefaultTurnBudget    = 50 * time.Millisecond
	DefaultShutdownGrace = 2 * time.Second
)

const tracerName = "github.com/roach88/arena/internal/battle"

// ErrNoEntrants is returned by New for an empty battle.
var ErrNoEntrants = errors.New("battle has no entrants")

// Physics simulates the battlefield.
type Physics interface {
	// Reset places every agent for round and returns their start snapshots.
	Reset(round int) (map[string]event.Status, error)
	// Step applies one tick of commands. Agents absent from cmds did not
	// commit this tick.
	Step(ctx context.Context, tick int64, cmds map[string]engine.Commands) (map[string]engine.Outcome, error)
	// Remove takes an agent out of the current round.
	Remove(name string)
}

// Metrics is the engine metrics sink plus host-level measurements.
type Metrics interface {
	engine.Metrics
	ObserveTick(d time.Duration)
	SetLiveAgents(n int)
}

// Recorder supplies a delivery observer per round, typically a journal.
type Recorder interface {
	RoundObserver(round int) engine.DeliveryObserver
}

// Entrant is one agent taking part in the battle. New is called at the
// start of every round for a fresh agent value.
type Entrant struct {
	Name       string
	Team       string
	IO         bool
	Priorities map[event.Kind]int
	New        func() engine.Agent
}

// Removal reports an agent taken out of a round for skipped turns.
type Removal struct {
	Agent  string
	Round  int
	Tick   int64
	Reason string
}

type seat struct {
	entrant Entrant
	peer    *engine.Peer
	ctrl    *engine.Controller
	status  event.Status
}

// Battle hosts a multi-round match.
//
// Run, StartRound, Advance and EndRound must be called from one
// goroutine. SendInput and DebugProperties are safe from any goroutine.
type Battle struct {
	id       string
	name     string
	entrants []Entrant
	physics  Physics

	rounds       int
	maxTicks     int64
	turnBudget   time.Duration
	grace        time.Duration
	maxSkipped   int
	maxSkippedIO int
	callBudget   int

	log      *slog.Logger
	metrics  Metrics
	recorder Recorder
	graphics event.Graphics
	tracer   trace.Tracer
	clock    *engine.Clock
	removals chan Removal

	round       int
	totalTurns  int64
	roundCtx    context.Context
	cancelRound context.CancelFunc
	roundSpan   trace.Span
	seats       map[string]*seat
	order       []string
	fallen      []string
	scores      map[string]int

	mu    sync.Mutex
	inbox map[string][]event.Payload
	debug map[string]map[string]string
}

// Option configures a Battle.
type Option func(*Battle)

func WithName(name string) Option {
	return func(b *Battle) { b.name = name }
}

// WithIDGenerator sets the source of the battle ID.
func WithIDGenerator(g engine.IDGenerator) Option {
	return func(b *Battle) { b.id = g.Generate() }
}

func WithRounds(n int) Option {
	return func(b *Battle) {
		if n > 0 {
			b.rounds = n
		}
	}
}

// WithMaxTicks ends a round after n ticks even if several agents survive.
func WithMaxTicks(n int64) Option {
	return func(b *Battle) {
		if n > 0 {
			b.maxTicks = n
		}
	}
}

// WithTurnBudget sets how long the host waits for commits each tick.
func WithTurnBudget(d time.Duration) Option {
	return func(b *Battle) {
		if d > 0 {
			b.turnBudget = d
		}
	}
}

// WithShutdownGrace sets how long EndRound waits for agents to unwind.
func WithShutdownGrace(d time.Duration) Option {
	return func(b *Battle) {
		if d > 0 {
			b.grace = d
		}
	}
}

// WithMaxSkippedTurns overrides the skipped-turn limits for regular and
// I/O agents.
func WithMaxSkippedTurns(regular, io int) Option {
	return func(b *Battle) {
		b.maxSkipped, b.maxSkippedIO = regular, io
	}
}

func WithCallBudget(n int) Option {
	return func(b *Battle) { b.callBudget = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Battle) {
		if l != nil {
			b.log = l
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(b *Battle) {
		if m != nil {
			b.metrics = m
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(b *Battle) { b.recorder = r }
}

// WithGraphics enables Paint events for paint-capable agents.
func WithGraphics(g event.Graphics) Option {
	return func(b *Battle) { b.graphics = g }
}

// New creates a battle between entrants on physics.
func New(physics Physics, entrants []Entrant, opts ...Option) (*Battle, error) {
	if len(entrants) == 0 {
		return nil, ErrNoEntrants
	}
	if physics == nil {
		return nil, errors.New("battle needs a physics model")
	}
	b := &Battle{
		id:         engine.UUIDv7Generator{}.Generate(),
		name:       "battle",
		physics:    physics,
		rounds:     DefaultRounds,
		maxTicks:   DefaultMaxTicks,
		turnBudget: DefaultTurnBudget,
		grace:      DefaultShutdownGrace,
		callBudget: engine.DefaultCallBudget,
		log:        slog.Default(),
		metrics:    nopMetrics{},
		tracer:     otel.Tracer(tracerName),
		clock:      engine.NewClock(),
		scores:     make(map[string]int),
		inbox:      make(map[string][]event.Payload),
		debug:      make(map[string]map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}

	seen := make(map[string]bool, len(entrants))
	for _, e := range entrants {
		e.Name = norm.NFC.String(e.Name)
		e.Team = norm.NFC.String(e.Team)
		if e.Name == "" {
			return nil, errors.New("entrant name must not be empty")
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate entrant %q", e.Name)
		}
		if e.New == nil {
			return nil, fmt.Errorf("entrant %q has no agent", e.Name)
		}
		if err := engine.CheckEventPriorities(e.Priorities); err != nil {
			return nil, fmt.Errorf("entrant %q: %w", e.Name, err)
		}
		seen[e.Name] = true
		b.entrants = append(b.entrants, e)
		b.order = append(b.order, e.Name)
	}
	b.removals = make(chan Removal, len(entrants)*b.rounds)
	return b, nil
}

func (b *Battle) ID() string   { return b.id }
func (b *Battle) Name() string { return b.name }
func (b *Battle) Rounds() int  { return b.rounds }

// Round is the current round, starting at 1.
func (b *Battle) Round() int { return b.round }

// Tick is the current tick of the round.
func (b *Battle) Tick() int64 { return b.clock.Current() }

// Removals reports agents removed for skipped turns. The channel is
// buffered for one removal per entrant and round, and never closed.
func (b *Battle) Removals() <-chan Removal { return b.removals }

// Entrants returns the entrant names in registration order.
func (b *Battle) Entrants() []string {
	return append([]string(nil), b.order...)
}

type nopMetrics struct{}

func (nopMetrics) EventDispatched(event.Kind) {}
func (nopMetrics) EventDropped(string)        {}
func (nopMetrics) HandlerInterrupted()        {}
func (nopMetrics) TurnSkipped()               {}
func (nopMetrics) AgentRemoved(string)        {}
func (nopMetrics) ObserveTick(time.Duration)  {}
func (nopMetrics) SetLiveAgents(int)          {}
