package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"
	"slices"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/arena/internal/event"
)

// Controller is the agent-facing handle for one agent and one round.
//
// All methods must be called from the agent's goroutine, either from
// Agent.Run or from a handler. Commands fail with NotAttachedError until
// Attach has been called.
type Controller struct {
	name     string
	log      *slog.Logger
	peer     *Peer
	handlers event.HandlerSet

	queue      *Queue
	queueLimit int
	optErr     error
	custom     customEvents
	disp       *dispatcher
	policy     DeliveryPolicy
	metrics    Metrics
	observer   DeliveryObserver
	priorities map[event.Kind]int

	staged Commands
	calls  callBudget

	status   event.Status
	tick     int64
	graphics event.Graphics

	inCondition bool
	draining    bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the agent's console. The default is slog.Default() with
// an "agent" attribute.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHandlers sets the capability-gated handlers, usually from Classify.
func WithHandlers(hs event.HandlerSet) ControllerOption {
	return func(c *Controller) {
		c.handlers = hs
	}
}

func WithMetrics(m Metrics) ControllerOption {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithObserver(o DeliveryObserver) ControllerOption {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithDeliveryPolicy replaces the default stale-event policy.
func WithDeliveryPolicy(p DeliveryPolicy) ControllerOption {
	return func(c *Controller) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithCallBudget sets how many staged calls are allowed between commits.
// Zero or less disables the limit.
func WithCallBudget(n int) ControllerOption {
	return func(c *Controller) {
		c.calls.limit = n
	}
}

// WithQueueLimit overrides MaxQueueSize.
func WithQueueLimit(n int) ControllerOption {
	return func(c *Controller) {
		c.queueLimit = n
	}
}

// WithPainting enables a Paint event every tick for agents with the paint
// capability, drawing on g.
func WithPainting(g event.Graphics) ControllerOption {
	return func(c *Controller) {
		c.graphics = g
	}
}

// WithEventPriorities presets per-kind priorities, as SetEventPriority
// would. The first rejected entry is returned by Attach.
func WithEventPriorities(priorities map[event.Kind]int) ControllerOption {
	return func(c *Controller) {
		for _, k := range slices.Sorted(maps.Keys(priorities)) {
			if err := c.setPriority("WithEventPriorities", k, priorities[k]); err != nil && c.optErr == nil {
				c.optErr = err
			}
		}
	}
}

// NewController creates an unattached controller for agent name.
func NewController(name string, opts ...ControllerOption) *Controller {
	name = norm.NFC.String(name)
	c := &Controller{
		name:       name,
		log:        slog.Default().With("agent", name),
		metrics:    nopMetrics{},
		observer:   nopObserver{},
		priorities: make(map[event.Kind]int),
		calls:      callBudget{limit: DefaultCallBudget},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.queue = NewQueue(c.queueLimit)
	c.disp = newDispatcher(name, c.log, c.queue, c.handlers)
	c.disp.metrics = c.metrics
	c.disp.observer = c.observer
	if c.policy != nil {
		c.disp.policy = c.policy
	}
	return c
}

// Attach connects the controller to its host-side Peer. It fails if an
// option given to NewController was rejected.
func (c *Controller) Attach(p *Peer) error {
	if c.optErr != nil {
		return c.optErr
	}
	if p == nil {
		return newInvalidArgument(c.name, "Attach", "peer must not be nil", nil)
	}
	c.peer = p
	return nil
}

func (c *Controller) Name() string                   { return c.name }
func (c *Controller) Logger() *slog.Logger           { return c.log }
func (c *Controller) Handlers() event.HandlerSet     { return c.handlers }
func (c *Controller) Capabilities() event.Capability { return c.handlers.Caps }

// Execute commits the staged commands and blocks until the tick that
// applies them has been simulated. Events generated by that tick, and by
// any ticks the agent missed, are dispatched before Execute returns.
func (c *Controller) Execute() error {
	if err := c.check("Execute"); err != nil {
		return err
	}
	if c.draining {
		return nil
	}
	cmds := c.staged
	c.staged = Commands{}
	c.calls.reset()

	if c.absorb(c.peer.commit(cmds)) {
		c.halt()
	}
	c.process()
	return nil
}

// WaitFor commits ticks until cond tests true. At least one tick always
// elapses: a condition false for N ticks and then true returns after N+1.
func (c *Controller) WaitFor(cond *Condition) error {
	if err := c.check("WaitFor"); err != nil {
		return err
	}
	if err := c.checkCondition("WaitFor", cond); err != nil {
		return err
	}
	for {
		if err := c.Execute(); err != nil {
			return err
		}
		if c.draining || c.testCondition(cond) {
			return nil
		}
	}
}

// start absorbs results delivered before the agent's first commit.
func (c *Controller) start() {
	if c.absorb(c.peer.take()) {
		c.halt()
	}
	c.process()
}

// absorb turns results into queued events. Returns true if one of them
// halts the agent.
func (c *Controller) absorb(results []Result) bool {
	halt := false
	for _, r := range results {
		c.tick = r.Tick
		if r.Outcome != nil {
			c.status = r.Outcome.Status
			for _, p := range r.Outcome.Payloads() {
				c.enqueue(p)
			}
		}
		for _, p := range r.Events {
			c.enqueue(p)
		}
		if c.graphics != nil && !r.Halt && c.handlers.Accepts(event.KindPaint) {
			c.enqueue(event.Paint{Graphics: c.graphics})
		}
		if r.Halt {
			halt = true
		}
	}
	return halt
}

func (c *Controller) enqueue(p event.Payload) {
	e := event.New(p)
	e.SetLogger(c.log)
	if !e.IsCritical() && e.Kind() != event.KindCustom {
		if prio, ok := c.priorities[e.Kind()]; ok {
			_ = e.SetPriority(prio)
		}
	}
	c.add(e)
}

func (c *Controller) add(e *event.Event) {
	e.SetLogger(c.log)
	pruned, err := c.queue.Add(e, c.tick)
	for range pruned {
		c.metrics.EventDropped(DropStale)
	}
	if err != nil {
		c.metrics.EventDropped(DropQueueFull)
		c.log.Warn("SYSTEM: event queue full, event dropped",
			"kind", e.Kind().String(), "tick", c.tick, "error", err)
	}
}

// process runs one processing pass: prune, test conditions, dispatch.
func (c *Controller) process() {
	for range c.queue.PruneThrough(c.tick - MaxEventStack) {
		c.metrics.EventDropped(DropStale)
	}
	for _, e := range c.custom.evaluate(c.testCondition) {
		c.add(e)
	}
	c.disp.run(c.tick)
}

// halt delivers what is left and unwinds the agent goroutine.
func (c *Controller) halt() {
	c.draining = true
	c.disp.flush(c.tick)
	panic(haltSignal{})
}

// testCondition evaluates cond with commands disabled. A panicking test
// counts as false.
func (c *Controller) testCondition(cond *Condition) (ok bool) {
	prev := c.inCondition
	c.inCondition = true
	defer func() {
		c.inCondition = prev
		if r := recover(); r != nil {
			if _, halt := r.(haltSignal); halt {
				panic(r)
			}
			c.log.Error(fmt.Sprintf("SYSTEM: panic occurred in condition %s", cond.Name()),
				"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			ok = false
		}
	}()
	return cond.Test()
}

// check guards every command.
func (c *Controller) check(call string) error {
	if c.peer == nil {
		return &NotAttachedError{Call: call}
	}
	if c.inCondition {
		return &RuntimeError{
			Code:    ErrCodeActionInCondition,
			Message: "commands are not allowed inside a condition test",
			Agent:   c.name,
			Call:    call,
		}
	}
	return nil
}

// checkStaged guards staged calls and charges the call budget.
func (c *Controller) checkStaged(call string) error {
	if err := c.check(call); err != nil {
		return err
	}
	if n, ok := c.calls.use(); !ok {
		if n == c.calls.limit+1 {
			c.log.Error("SYSTEM: too many calls without a commit, agent disabled until it commits",
				"limit", c.calls.limit)
		}
		return newDisabledError(c.name, call, n, c.calls.limit)
	}
	return nil
}
