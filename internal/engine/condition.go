package engine

import (
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/arena/internal/event"
)

// Condition is a named predicate with a priority. Registered with
// Controller.AddCustomEvent it yields a Custom event on every tick its test
// returns true; passed to Controller.WaitFor it is the wake-up condition.
//
// The test must only read agent state. Commands issued from inside it fail
// with ACTION_IN_CONDITION.
//
// A condition is single-use with respect to Cleanup: once removed from the
// registry it is released and cannot be registered or waited on again.
type Condition struct {
	name     string
	priority int
	test     func() bool
	cleanup  func()
	released bool

	// log is the owning agent's logger, bound on first registration.
	// A clamp before then is held in clampedFrom until bind.
	log         *slog.Logger
	clampedFrom *int
}

// ConditionOption configures a Condition.
type ConditionOption func(*Condition)

// WithName sets the condition name. Names are NFC-normalized.
func WithName(name string) ConditionOption {
	return func(c *Condition) {
		c.name = norm.NFC.String(name)
	}
}

// WithPriority sets the priority of the Custom events the condition yields.
// Out-of-range values are clamped with a warning.
func WithPriority(p int) ConditionOption {
	return func(c *Condition) {
		c.SetPriority(p)
	}
}

// WithCleanup registers a hook run when the condition is unregistered.
func WithCleanup(fn func()) ConditionOption {
	return func(c *Condition) {
		c.cleanup = fn
	}
}

// conditionIDs synthesizes names for unnamed conditions.
var conditionIDs IDGenerator = UUIDv7Generator{}

// NewCondition creates a condition around test. A nil test is never true.
func NewCondition(test func() bool, opts ...ConditionOption) *Condition {
	c := &Condition{
		priority: event.DefaultPriority,
		test:     test,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.name == "" {
		c.name = "condition-" + conditionIDs.Generate()
	}
	return c
}

func (c *Condition) Name() string  { return c.name }
func (c *Condition) Priority() int { return c.priority }

// SetPriority changes the priority used for Custom events created from now
// on. Values outside [0,99] are clamped with a warning.
func (c *Condition) SetPriority(p int) {
	clamped, adjusted := event.ClampPriority(p)
	c.priority = clamped
	if !adjusted {
		c.clampedFrom = nil
		return
	}
	if c.log == nil {
		c.clampedFrom = &p
		return
	}
	c.warnClamped(p)
}

func (c *Condition) warnClamped(requested int) {
	c.log.Warn("SYSTEM: condition priority out of range, clamped",
		"condition", c.name, "requested", requested, "priority", c.priority)
}

// bind attaches the agent logger and reports a clamp that happened before
// the condition reached an agent.
func (c *Condition) bind(log *slog.Logger) {
	if c.log == nil {
		c.log = log
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.clampedFrom != nil {
		c.warnClamped(*c.clampedFrom)
		c.clampedFrom = nil
	}
}

// Test evaluates the predicate.
func (c *Condition) Test() bool {
	if c.test == nil {
		return false
	}
	return c.test()
}

// Cleanup runs the cleanup hook once and drops the predicate so the
// condition no longer holds references into agent state. The condition is
// released afterwards: AddCustomEvent and WaitFor reject it.
func (c *Condition) Cleanup() {
	if c.cleanup != nil {
		c.cleanup()
	}
	c.cleanup = nil
	c.test = nil
	c.released = true
}

// Released reports whether Cleanup has run.
func (c *Condition) Released() bool { return c.released }
