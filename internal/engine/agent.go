package engine

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/roach88/arena/internal/event"
)

// Agent is the code that drives one combatant. Run is called once per
// round on the agent's own goroutine. Returning early is fine: the agent
// then idles, committing empty turns until the round ends.
type Agent interface {
	Run(ctx context.Context, c *Controller) error
}

// CapabilityDeclarer narrows the capabilities Classify infers. An agent
// that embeds every Nop handler but only declares CapBasic receives only
// basic events.
type CapabilityDeclarer interface {
	Capabilities() event.Capability
}

// Classify builds the handler set for an agent from the handler
// interfaces it implements.
func Classify(agent any) event.HandlerSet {
	var hs event.HandlerSet
	if h, ok := agent.(event.BasicEvents); ok {
		hs.Basic = h
		hs.Caps |= event.CapBasic
	}
	if h, ok := agent.(event.AdvancedEvents); ok {
		hs.Advanced = h
		hs.Caps |= event.CapAdvanced
	}
	if h, ok := agent.(event.InteractiveEvents); ok {
		hs.Interactive = h
		hs.Caps |= event.CapInteractive
	}
	if h, ok := agent.(event.PaintEvents); ok {
		hs.Paint = h
		hs.Caps |= event.CapPaint
	}
	if h, ok := agent.(event.TeamEvents); ok {
		hs.Team = h
		hs.Caps |= event.CapTeam
	}
	if d, ok := agent.(CapabilityDeclarer); ok {
		hs.Caps &= d.Capabilities()
	}
	return hs
}

// Run drives agent on the calling goroutine until the round ends for it.
//
// Death, removal and round end unwind the agent's stack; Run then returns
// nil. An error or panic from agent code is logged to the agent console
// and the agent idles for the rest of the round.
func (c *Controller) Run(ctx context.Context, agent Agent) error {
	if c.peer == nil {
		return &NotAttachedError{Call: "Run"}
	}
	defer c.peer.markDone()

	if halted, _ := c.guard(c.start); halted {
		return nil
	}

	halted, err := c.guard(func() {
		if runErr := agent.Run(ctx, c); runErr != nil {
			c.log.Error("SYSTEM: agent stopped with error", "error", runErr)
		}
	})
	if halted {
		return nil
	}
	if err != nil {
		c.log.Error("SYSTEM: agent stopped", "error", err)
	}

	for ctx.Err() == nil {
		halted, _ := c.guard(func() { _ = c.DoNothing() })
		if halted {
			return nil
		}
	}
	return ctx.Err()
}

// guard runs fn, turning a halt into halted=true and any other panic into
// an error.
func (c *Controller) guard(fn func()) (halted bool, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(haltSignal); ok {
			halted = true
			return
		}
		err = fmt.Errorf("panic: %v", r)
		c.log.Error("SYSTEM: panic in agent code", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
	}()
	fn()
	return false, nil
}
