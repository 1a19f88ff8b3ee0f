package engine

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/roach88/arena/internal/event"
)

// Staged commands. Each records one value for its axis; a later call for
// the same axis before the commit replaces it.

// SetMove stages a move of distance units; negative moves backwards.
func (c *Controller) SetMove(distance float64) error {
	return c.stageAxis("SetMove", &c.staged.Move, distance)
}

// SetTurnBody stages a body turn in degrees, positive clockwise.
func (c *Controller) SetTurnBody(degrees float64) error {
	return c.stageAxis("SetTurnBody", &c.staged.TurnBody, degrees)
}

func (c *Controller) SetTurnGun(degrees float64) error {
	return c.stageAxis("SetTurnGun", &c.staged.TurnGun, degrees)
}

func (c *Controller) SetTurnRadar(degrees float64) error {
	return c.stageAxis("SetTurnRadar", &c.staged.TurnRadar, degrees)
}

// SetFire stages a shot. Physics bounds the power and ignores the shot
// while the gun is hot.
func (c *Controller) SetFire(power float64) error {
	return c.stageAxis("SetFire", &c.staged.Fire, power)
}

// SetMaxVelocity caps the agent's speed from the next tick on.
func (c *Controller) SetMaxVelocity(v float64) error {
	return c.stageAxis("SetMaxVelocity", &c.staged.MaxVelocity, v)
}

func (c *Controller) stageAxis(call string, axis *Staged, v float64) error {
	if err := c.checkStaged(call); err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return newInvalidArgument(c.name, call, fmt.Sprintf("value %v is not finite", v), nil)
	}
	if c.draining {
		return nil
	}
	*axis = stage(v)
	return nil
}

// SetDebugProperty publishes a key/value pair to the host. Keys are
// trimmed and characters outside [A-Za-z0-9_.-] are replaced, with a
// warning. An empty value deletes the key.
func (c *Controller) SetDebugProperty(key, value string) error {
	if err := c.checkStaged("SetDebugProperty"); err != nil {
		return err
	}
	clean := sanitizeKey(key)
	if clean == "" {
		c.log.Warn("SYSTEM: debug property key is empty, ignored", "key", key)
		return nil
	}
	if clean != key {
		c.log.Warn("SYSTEM: debug property key sanitized", "key", key, "sanitized", clean)
	}
	if c.staged.Debug == nil {
		c.staged.Debug = make(map[string]string)
	}
	c.staged.Debug[clean] = value
	return nil
}

func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		}
		return '_'
	}, strings.TrimSpace(key))
}

// SendMessage queues data for teammate to. It is delivered as a Message
// event on the next tick. The data is copied.
func (c *Controller) SendMessage(to string, data []byte) error {
	if err := c.checkStaged("SendMessage"); err != nil {
		return err
	}
	if !c.handlers.Caps.Has(event.CapTeam) {
		return &RuntimeError{
			Code:    ErrCodeCapabilityMissing,
			Message: "team messaging requires the team capability",
			Agent:   c.name,
			Call:    "SendMessage",
		}
	}
	c.staged.Messages = append(c.staged.Messages, OutgoingMessage{
		To:   to,
		Data: append([]byte(nil), data...),
	})
	return nil
}

// BroadcastMessage sends data to every teammate.
func (c *Controller) BroadcastMessage(data []byte) error {
	return c.SendMessage("", data)
}

// Immediate commands. Each stages its value and commits until the action
// is complete.

// Move moves distance units and returns once the move is done or blocked.
func (c *Controller) Move(distance float64) error {
	if err := c.SetMove(distance); err != nil {
		return err
	}
	return c.executeUntil(func() bool { return c.status.DistanceRemaining == 0 })
}

func (c *Controller) TurnBody(degrees float64) error {
	if err := c.SetTurnBody(degrees); err != nil {
		return err
	}
	return c.executeUntil(func() bool { return c.status.BodyTurnRemaining == 0 })
}

func (c *Controller) TurnGun(degrees float64) error {
	if err := c.SetTurnGun(degrees); err != nil {
		return err
	}
	return c.executeUntil(func() bool { return c.status.GunTurnRemaining == 0 })
}

func (c *Controller) TurnRadar(degrees float64) error {
	if err := c.SetTurnRadar(degrees); err != nil {
		return err
	}
	return c.executeUntil(func() bool { return c.status.RadarTurnRemaining == 0 })
}

// Fire shoots and commits one tick.
func (c *Controller) Fire(power float64) error {
	if err := c.SetFire(power); err != nil {
		return err
	}
	return c.Execute()
}

// Scan sweeps the radar over its current arc and commits one tick.
func (c *Controller) Scan() error {
	if err := c.check("Scan"); err != nil {
		return err
	}
	c.staged.Scan = true
	return c.Execute()
}

// Rescan is Scan for use inside a ScannedAgent handler: it makes the
// running handler interruptible so a fresh scan restarts it.
func (c *Controller) Rescan() error {
	if err := c.check("Rescan"); err != nil {
		return err
	}
	if cur := c.disp.current; cur != nil && cur.Kind() == event.KindScannedAgent {
		c.disp.setInterruptible(c.disp.topPriority, true)
	}
	c.staged.Scan = true
	return c.Execute()
}

// DoNothing commits one tick.
func (c *Controller) DoNothing() error {
	return c.Execute()
}

func (c *Controller) executeUntil(done func() bool) error {
	for {
		if err := c.Execute(); err != nil {
			return err
		}
		if c.draining || done() {
			return nil
		}
	}
}

// SetInterruptible marks the running handler's priority class. While set,
// a pending event at or above that priority abandons the handler at its
// next commit. The flag clears when a handler of the class completes.
// Outside a handler it has no effect.
func (c *Controller) SetInterruptible(on bool) error {
	if err := c.check("SetInterruptible"); err != nil {
		return err
	}
	if c.draining || c.disp.current == nil {
		return nil
	}
	c.disp.setInterruptible(c.disp.topPriority, on)
	return nil
}

// Custom events.

// AddCustomEvent registers cond. From the next processing pass on, every
// tick it tests true yields one Custom event.
func (c *Controller) AddCustomEvent(cond *Condition) error {
	if err := c.check("AddCustomEvent"); err != nil {
		return err
	}
	if err := c.checkCondition("AddCustomEvent", cond); err != nil {
		return err
	}
	c.custom.add(cond)
	return nil
}

// checkCondition rejects nil and released conditions, and binds the rest to
// the agent logger.
func (c *Controller) checkCondition(call string, cond *Condition) error {
	if cond == nil {
		return newInvalidArgument(c.name, call, "condition must not be nil", nil)
	}
	if cond.Released() {
		return newInvalidArgument(c.name, call,
			fmt.Sprintf("condition %s was cleaned up and cannot be reused", cond.Name()), nil)
	}
	cond.bind(c.log)
	return nil
}

// RemoveCustomEvent unregisters cond and runs its cleanup hook.
func (c *Controller) RemoveCustomEvent(cond *Condition) error {
	if err := c.check("RemoveCustomEvent"); err != nil {
		return err
	}
	if cond == nil {
		return newInvalidArgument(c.name, "RemoveCustomEvent", "condition must not be nil", nil)
	}
	c.custom.remove(cond)
	return nil
}

// Priorities.

// SetEventPriority changes the priority of kind for events enqueued from
// now on. Critical kinds and the reserved values 100 and -1 are rejected;
// other out-of-range values are clamped with a warning.
func (c *Controller) SetEventPriority(kind event.Kind, priority int) error {
	if err := c.check("SetEventPriority"); err != nil {
		return err
	}
	return c.setPriority("SetEventPriority", kind, priority)
}

func (c *Controller) setPriority(call string, kind event.Kind, priority int) error {
	if !kind.Valid() {
		return newInvalidArgument(c.name, call, fmt.Sprintf("unknown event kind %d", int(kind)), nil)
	}
	if kind.Critical() || event.IsReservedPriority(priority) {
		c.log.Warn("SYSTEM: reserved event priority cannot be changed",
			"kind", kind.String(), "requested", priority, "priority", c.EventPriority(kind))
		return newInvalidArgument(c.name, call,
			fmt.Sprintf("cannot set priority %d for %s", priority, kind), event.ErrReservedPriority)
	}
	clamped, adjusted := event.ClampPriority(priority)
	if adjusted {
		c.log.Warn("SYSTEM: priority out of range, clamped",
			"kind", kind.String(), "requested", priority, "priority", clamped)
	}
	c.priorities[kind] = clamped
	return nil
}

// CheckEventPriorities reports the first entry of a priority table that
// SetEventPriority would reject, in kind order. Out-of-range values are not
// errors; they are clamped when applied.
func CheckEventPriorities(priorities map[event.Kind]int) error {
	for _, kind := range slices.Sorted(maps.Keys(priorities)) {
		priority := priorities[kind]
		if !kind.Valid() {
			return newInvalidArgument("", "CheckEventPriorities", fmt.Sprintf("unknown event kind %d", int(kind)), nil)
		}
		if kind.Critical() || event.IsReservedPriority(priority) {
			return newInvalidArgument("", "CheckEventPriorities",
				fmt.Sprintf("cannot set priority %d for %s", priority, kind), event.ErrReservedPriority)
		}
	}
	return nil
}

// EventPriority returns the priority new events of kind receive.
func (c *Controller) EventPriority(kind event.Kind) int {
	if p, ok := c.priorities[kind]; ok {
		return p
	}
	return kind.DefaultPriority()
}

// Queue accessors.

// AllEvents returns the pending events in delivery order.
func (c *Controller) AllEvents() ([]*event.Event, error) {
	if err := c.check("AllEvents"); err != nil {
		return nil, err
	}
	return c.queue.All(), nil
}

// Events returns the pending events of kind in delivery order.
func (c *Controller) Events(kind event.Kind) ([]*event.Event, error) {
	if err := c.check("Events"); err != nil {
		return nil, err
	}
	return c.queue.Filter(kind), nil
}

// EventsOf returns the payloads of pending events of type T, for example
// EventsOf[event.ScannedAgent](c).
func EventsOf[T event.Payload](c *Controller) ([]T, error) {
	var zero T
	events, err := c.Events(zero.Kind())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(events))
	for _, e := range events {
		if p, ok := e.Payload().(T); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// ClearAllEvents drops pending non-critical events.
func (c *Controller) ClearAllEvents() error {
	if err := c.check("ClearAllEvents"); err != nil {
		return err
	}
	c.queue.Clear(false)
	return nil
}

// Status getters read the snapshot from the most recent tick.

func (c *Controller) Time() int64                 { return c.tick }
func (c *Controller) Round() int                  { return c.status.Round }
func (c *Controller) Status() event.Status        { return c.status }
func (c *Controller) X() float64                  { return c.status.X }
func (c *Controller) Y() float64                  { return c.status.Y }
func (c *Controller) Heading() float64            { return c.status.Heading }
func (c *Controller) GunHeading() float64         { return c.status.GunHeading }
func (c *Controller) RadarHeading() float64       { return c.status.RadarHeading }
func (c *Controller) Velocity() float64           { return c.status.Velocity }
func (c *Controller) Energy() float64             { return c.status.Energy }
func (c *Controller) GunHeat() float64            { return c.status.GunHeat }
func (c *Controller) DistanceRemaining() float64  { return c.status.DistanceRemaining }
func (c *Controller) BodyTurnRemaining() float64  { return c.status.BodyTurnRemaining }
func (c *Controller) GunTurnRemaining() float64   { return c.status.GunTurnRemaining }
func (c *Controller) RadarTurnRemaining() float64 { return c.status.RadarTurnRemaining }
func (c *Controller) Others() int                 { return c.status.Others }
