package engine

import (
	"github.com/roach88/arena/internal/event"
)

// customEvents is the agent's condition registry.
//
// Conditions are tested in registration order. Removing a condition during
// evaluation takes effect from the next pass.
type customEvents struct {
	conds []*Condition
}

// add registers c. Registering the same condition twice is a no-op.
func (r *customEvents) add(c *Condition) bool {
	for _, existing := range r.conds {
		if existing == c {
			return false
		}
	}
	r.conds = append(r.conds, c)
	return true
}

// remove unregisters c and runs its cleanup hook. Returns false if c was
// not registered.
func (r *customEvents) remove(c *Condition) bool {
	for i, existing := range r.conds {
		if existing == c {
			r.conds = append(r.conds[:i:i], r.conds[i+1:]...)
			c.Cleanup()
			return true
		}
	}
	return false
}

func (r *customEvents) clear() {
	for _, c := range r.conds {
		c.Cleanup()
	}
	r.conds = nil
}

func (r *customEvents) len() int { return len(r.conds) }

// evaluate tests every registered condition once with test and returns one
// Custom event per true condition, at that condition's current priority.
func (r *customEvents) evaluate(test func(*Condition) bool) []*event.Event {
	snapshot := make([]*Condition, len(r.conds))
	copy(snapshot, r.conds)

	var out []*event.Event
	for _, c := range snapshot {
		if !test(c) {
			continue
		}
		e := event.New(event.Custom{Condition: c})
		// Condition priorities are already clamped to [0,99].
		_ = e.SetPriority(c.Priority())
		out = append(out, e)
	}
	return out
}
