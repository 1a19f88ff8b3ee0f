package battle

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// SendInput queues a keyboard or mouse payload for agent. It is delivered
// with the next tick's result, to interactive agents only.
func (b *Battle) SendInput(agent string, p event.Payload) error {
	if p == nil || p.Kind().Capability() != event.CapInteractive {
		return fmt.Errorf("%v is not an input event", p)
	}
	agent = norm.NFC.String(agent)
	if !b.hasEntrant(agent) {
		return fmt.Errorf("unknown agent %q", agent)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inbox[agent] = append(b.inbox[agent], p)
	return nil
}

func (b *Battle) takeInput() map[string][]event.Payload {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.inbox
	b.inbox = make(map[string][]event.Payload)
	return out
}

// DebugProperties returns the properties agent has published. The map is
// a copy.
func (b *Battle) DebugProperties(agent string) map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.debug[agent]))
	for k, v := range b.debug[agent] {
		out[k] = v
	}
	return out
}

func (b *Battle) recordDebug(cmds map[string]engine.Commands) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, c := range cmds {
		if len(c.Debug) == 0 {
			continue
		}
		props := b.debug[name]
		if props == nil {
			props = make(map[string]string)
			b.debug[name] = props
		}
		for k, v := range c.Debug {
			if v == "" {
				delete(props, k)
				continue
			}
			props[k] = v
		}
	}
}

func (b *Battle) hasEntrant(name string) bool {
	for _, n := range b.order {
		if n == name {
			return true
		}
	}
	return false
}
