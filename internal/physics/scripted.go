package physics

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// Script maps a tick to the outcome each agent sees on it.
type Script map[int64]map[string]engine.Outcome

// Scripted replays a Script. Agents without an entry for a tick, or with
// an entry that leaves Status zero, get a plain Status. It records every
// command map it is stepped with.
type Scripted struct {
	mu       sync.Mutex
	names    []string
	script   Script
	round    int
	removed  map[string]bool
	received []map[string]engine.Commands
}

func NewScripted(names []string, script Script) *Scripted {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	if script == nil {
		script = Script{}
	}
	return &Scripted{names: sorted, script: script, removed: make(map[string]bool)}
}

func (s *Scripted) Reset(round int) (map[string]event.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.round = round
	s.removed = make(map[string]bool)
	out := make(map[string]event.Status, len(s.names))
	for _, name := range s.names {
		out[name] = s.baseStatus()
	}
	return out, nil
}

func (s *Scripted) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed[name] = true
}

func (s *Scripted) Step(ctx context.Context, tick int64, cmds map[string]engine.Commands) (map[string]engine.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]engine.Commands, len(cmds))
	for k, v := range cmds {
		copied[k] = v
	}
	s.received = append(s.received, copied)

	out := make(map[string]engine.Outcome)
	for _, name := range s.names {
		if s.removed[name] {
			continue
		}
		o := s.script[tick][name]
		if o.Status == (event.Status{}) {
			o.Status = s.baseStatus()
		}
		o.Status.Round = s.round
		if o.Died {
			s.removed[name] = true
		}
		out[name] = o
	}
	return out, nil
}

// Received returns the command maps of every step so far.
func (s *Scripted) Received() []map[string]engine.Commands {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]engine.Commands(nil), s.received...)
}

func (s *Scripted) baseStatus() event.Status {
	others := 0
	for _, name := range s.names {
		if !s.removed[name] {
			others++
		}
	}
	if others > 0 {
		others--
	}
	return event.Status{Round: s.round, Energy: StartEnergy, Others: others}
}
