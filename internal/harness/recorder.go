package harness

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

// traceRecorder collects deliveries and notes from every agent goroutine
// and forwards deliveries to the journal.
type traceRecorder struct {
	journal interface {
		RoundObserver(round int) engine.DeliveryObserver
	}

	mu      sync.Mutex
	entries []TraceEvent
	next    map[traceKey]int
}

type traceKey struct {
	round int
	agent string
}

func newTraceRecorder(journal interface {
	RoundObserver(round int) engine.DeliveryObserver
}) *traceRecorder {
	return &traceRecorder{journal: journal, next: make(map[traceKey]int)}
}

func (r *traceRecorder) RoundObserver(round int) engine.DeliveryObserver {
	var forward engine.DeliveryObserver
	if r.journal != nil {
		forward = r.journal.RoundObserver(round)
	}
	return &roundRecorder{rec: r, round: round, forward: forward}
}

func (r *traceRecorder) add(e TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := traceKey{e.Round, e.Agent}
	r.next[k]++
	e.Index = r.next[k]
	r.entries = append(r.entries, e)
}

func (r *traceRecorder) note(round int, agent string, tick int64, text string) {
	r.add(TraceEvent{Round: round, Agent: agent, Tick: tick, Kind: KindNote, Note: text})
}

// trace returns the entries ordered by round, agent and index.
func (r *traceRecorder) trace() []TraceEvent {
	r.mu.Lock()
	out := append([]TraceEvent(nil), r.entries...)
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		if a.Agent != b.Agent {
			return a.Agent < b.Agent
		}
		return a.Index < b.Index
	})
	return out
}

type roundRecorder struct {
	rec     *traceRecorder
	round   int
	forward engine.DeliveryObserver
}

func (o *roundRecorder) ObserveDelivery(agent string, e *event.Event) {
	o.rec.add(TraceEvent{
		Round:  o.round,
		Agent:  agent,
		Tick:   e.Time(),
		Kind:   e.Kind().String(),
		Fields: payloadFields(e.Payload()),
	})
	if o.forward != nil {
		o.forward.ObserveDelivery(agent, e)
	}
}

// payloadFields flattens a payload for field assertions. Kinds that do not
// serialize report the fields scenarios can match on.
func payloadFields(p event.Payload) map[string]any {
	switch v := p.(type) {
	case event.Message:
		return map[string]any{"sender": v.Sender, "data": string(v.Data)}
	case event.Custom:
		if v.Condition == nil {
			return nil
		}
		return map[string]any{"condition": v.Condition.Name()}
	}
	raw, err := event.MarshalPayload(p)
	if err != nil {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return nil
	}
	return fields
}
