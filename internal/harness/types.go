package harness

import (
	"fmt"

	"github.com/roach88/arena/internal/battle"
)

// TraceEvent is one entry of a scenario trace: a delivered event, or a
// note an agent wrote from its script.
type TraceEvent struct {
	Round  int            `json:"round"`
	Agent  string         `json:"agent"`
	Index  int            `json:"index"` // delivery order within the agent's round
	Tick   int64          `json:"tick"`
	Kind   string         `json:"kind"` // event kind name, or "note"
	Note   string         `json:"note,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// KindNote marks trace entries written by the note step.
const KindNote = "note"

// Label is what trace_order matches: the kind name, or the note text.
func (e TraceEvent) Label() string {
	if e.Kind == KindNote {
		return e.Note
	}
	return e.Kind
}

func (e TraceEvent) String() string {
	return fmt.Sprintf("r%d %s #%d t%d %s", e.Round, e.Agent, e.Index, e.Tick, e.Label())
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every assertion and invariant held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent         `json:"trace"`
	Rounds []battle.RoundResult `json:"rounds"`
	Errors []string             `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AgentTrace returns the entries for one agent in one round.
func (r *Result) AgentTrace(round int, agent string) []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Round == round && e.Agent == agent {
			out = append(out, e)
		}
	}
	return out
}
