package harness

import (
	"fmt"

	"github.com/roach88/arena/internal/event"
)

// CheckInvariants verifies delivery properties every trace must have, per
// agent and round:
//
//   - nothing is delivered after Death
//   - Death, Win, RoundEnded and BattleEnded are delivered at most once
//   - an agent that dies does not also win
//   - the first delivery of a round is the start Status at tick 0, for
//     agents that receive Status at all
func CheckInvariants(trace []TraceEvent) []string {
	var errs []string
	for _, group := range groupTrace(trace) {
		errs = append(errs, checkAgentTrace(group)...)
	}
	return errs
}

func groupTrace(trace []TraceEvent) [][]TraceEvent {
	var groups [][]TraceEvent
	var cur []TraceEvent
	for i, e := range trace {
		if i > 0 && (e.Round != trace[i-1].Round || e.Agent != trace[i-1].Agent) {
			groups = append(groups, cur)
			cur = nil
		}
		cur = append(cur, e)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

var onceKinds = []string{
	event.KindDeath.String(),
	event.KindWin.String(),
	event.KindRoundEnded.String(),
	event.KindBattleEnded.String(),
}

func checkAgentTrace(entries []TraceEvent) []string {
	var errs []string
	where := fmt.Sprintf("round %d agent %s", entries[0].Round, entries[0].Agent)
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("invariant violated (%s): ", where)+fmt.Sprintf(format, args...))
	}

	counts := make(map[string]int)
	dead := false
	sawStatus := false
	var first *TraceEvent
	for i := range entries {
		e := entries[i]
		if e.Kind == KindNote {
			continue
		}
		if first == nil {
			first = &entries[i]
		}
		if dead {
			fail("%s delivered after Death", e)
		}
		counts[e.Kind]++
		if e.Kind == event.KindDeath.String() {
			dead = true
		}
		if e.Kind == event.KindStatus.String() {
			sawStatus = true
		}
	}

	for _, k := range onceKinds {
		if counts[k] > 1 {
			fail("%s delivered %d times", k, counts[k])
		}
	}
	if counts[event.KindDeath.String()] > 0 && counts[event.KindWin.String()] > 0 {
		fail("both Death and Win delivered")
	}
	if sawStatus && (first.Kind != event.KindStatus.String() || first.Tick != 0) {
		fail("first delivery is %s, want the start Status", *first)
	}
	return errs
}
