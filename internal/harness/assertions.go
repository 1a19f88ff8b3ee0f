package harness

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/arena/internal/event"
	"github.com/roach88/arena/internal/store"
)

// AssertionContext carries what journal assertions need.
type AssertionContext struct {
	Store    *store.Store
	Ctx      context.Context
	BattleID string
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Entries the assertion looked at
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", ev)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertRoundResult:
			err = assertRoundResult(result, a)
		case AssertJournalCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("journal_count needs a store")
				break
			}
			err = assertJournalCount(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i+1, a.Type, err))
		}
	}
	return errs
}

// scope returns the trace entries the assertion's agent and round select.
func scope(trace []TraceEvent, a Assertion) []TraceEvent {
	var out []TraceEvent
	for _, e := range trace {
		if a.Agent != "" && e.Agent != a.Agent {
			continue
		}
		if a.Round != 0 && e.Round != a.Round {
			continue
		}
		out = append(out, e)
	}
	return out
}

// kindName canonicalizes a kind as written in a scenario.
func kindName(kind string) string {
	if kind == KindNote {
		return KindNote
	}
	k, err := event.ParseKind(kind)
	if err != nil {
		return kind
	}
	return k.String()
}

// assertTraceContains checks if the trace holds an event of the kind whose
// payload matches the expected fields (subset match).
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	entries := scope(trace, a)
	want := kindName(a.Kind)
	for _, e := range entries {
		if e.Kind == want && matchFields(e.Fields, a.Fields) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s with fields %v", want, a.Fields),
		Actual:   "not found in trace",
		Trace:    entries,
	}
}

// assertTraceOrder checks that the labels appear in the given order.
// Other entries may appear in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	entries := scope(trace, a)
	want := make([]string, len(a.Labels))
	for i, l := range a.Labels {
		want[i] = labelName(l)
	}

	next := 0
	for _, e := range entries {
		if next < len(want) && e.Label() == want[next] {
			next++
		}
	}
	if next == len(want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("labels in order: %v", want),
		Actual:   fmt.Sprintf("matched %v, then no %s", want[:next], want[next]),
		Trace:    entries,
	}
}

// labelName canonicalizes kind labels and leaves notes alone.
func labelName(label string) string {
	if k, err := event.ParseKind(label); err == nil {
		return k.String()
	}
	return label
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	want := kindName(a.Kind)
	count := 0
	for _, e := range scope(trace, a) {
		if e.Kind == want {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, want),
			Actual:   fmt.Sprintf("%d occurrences", count),
		}
	}
	return nil
}

func assertRoundResult(result *Result, a Assertion) error {
	for _, r := range result.Rounds {
		if r.Round != a.Round {
			continue
		}
		if a.Winner != "" {
			want := a.Winner
			if want == "-" {
				want = ""
			}
			if r.Winner != want {
				return &AssertionError{
					Type:     AssertRoundResult,
					Expected: fmt.Sprintf("round %d winner %q", a.Round, want),
					Actual:   fmt.Sprintf("winner %q", r.Winner),
				}
			}
		}
		if a.Removed != nil {
			got := append([]string(nil), r.Removed...)
			want := append([]string(nil), a.Removed...)
			sort.Strings(got)
			sort.Strings(want)
			if !slices.Equal(got, want) {
				return &AssertionError{
					Type:     AssertRoundResult,
					Expected: fmt.Sprintf("round %d removed %v", a.Round, want),
					Actual:   fmt.Sprintf("removed %v", got),
				}
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertRoundResult,
		Expected: fmt.Sprintf("round %d played", a.Round),
		Actual:   fmt.Sprintf("%d rounds played", len(result.Rounds)),
	}
}

// assertJournalCount checks how many deliveries the journal recorded.
func assertJournalCount(actx *AssertionContext, a Assertion) error {
	k, err := event.ParseKind(a.Kind)
	if err != nil {
		return err
	}
	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := actx.Store.ReadDeliveries(ctx, actx.BattleID, store.DeliveryFilter{
		Round: a.Round,
		Agent: a.Agent,
		Kind:  k,
	})
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	if len(rows) != a.Count {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("%d journaled %s deliveries", a.Count, k),
			Actual:   fmt.Sprintf("%d", len(rows)),
		}
	}
	return nil
}

// matchFields reports whether every expected field is present in actual
// with an equal value. Numbers compare by value regardless of type.
func matchFields(actual, expected map[string]any) bool {
	for k, want := range expected {
		got, ok := actual[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
