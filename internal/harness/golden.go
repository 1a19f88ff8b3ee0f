package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot renders a trace for golden comparison, one entry per
// line. Payload fields are left out so snapshots stay readable.
func TraceSnapshot(scenarioName string, result *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", scenarioName)
	for _, r := range result.Rounds {
		winner := r.Winner
		if winner == "" {
			winner = "-"
		}
		fmt.Fprintf(&buf, "round %d: turns=%d winner=%s removed=%v\n", r.Round, r.Turns, winner, r.Removed)
	}
	for _, e := range result.Trace {
		fmt.Fprintf(&buf, "%s\n", e)
	}
	return []byte(buf.String())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, TraceSnapshot(scenarioName, result))
}
