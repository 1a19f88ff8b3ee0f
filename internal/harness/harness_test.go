package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_IdleAgentsReachMaxTicks(t *testing.T) {
	scenario := &Scenario{
		Name:        "idle_pair",
		Description: "two idle agents run out the clock",
		MaxTicks:    3,
		Agents:      []AgentSpec{{Name: "a"}, {Name: "b"}},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Agent: "a", Kind: "Status", Count: 4},
			{Type: AssertRoundResult, Round: 1, Winner: "-"},
			{Type: AssertJournalCount, Kind: "RoundEnded", Count: 2},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Rounds, 1)
	assert.Equal(t, int64(3), result.Rounds[0].Turns)

	labels := func(agent string) []string {
		var out []string
		for _, e := range result.AgentTrace(1, agent) {
			out = append(out, e.Label())
		}
		return out
	}
	want := []string{"Status", "Status", "Status", "Status", "RoundEnded", "BattleEnded"}
	assert.Equal(t, want, labels("a"))
	assert.Equal(t, want, labels("b"))
}

func TestRun_FailedAssertionMarksResult(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_winner",
		Description: "asserts a winner that cannot exist",
		MaxTicks:    2,
		Agents:      []AgentSpec{{Name: "a"}, {Name: "b"}},
		Assertions: []Assertion{
			{Type: AssertRoundResult, Round: 1, Winner: "a"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `winner ""`)
}

func TestRun_MultipleRounds(t *testing.T) {
	scenario := &Scenario{
		Name:        "three_rounds",
		Description: "every round starts fresh",
		Rounds:      3,
		MaxTicks:    2,
		Agents: []AgentSpec{{
			Name:   "solo",
			Script: []Step{{Do: StepNote, Data: "start"}},
		}},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Kind: KindNote, Count: 3},
			{Type: AssertTraceCount, Kind: "BattleEnded", Count: 1},
			{Type: AssertTraceCount, Round: 3, Kind: "BattleEnded", Count: 1},
			{Type: AssertRoundResult, Round: 2, Winner: "solo"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Rounds, 3)
}

func TestRun_EventPrioritiesReorderDelivery(t *testing.T) {
	scenario := &Scenario{
		Name:        "priorities",
		Description: "a lowered Status priority delivers after the scan",
		MaxTicks:    2,
		Agents: []AgentSpec{{
			Name:            "solo",
			EventPriorities: map[string]int{"Status": 5},
		}},
		Physics: map[int64]map[string]OutcomeSpec{
			1: {"solo": {Scans: []ScanSpec{{Name: "ghost", Distance: 50}}}},
		},
		Assertions: []Assertion{
			{Type: AssertTraceOrder, Agent: "solo", Labels: []string{"ScannedAgent", "Status"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	trace := result.AgentTrace(1, "solo")
	require.GreaterOrEqual(t, len(trace), 3)
	assert.Equal(t, "ScannedAgent", trace[1].Kind)
	assert.Equal(t, int64(1), trace[1].Tick)
	assert.Equal(t, "Status", trace[2].Kind)
	assert.Equal(t, int64(1), trace[2].Tick)
}

func TestRun_CapabilitiesLimitDelivery(t *testing.T) {
	scenario := &Scenario{
		Name:        "capabilities",
		Description: "a team-only agent sees messages and nothing else",
		MaxTicks:    3,
		Agents: []AgentSpec{
			{
				Name:   "talker",
				Team:   "t",
				Script: []Step{{Do: StepBroadcast, Data: "hi"}, {Do: StepExecute}},
			},
			{Name: "listener", Team: "t", Capabilities: []string{"team"}},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Agent: "listener", Kind: "Message", Count: 1},
			{Type: AssertTraceCount, Agent: "listener", Kind: "Status", Count: 0},
			{Type: AssertTraceCount, Agent: "listener", Kind: "RoundEnded", Count: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	scenario := &Scenario{
		Name:        "endless",
		Description: "runs far longer than the context allows",
		MaxTicks:    1_000_000,
		Agents: []AgentSpec{{
			Name:   "slow",
			Script: []Step{{Do: StepStall}},
		}},
		Assertions: []Assertion{{Type: AssertTraceCount, Kind: "Status", Count: 1}},
	}

	_, err := RunContext(ctx, scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run battle")
}

func TestRun_BadScriptFailsBeforeStart(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_caps",
		Description: "unknown capability",
		MaxTicks:    1,
		Agents:      []AgentSpec{{Name: "a", Capabilities: []string{"psychic"}}},
		Assertions:  []Assertion{{Type: AssertTraceCount, Kind: "Status"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent a")
}

func TestRun_ReservedPriorityRejected(t *testing.T) {
	scenario := &Scenario{
		Name:        "reserved",
		Description: "priority 100 is reserved",
		MaxTicks:    1,
		Agents: []AgentSpec{{
			Name:            "a",
			EventPriorities: map[string]int{"HitWall": 100},
		}},
		Assertions: []Assertion{{Type: AssertTraceCount, Kind: "Status"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot set priority 100 for HitWall")
}
