package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: one idle agent
max_ticks: 3
agents:
  - name: solo
assertions:
  - type: trace_count
    agent: solo
    kind: RoundEnded
    count: 1
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, int64(3), s.MaxTicks)
	require.Len(t, s.Agents, 1)
	assert.Equal(t, "solo", s.Agents[0].Name)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertTraceCount, s.Assertions[0].Type)
	assert.Equal(t, 1, s.Assertions[0].Count)
}

func TestParseScenario_Full(t *testing.T) {
	data := `
name: full
description: every section
rounds: 2
max_ticks: 10
turn_budget: 30ms
max_skipped_turns: 4
battle_id: b-42
agents:
  - name: a
    team: red
    io: true
    capabilities: [basic, team]
    event_priorities:
      HitWall: 55
    script:
      - do: set_move
        value: 100
      - do: execute
        count: 3
    handlers:
      HitWall:
        - do: note
          data: bump
  - name: b
    team: red
physics:
  2:
    a:
      wall_hits: [90]
      energy: 80
inputs:
  - tick: 2
    agent: b
    key: x
assertions:
  - type: trace_order
    agent: a
    labels: [HitWall, bump]
  - type: round_result
    round: 2
    winner: "-"
`
	s, err := ParseScenario([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Rounds)
	assert.Equal(t, "30ms", s.TurnBudget)
	assert.Equal(t, 4, s.MaxSkippedTurns)
	assert.Equal(t, "b-42", s.BattleID)

	a := s.Agents[0]
	assert.True(t, a.IO)
	assert.Equal(t, []string{"basic", "team"}, a.Capabilities)
	assert.Equal(t, 55, a.EventPriorities["HitWall"])
	require.Len(t, a.Script, 2)
	assert.Equal(t, 3, a.Script[1].Count)
	assert.Equal(t, "bump", a.Handlers["HitWall"][0].Data)

	out := s.Physics[2]["a"]
	assert.Equal(t, []float64{90}, out.WallHits)
	assert.Equal(t, 80.0, out.Energy)
	assert.Equal(t, "x", s.Inputs[0].Key)
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: minimalScenario + "flow_token: x\n",
			want: "field flow_token not found",
		},
		{
			name: "missing name",
			yaml: `
description: d
max_ticks: 1
agents: [{name: a}]
assertions: [{type: trace_count, kind: Status}]
`,
			want: "name is required",
		},
		{
			name: "missing max ticks",
			yaml: `
name: n
description: d
agents: [{name: a}]
assertions: [{type: trace_count, kind: Status}]
`,
			want: "max_ticks must be positive",
		},
		{
			name: "duplicate agent",
			yaml: `
name: n
description: d
max_ticks: 1
agents: [{name: a}, {name: a}]
assertions: [{type: trace_count, kind: Status}]
`,
			want: `duplicate agent "a"`,
		},
		{
			name: "unknown step",
			yaml: `
name: n
description: d
max_ticks: 1
agents:
  - name: a
    script: [{do: teleport}]
assertions: [{type: trace_count, kind: Status}]
`,
			want: `unknown step "teleport"`,
		},
		{
			name: "unknown handler kind",
			yaml: `
name: n
description: d
max_ticks: 1
agents:
  - name: a
    handlers:
      Sneeze: [{do: execute}]
assertions: [{type: trace_count, kind: Status}]
`,
			want: "agents[0].handlers",
		},
		{
			name: "unknown capability",
			yaml: `
name: n
description: d
max_ticks: 1
agents:
  - name: a
    capabilities: [telepathy]
assertions: [{type: trace_count, kind: Status}]
`,
			want: `unknown capability "telepathy"`,
		},
		{
			name: "physics for unknown agent",
			yaml: `
name: n
description: d
max_ticks: 1
agents: [{name: a}]
physics:
  1:
    ghost: {died: true}
assertions: [{type: trace_count, kind: Status}]
`,
			want: `unknown agent "ghost"`,
		},
		{
			name: "input at tick zero",
			yaml: `
name: n
description: d
max_ticks: 1
agents: [{name: a}]
inputs: [{tick: 0, agent: a, key: w}]
assertions: [{type: trace_count, kind: Status}]
`,
			want: "tick must be positive",
		},
		{
			name: "unknown assertion",
			yaml: `
name: n
description: d
max_ticks: 1
agents: [{name: a}]
assertions: [{type: vibes}]
`,
			want: `unknown assertion type "vibes"`,
		},
		{
			name: "short trace order",
			yaml: `
name: n
description: d
max_ticks: 1
agents: [{name: a}]
assertions: [{type: trace_order, labels: [Status]}]
`,
			want: "at least two labels",
		},
		{
			name: "bad turn budget",
			yaml: `
name: n
description: d
max_ticks: 1
turn_budget: soon
agents: [{name: a}]
assertions: [{type: trace_count, kind: Status}]
`,
			want: "turn_budget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
