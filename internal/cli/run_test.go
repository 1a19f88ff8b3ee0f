package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const idleBattle = `
name: idle
rounds: 2
max_ticks: 5
turn_budget: 500ms
agents:
  - name: left
    robot: sitting-duck
    x: 200
    y: 300
  - name: right
    robot: sitting-duck
    x: 600
    y: 300
`

func TestRun_TextSummary(t *testing.T) {
	path := writeFile(t, t.TempDir(), "idle.yaml", idleBattle)

	out, _, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Battle idle")
	assert.Contains(t, out, "round 1: 5 turns, winner none")
	assert.Contains(t, out, "round 2: 5 turns, winner none")
	assert.Contains(t, out, "Ranking:")
	assert.NotContains(t, out, "Journal:")
}

func TestRun_JSONWithJournal(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "idle.yaml", idleBattle)
	db := filepath.Join(dir, "idle.db")

	out, _, err := execute(t, "run", path, "--journal", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status   string        `json:"status"`
		Data     BattleSummary `json:"data"`
		BattleID string        `json:"battle_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.BattleID)
	assert.Equal(t, resp.BattleID, resp.Data.ID)
	assert.Equal(t, db, resp.Data.Journal)
	require.Len(t, resp.Data.Rounds, 2)
	assert.ElementsMatch(t, []string{"left", "right"}, resp.Data.Ranking)

	// The journal is readable by trace.
	out, _, err = execute(t, "trace", "--db", db, "--battle", resp.BattleID, "--format", "json")
	require.NoError(t, err)
	var traced struct {
		Data TraceReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &traced))
	require.Len(t, traced.Data.Traces, 4) // 2 rounds x 2 agents
	first := traced.Data.Traces[0]
	assert.Equal(t, 1, first.Round)
	assert.Equal(t, "left", first.Agent)
	assert.Equal(t, "Status", first.Events[0].Kind)
	assert.Equal(t, "RoundEnded", first.Terminal)
	assert.Equal(t, "BattleEnded", traced.Data.Traces[3].Terminal)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	unknown := writeFile(t, dir, "unknown.yaml", `
name: bad
agents:
  - name: a
    robot: laser-shark
`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"run", filepath.Join(dir, "nope.yaml")}, "failed to load battle file"},
		{"unknown robot", []string{"run", unknown}, `unknown robot "laser-shark"`},
		{"no args", []string{"run"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, _, err := execute(t, "run", filepath.Join(dir, "nope.yaml"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBattleSummary_String(t *testing.T) {
	s := BattleSummary{
		ID:      "b-1",
		Name:    "duel",
		Rounds:  []RoundSummary{{Round: 1, Turns: 120, Winner: "hunter", Removed: []string{"lagger"}}},
		Ranking: []string{"hunter", "target"},
		Scores:  map[string]int{"hunter": 2, "target": 1},
		Journal: "duel.db",
	}
	want := "Battle duel (b-1)\n" +
		"  round 1: 120 turns, winner hunter, removed lagger\n" +
		"Ranking:\n" +
		"  1. hunter (2)\n" +
		"  2. target (1)\n" +
		"Journal: duel.db"
	assert.Equal(t, want, s.String())
}
