package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: idle
description: one agent idles to the tick limit
max_ticks: 2
agents:
  - name: solo
assertions:
  - type: round_result
    round: 1
    winner: solo
`

const failingScenario = `
name: wrong
description: asserts a message nobody sends
max_ticks: 2
agents:
  - name: solo
assertions:
  - type: trace_count
    agent: solo
    kind: Message
    count: 1
`

func TestTest_RepositoryScenarios(t *testing.T) {
	out, _, err := execute(t, "test", "../../testdata/scenarios")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ duel_death")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_Filter(t *testing.T) {
	out, _, err := execute(t, "test", "../../testdata/scenarios", "--filter", "team_*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "team_messages", resp.Data.Scenarios[0].Name)
}

func TestTest_Failure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "idle.yaml", passingScenario)
	writeFile(t, dir, "wrong.yaml", failingScenario)
	writeFile(t, dir, "broken.yml", "name: [")

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ idle")
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "0 occurrences")
	assert.Contains(t, out, "✗ broken.yml")
	assert.Contains(t, out, "Test Summary: 1 passed, 2 failed, 3 total")
}

func TestTest_GoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "idle.yaml", passingScenario)

	out, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ idle (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "idle.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), "scenario: idle")
	assert.Contains(t, string(golden), "r1 solo #1 t0 Status")

	// Golden files are not picked up as scenarios, and match on rerun.
	out, _, err = execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	writeFile(t, dir, "golden/idle.golden", "scenario: idle\n")
	out, _, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_Errors(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	_, _, err = execute(t, "test", "../../testdata/scenarios", "--filter", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
