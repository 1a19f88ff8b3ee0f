package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_RepositoryBattles(t *testing.T) {
	paths, err := filepath.Glob("../../testdata/battles/*")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	out, _, err := execute(t, append([]string{"validate"}, paths...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "battle files valid")
}

func TestValidate_Mixed(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", idleBattle)
	dup := writeFile(t, dir, "dup.yaml", `
name: dup
agents:
  - {name: a, robot: spinner}
  - {name: a, robot: walls}
`)
	robot := writeFile(t, dir, "robot.yaml", `
name: robot
agents:
  - {name: a, robot: toaster}
`)

	out, _, err := execute(t, "validate", good, dup, robot, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 of 3 battle files invalid")

	var resp struct {
		Data ValidationReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	report := resp.Data
	assert.Equal(t, 1, report.Valid)
	assert.Equal(t, 3, report.Total)

	require.Len(t, report.Files, 3)
	assert.True(t, report.Files[0].Valid)
	assert.Equal(t, 2, report.Files[0].Agents)

	require.NotNil(t, report.Files[1].Error)
	assert.Equal(t, CodeInvalidField, report.Files[1].Error.Code)
	assert.Contains(t, report.Files[1].Error.Field, "agents[1]")

	require.NotNil(t, report.Files[2].Error)
	assert.Equal(t, CodeUnknownRobot, report.Files[2].Error.Code)
	assert.Equal(t, "agents[0].robot", report.Files[2].Error.Field)
}

func TestValidate_TextOutput(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.txt", "name: x")

	out, _, err := execute(t, "validate", bad)
	require.Error(t, err)
	assert.Contains(t, out, "✗ "+bad+": [E001]")
	assert.Contains(t, out, "unsupported battle file")
	assert.Contains(t, out, "0/1 battle files valid")
}
