package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arena/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool
	Filter string // glob over scenario file names, extension stripped
}

// Golden comparison outcomes reported per scenario.
const (
	goldenNone     = "none"
	goldenMatch    = "match"
	goldenMismatch = "mismatch"
	goldenUpdated  = "updated"
)

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Rounds int      `json:"rounds,omitempty"`
	Golden string   `json:"golden,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult aggregates a test run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r *TestResult) add(s ScenarioResult) {
	r.Scenarios = append(r.Scenarios, s)
	r.Total++
	if s.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run engine scenarios",
		Long: `Run scenario files against the engine with scripted agents and
scripted physics, checking assertions against the delivery trace and the
journal. A scenario with a golden file under <scenarios-dir>/golden is
also compared against it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  arena test ./testdata/scenarios
  arena test ./testdata/scenarios --filter "duel_*"
  arena test ./testdata/scenarios --update
  arena test ./testdata/scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	if len(files) == 0 && opts.Format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	r := &scenarioRunner{opts: opts, cmd: cmd, w: cmd.OutOrStdout()}
	if opts.Format == "json" {
		r.w = io.Discard
	}
	for _, f := range files {
		result.add(r.run(f))
	}

	if opts.Format == "json" {
		err = writeTestJSON(cmd.OutOrStdout(), result)
	} else {
		err = writeTestSummary(cmd.OutOrStdout(), result)
	}
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// findScenarioFiles returns the .yaml/.yml files under dir in lexical
// order, skipping golden/ directories.
func findScenarioFiles(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", filter, err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// scenarioRunner runs scenario files one at a time, printing a ✓/✗ line
// per scenario to w.
type scenarioRunner struct {
	opts *TestOptions
	cmd  *cobra.Command
	w    io.Writer
}

func (r *scenarioRunner) run(file string) ScenarioResult {
	res := ScenarioResult{Name: filepath.Base(file), File: file, Golden: goldenNone}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return r.report(res, fmt.Sprintf("failed to load scenario: %v", err))
	}
	res.Name = scenario.Name
	r.opts.VerboseLogf(r.cmd, "running %s (%s)", scenario.Name, file)

	out, err := harness.RunContext(cmdContext(r.cmd), scenario)
	if err != nil {
		return r.report(res, fmt.Sprintf("execution failed: %v", err))
	}
	res.Rounds = len(out.Rounds)

	var errs []string
	status, err := r.golden(file, harness.TraceSnapshot(scenario.Name, out))
	res.Golden = status
	switch {
	case err != nil:
		errs = append(errs, err.Error())
	case status == goldenMismatch:
		errs = append(errs, "trace does not match golden file (run with --update to regenerate)")
	}
	return r.report(res, append(errs, out.Errors...)...)
}

// golden compares snapshot with the scenario's golden file, or rewrites it
// under --update.
func (r *scenarioRunner) golden(file string, snapshot []byte) (string, error) {
	path := goldenFilePath(file)
	if r.opts.Update {
		if err := writeGoldenFile(path, snapshot); err != nil {
			return goldenNone, fmt.Errorf("failed to update golden file: %w", err)
		}
		return goldenUpdated, nil
	}
	want, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return goldenNone, nil
	case err != nil:
		return goldenNone, fmt.Errorf("failed to read golden file: %w", err)
	case bytes.Equal(want, snapshot):
		return goldenMatch, nil
	default:
		return goldenMismatch, nil
	}
}

func (r *scenarioRunner) report(res ScenarioResult, errs ...string) ScenarioResult {
	res.Errors = errs
	res.Pass = len(errs) == 0
	if !res.Pass {
		fmt.Fprintf(r.w, "✗ %s\n", res.Name)
		for _, e := range errs {
			fmt.Fprintf(r.w, "  %s\n", e)
		}
		return res
	}
	if res.Golden == goldenUpdated {
		fmt.Fprintf(r.w, "✓ %s (golden updated)\n", res.Name)
	} else {
		fmt.Fprintf(r.w, "✓ %s\n", res.Name)
	}
	return res
}

// goldenFilePath maps dir/name.yaml to dir/golden/name.golden.
func goldenFilePath(file string) string {
	base := filepath.Base(file)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(file), "golden", name+".golden")
}

func writeGoldenFile(path string, snapshot []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, snapshot, 0o644)
}

func writeTestJSON(w io.Writer, result TestResult) error {
	resp := Response{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &ResponseError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func writeTestSummary(w io.Writer, result TestResult) error {
	_, err := fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n",
		result.Passed, result.Failed, result.Total)
	if err == nil && result.Failed == 0 {
		_, err = fmt.Fprintln(w, "✓ All scenarios passed")
	}
	return err
}
