package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arena/internal/config"
	"github.com/roach88/arena/internal/robots"
)

// Error codes reported by validate.
const (
	CodeLoadFailed   = "E001"
	CodeInvalidField = "E002"
	CodeUnknownRobot = "E003"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions

	// Robots resolves robot names. Defaults to robots.Default().
	Robots config.Lookup
}

// FileValidation is the result for one battle file.
type FileValidation struct {
	Path   string        `json:"path"`
	Valid  bool          `json:"valid"`
	Name   string        `json:"name,omitempty"`
	Agents int           `json:"agents,omitempty"`
	Rounds int           `json:"rounds,omitempty"`
	Error  *FieldProblem `json:"error,omitempty"`
}

// FieldProblem locates a validation failure.
type FieldProblem struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationReport is the output of the validate command.
type ValidationReport struct {
	Files []FileValidation `json:"files"`
	Valid int              `json:"valid"`
	Total int              `json:"total"`
}

func (r ValidationReport) String() string {
	var buf strings.Builder
	for _, f := range r.Files {
		if f.Valid {
			fmt.Fprintf(&buf, "✓ %s: %s, %d agents, %d rounds\n", f.Path, f.Name, f.Agents, f.Rounds)
			continue
		}
		fmt.Fprintf(&buf, "✗ %s: [%s] %s\n", f.Path, f.Error.Code, f.Error.Message)
	}
	fmt.Fprintf(&buf, "%d/%d battle files valid", r.Valid, r.Total)
	return buf.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <battle-file>...",
		Short: "Validate battle files without running them",
		Long: `Validate battle files against the battle schema.

Checks every field, that agent names are unique, that fixed positions are
inside the arena, that event priorities name known kinds, and that every
robot is registered.

Exit codes:
  0 - All files valid
  1 - One or more files invalid
  2 - Command error`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	lookup := opts.Robots
	if lookup == nil {
		lookup = robots.Default()
	}

	report := ValidationReport{Files: make([]FileValidation, 0, len(paths)), Total: len(paths)}
	for _, path := range paths {
		fv := validateFile(path, lookup)
		if fv.Valid {
			report.Valid++
		}
		opts.VerboseLogf(cmd, "validated %s: valid=%t", path, fv.Valid)
		report.Files = append(report.Files, fv)
	}

	if err := newFormatter(opts.RootOptions, cmd).Success(report); err != nil {
		return err
	}
	if report.Valid != report.Total {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d battle files invalid", report.Total-report.Valid, report.Total))
	}
	return nil
}

func validateFile(path string, lookup config.Lookup) FileValidation {
	fv := FileValidation{Path: path}
	cfg, err := config.Load(path)
	if err != nil {
		fv.Error = problem(CodeLoadFailed, err)
		if fv.Error.Field != "" {
			fv.Error.Code = CodeInvalidField
		}
		return fv
	}
	if _, err := cfg.Entrants(lookup); err != nil {
		fv.Error = problem(CodeUnknownRobot, err)
		return fv
	}
	fv.Valid = true
	fv.Name = cfg.Name
	fv.Agents = len(cfg.Agents)
	fv.Rounds = cfg.Rounds
	return fv
}

func problem(code string, err error) *FieldProblem {
	p := &FieldProblem{Code: code, Message: err.Error()}
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		p.Field = cfgErr.Field
	}
	return p
}
