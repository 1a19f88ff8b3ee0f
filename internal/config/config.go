package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/arena/internal/battle"
	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/event"
)

//go:embed schema.cue
var schemaSource string

// Defaults applied to fields a battle file leaves out.
const (
	DefaultArenaWidth  = 800
	DefaultArenaHeight = 600
)

// Battle is a parsed battle file.
type Battle struct {
	Name              string  `yaml:"name" json:"name"`
	Rounds            int     `yaml:"rounds,omitempty" json:"rounds,omitempty"`
	MaxTicks          int64   `yaml:"max_ticks,omitempty" json:"max_ticks,omitempty"`
	TurnBudget        string  `yaml:"turn_budget,omitempty" json:"turn_budget,omitempty"`
	Arena             Arena   `yaml:"arena" json:"arena"`
	MaxSkippedTurns   int     `yaml:"max_skipped_turns,omitempty" json:"max_skipped_turns,omitempty"`
	MaxSkippedTurnsIO int     `yaml:"max_skipped_turns_io,omitempty" json:"max_skipped_turns_io,omitempty"`
	Agents            []Agent `yaml:"agents" json:"agents"`
	Journal           string  `yaml:"journal,omitempty" json:"journal,omitempty"`
}

type Arena struct {
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Agent is one entrant. A zero position places the agent on the start
// ring; priorities are keyed by event kind name.
type Agent struct {
	Name            string         `yaml:"name" json:"name"`
	Robot           string         `yaml:"robot" json:"robot"`
	Team            string         `yaml:"team,omitempty" json:"team,omitempty"`
	IO              bool           `yaml:"io,omitempty" json:"io,omitempty"`
	X               float64        `yaml:"x,omitempty" json:"x,omitempty"`
	Y               float64        `yaml:"y,omitempty" json:"y,omitempty"`
	Heading         float64        `yaml:"heading,omitempty" json:"heading,omitempty"`
	EventPriorities map[string]int `yaml:"event_priorities,omitempty" json:"event_priorities,omitempty"`
}

// Error reports an invalid battle file, with the CUE position when one is
// known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a battle file, choosing the format by extension.
func Load(path string) (*Battle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read battle file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(path, data)
	}
	return nil, fmt.Errorf("unsupported battle file %s: want .yaml, .yml or .cue", path)
}

// ParseYAML decodes a YAML battle file. Unknown fields are rejected.
func ParseYAML(data []byte) (*Battle, error) {
	var b Battle
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	b.applyDefaults()

	ctx := cuecontext.New()
	schema, err := battleSchema(ctx)
	if err != nil {
		return nil, err
	}
	v := schema.Unify(ctx.Encode(b))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// ParseCUE evaluates a CUE battle file against the schema. filename is
// used in error positions only.
func ParseCUE(filename string, data []byte) (*Battle, error) {
	ctx := cuecontext.New()
	schema, err := battleSchema(ctx)
	if err != nil {
		return nil, err
	}
	src := ctx.CompileBytes(data, cue.Filename(filename))
	if err := src.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v := schema.Unify(src)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var b Battle
	if err := v.Decode(&b); err != nil {
		return nil, formatCUEError(err)
	}
	b.applyDefaults()
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func battleSchema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("battle schema: %w", err)
	}
	return v.LookupPath(cue.ParsePath("#Battle")), nil
}

func (b *Battle) applyDefaults() {
	if b.Rounds == 0 {
		b.Rounds = battle.DefaultRounds
	}
	if b.MaxTicks == 0 {
		b.MaxTicks = battle.DefaultMaxTicks
	}
	if b.TurnBudget == "" {
		b.TurnBudget = battle.DefaultTurnBudget.String()
	}
	if b.Arena.Width == 0 {
		b.Arena.Width = DefaultArenaWidth
	}
	if b.Arena.Height == 0 {
		b.Arena.Height = DefaultArenaHeight
	}
	if b.MaxSkippedTurns == 0 {
		b.MaxSkippedTurns = engine.DefaultMaxSkippedTurns
	}
	if b.MaxSkippedTurnsIO == 0 {
		b.MaxSkippedTurnsIO = engine.DefaultMaxSkippedTurnsIO
	}
}

// validate checks what the schema cannot.
func (b *Battle) validate() error {
	if _, err := b.TurnBudgetDuration(); err != nil {
		return &Error{Field: "turn_budget", Message: err.Error()}
	}

	seen := make(map[string]bool, len(b.Agents))
	for i, a := range b.Agents {
		field := fmt.Sprintf("agents[%d]", i)
		name := norm.NFC.String(a.Name)
		if seen[name] {
			return &Error{Field: field + ".name", Message: fmt.Sprintf("duplicate agent %q", a.Name)}
		}
		seen[name] = true

		if a.X > b.Arena.Width || a.Y > b.Arena.Height {
			return &Error{Field: field, Message: fmt.Sprintf("position (%g, %g) is outside the %gx%g arena",
				a.X, a.Y, b.Arena.Width, b.Arena.Height)}
		}
		if _, err := a.Priorities(); err != nil {
			return &Error{Field: field + ".event_priorities", Message: err.Error()}
		}
	}
	return nil
}

// TurnBudgetDuration parses TurnBudget.
func (b *Battle) TurnBudgetDuration() (time.Duration, error) {
	d, err := time.ParseDuration(b.TurnBudget)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("turn budget must be positive, got %s", d)
	}
	return d, nil
}

// Priorities resolves the agent's priority table. Critical kinds cannot
// be reprioritized.
func (a Agent) Priorities() (map[event.Kind]int, error) {
	if len(a.EventPriorities) == 0 {
		return nil, nil
	}
	out := make(map[event.Kind]int, len(a.EventPriorities))
	for name, p := range a.EventPriorities {
		k, err := event.ParseKind(name)
		if err != nil {
			return nil, err
		}
		if k.Critical() {
			return nil, fmt.Errorf("%s is critical and keeps its priority", k)
		}
		out[k] = p
	}
	if err := engine.CheckEventPriorities(out); err != nil {
		return nil, err
	}
	return out, nil
}

// fieldPath joins a CUE error path as the user wrote it, without the
// schema definition the file was unified against.
func fieldPath(path []string) string {
	for len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	return strings.Join(path, ".")
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	field := fieldPath(first.Path())
	msg, args := first.Msg()
	e := &Error{Field: field, Message: fmt.Sprintf(msg, args...)}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
