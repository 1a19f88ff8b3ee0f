package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/arena/internal/event"
)

// DefaultBattleID is used when a scenario does not set battle_id.
const DefaultBattleID = "test-battle-default"

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Rounds          int    `yaml:"rounds,omitempty"`
	MaxTicks        int64  `yaml:"max_ticks"`
	TurnBudget      string `yaml:"turn_budget,omitempty"`
	MaxSkippedTurns int    `yaml:"max_skipped_turns,omitempty"`

	// BattleID is the journal key. Defaults to DefaultBattleID.
	BattleID string `yaml:"battle_id,omitempty"`

	Agents []AgentSpec `yaml:"agents"`

	// Physics maps a tick to the outcome each agent sees on it. Ticks
	// without an entry report a plain Status.
	Physics map[int64]map[string]OutcomeSpec `yaml:"physics,omitempty"`

	// Inputs are injected before the host simulates their tick.
	Inputs []InputStep `yaml:"inputs,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// AgentSpec describes one scripted agent.
type AgentSpec struct {
	Name string `yaml:"name"`
	Team string `yaml:"team,omitempty"`
	IO   bool   `yaml:"io,omitempty"`

	// Capabilities narrows the handler groups, e.g. [basic, team]. The
	// default is every group except paint.
	Capabilities []string `yaml:"capabilities,omitempty"`

	EventPriorities map[string]int `yaml:"event_priorities,omitempty"`

	// Script runs as the agent's main loop. When it ends the agent idles.
	Script []Step `yaml:"script,omitempty"`

	// Handlers run steps when an event of the keyed kind is dispatched.
	Handlers map[string][]Step `yaml:"handlers,omitempty"`
}

// Step is one scripted agent action.
type Step struct {
	Do string `yaml:"do"`

	Value    float64 `yaml:"value,omitempty"`
	Count    int     `yaml:"count,omitempty"`
	To       string  `yaml:"to,omitempty"`
	Data     string  `yaml:"data,omitempty"`
	Key      string  `yaml:"key,omitempty"`
	Kind     string  `yaml:"kind,omitempty"`
	Priority int     `yaml:"priority,omitempty"`
	Name     string  `yaml:"name,omitempty"`
	Tick     int64   `yaml:"tick,omitempty"`
	On       bool    `yaml:"on,omitempty"`
}

// Step actions.
const (
	StepExecute       = "execute"
	StepSetMove       = "set_move"
	StepSetTurnBody   = "set_turn_body"
	StepSetFire       = "set_fire"
	StepScan          = "scan"
	StepRescan        = "rescan"
	StepSend          = "send"
	StepBroadcast     = "broadcast"
	StepDebug         = "debug"
	StepPriority      = "priority"
	StepInterruptible = "interruptible"
	StepAddCondition  = "add_condition"
	StepWaitFor       = "wait_for"
	StepStall         = "stall"
	StepNote          = "note"
)

var knownSteps = map[string]bool{
	StepExecute: true, StepSetMove: true, StepSetTurnBody: true, StepSetFire: true,
	StepScan: true, StepRescan: true, StepSend: true, StepBroadcast: true,
	StepDebug: true, StepPriority: true, StepInterruptible: true,
	StepAddCondition: true, StepWaitFor: true, StepStall: true, StepNote: true,
}

// OutcomeSpec is what the scripted physics reports to one agent on one
// tick.
type OutcomeSpec struct {
	Energy   float64    `yaml:"energy,omitempty"`
	Scans    []ScanSpec `yaml:"scans,omitempty"`
	WallHits []float64  `yaml:"wall_hits,omitempty"` // bearings
	HitBy    []string   `yaml:"hit_by,omitempty"`    // projectile owners
	Hits     []string   `yaml:"hits,omitempty"`      // victims
	Deaths   []string   `yaml:"deaths,omitempty"`
	Died     bool       `yaml:"died,omitempty"`
}

type ScanSpec struct {
	Name     string  `yaml:"name"`
	Distance float64 `yaml:"distance"`
	Bearing  float64 `yaml:"bearing,omitempty"`
	Energy   float64 `yaml:"energy,omitempty"`
}

// InputStep injects a key press into an agent before tick Tick is
// simulated.
type InputStep struct {
	Tick  int64  `yaml:"tick"`
	Agent string `yaml:"agent"`
	Key   string `yaml:"key"`
}

// Assertion validates the trace or the journal.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count,
	// round_result or journal_count.
	Type string `yaml:"type"`

	// Agent restricts trace and journal assertions to one agent.
	Agent string `yaml:"agent,omitempty"`
	Round int    `yaml:"round,omitempty"`

	// Kind is the event kind name (trace_contains, trace_count,
	// journal_count).
	Kind string `yaml:"kind,omitempty"`

	// Fields are matched against the event payload, subset semantics
	// (trace_contains).
	Fields map[string]any `yaml:"fields,omitempty"`

	Count int `yaml:"count,omitempty"`

	// Labels is the expected order of kinds or notes (trace_order).
	Labels []string `yaml:"labels,omitempty"`

	// Winner and Removed check a round result (round_result). Winner "-"
	// means no winner.
	Winner  string   `yaml:"winner,omitempty"`
	Removed []string `yaml:"removed,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertRoundResult   = "round_result"
	AssertJournalCount  = "journal_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.MaxTicks <= 0 {
		return fmt.Errorf("max_ticks must be positive")
	}
	if s.TurnBudget != "" {
		if _, err := time.ParseDuration(s.TurnBudget); err != nil {
			return fmt.Errorf("turn_budget: %w", err)
		}
	}
	if len(s.Agents) == 0 {
		return fmt.Errorf("agents list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Agents))
	for i, a := range s.Agents {
		if a.Name == "" {
			return fmt.Errorf("agents[%d]: name is required", i)
		}
		if names[a.Name] {
			return fmt.Errorf("agents[%d]: duplicate agent %q", i, a.Name)
		}
		names[a.Name] = true
		if _, err := parseCapabilities(a.Capabilities); err != nil {
			return fmt.Errorf("agents[%d]: %w", i, err)
		}
		for kind := range a.EventPriorities {
			if _, err := event.ParseKind(kind); err != nil {
				return fmt.Errorf("agents[%d].event_priorities: %w", i, err)
			}
		}
		if err := validateSteps(fmt.Sprintf("agents[%d].script", i), a.Script); err != nil {
			return err
		}
		for kind, steps := range a.Handlers {
			if _, err := event.ParseKind(kind); err != nil {
				return fmt.Errorf("agents[%d].handlers: %w", i, err)
			}
			if err := validateSteps(fmt.Sprintf("agents[%d].handlers.%s", i, kind), steps); err != nil {
				return err
			}
		}
	}

	for tick, outcomes := range s.Physics {
		for agent := range outcomes {
			if !names[agent] {
				return fmt.Errorf("physics[%d]: unknown agent %q", tick, agent)
			}
		}
	}
	for i, in := range s.Inputs {
		if !names[in.Agent] {
			return fmt.Errorf("inputs[%d]: unknown agent %q", i, in.Agent)
		}
		if in.Tick <= 0 {
			return fmt.Errorf("inputs[%d]: tick must be positive", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateSteps(where string, steps []Step) error {
	for i, st := range steps {
		if !knownSteps[st.Do] {
			return fmt.Errorf("%s[%d]: unknown step %q", where, i, st.Do)
		}
		if st.Do == StepPriority {
			if _, err := event.ParseKind(st.Kind); err != nil {
				return fmt.Errorf("%s[%d]: %w", where, i, err)
			}
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceContains, AssertTraceCount, AssertJournalCount:
		if _, err := event.ParseKind(a.Kind); err != nil && a.Kind != KindNote {
			return err
		}
	case AssertTraceOrder:
		if len(a.Labels) < 2 {
			return fmt.Errorf("trace_order needs at least two labels")
		}
	case AssertRoundResult:
		if a.Round <= 0 {
			return fmt.Errorf("round_result needs a round")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
