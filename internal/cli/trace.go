package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arena/internal/event"
	"github.com/roach88/arena/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	BattleID string
	Round    int
	Agent    string
	Kind     string
}

// BattleListing is one journaled battle.
type BattleListing struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Finished bool   `json:"finished"`
}

type battleList []BattleListing

func (l battleList) String() string {
	if len(l) == 0 {
		return "No battles journaled."
	}
	var buf strings.Builder
	for _, b := range l {
		state := "finished"
		if !b.Finished {
			state = "unfinished"
		}
		fmt.Fprintf(&buf, "%s  %s (%s)\n", b.ID, b.Name, state)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// TraceView is one agent's journaled stream for one round.
type TraceView struct {
	Round     int         `json:"round"`
	Agent     string      `json:"agent"`
	FirstTick int64       `json:"first_tick"`
	LastTick  int64       `json:"last_tick"`
	Terminal  string      `json:"terminal,omitempty"`
	Events    []EventView `json:"events"`
}

type EventView struct {
	Tick     int64           `json:"tick"`
	Kind     string          `json:"kind"`
	Priority int             `json:"priority"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// TraceReport is the output of the trace command for one battle.
type TraceReport struct {
	BattleID string      `json:"battle_id"`
	Name     string      `json:"name"`
	Traces   []TraceView `json:"traces"`
	events   bool
}

func (r TraceReport) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Battle %s (%s)\n", r.Name, r.BattleID)
	if len(r.Traces) == 0 {
		buf.WriteString("No deliveries match.")
		return buf.String()
	}
	for _, t := range r.Traces {
		end := t.Terminal
		if end == "" {
			end = "cut short"
		}
		fmt.Fprintf(&buf, "round %d %s: %d events, ticks %d-%d, %s\n",
			t.Round, t.Agent, len(t.Events), t.FirstTick, t.LastTick, end)
		if !r.events {
			continue
		}
		for _, e := range t.Events {
			fmt.Fprintf(&buf, "  t%-5d %-24s p%-3d %s\n", e.Tick, e.Kind, e.Priority, e.Payload)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect a battle journal",
		Long: `Read the delivery journal written by 'arena run --journal'.

Without --battle, lists the journaled battles. With --battle, prints each
agent's delivered events per round, in dispatch order. Filters narrow the
output to one round, agent or event kind. Use --verbose to print every
event with its payload.

Examples:
  arena trace --db ./duel.db
  arena trace --db ./duel.db --battle 0192f... --agent hunter
  arena trace --db ./duel.db --battle 0192f... --kind ScannedAgent --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	cmd.Flags().StringVar(&opts.BattleID, "battle", "", "battle ID to trace")
	cmd.Flags().IntVar(&opts.Round, "round", 0, "only this round")
	cmd.Flags().StringVar(&opts.Agent, "agent", "", "only this agent")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only this event kind")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmdContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	if opts.BattleID == "" {
		battles, err := st.ListBattles(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list battles", err)
		}
		out := make(battleList, 0, len(battles))
		for _, b := range battles {
			out = append(out, BattleListing{ID: b.ID, Name: b.Name, Finished: b.Result != nil})
		}
		return f.Success(out)
	}

	filter := store.DeliveryFilter{Round: opts.Round, Agent: opts.Agent}
	if opts.Kind != "" {
		k, err := event.ParseKind(opts.Kind)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --kind", err)
		}
		filter.Kind = k
	}

	b, err := st.ReadBattle(ctx, opts.BattleID)
	if errors.Is(err, store.ErrBattleNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("battle not found: %s", opts.BattleID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read battle", err)
	}
	traces, err := st.Replay(ctx, opts.BattleID, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay journal", err)
	}

	report := TraceReport{BattleID: b.ID, Name: b.Name, Traces: make([]TraceView, 0, len(traces)), events: opts.Verbose}
	for _, t := range traces {
		report.Traces = append(report.Traces, traceView(t))
	}
	return f.SuccessForBattle(b.ID, report)
}

func traceView(t store.AgentTrace) TraceView {
	v := TraceView{
		Round:     t.Round,
		Agent:     t.Agent,
		FirstTick: t.FirstTick,
		LastTick:  t.LastTick,
		Events:    make([]EventView, 0, len(t.Events)),
	}
	if t.Terminal != 0 {
		v.Terminal = t.Terminal.String()
	}
	for _, e := range t.Events {
		ev := EventView{Tick: e.Time(), Kind: e.Kind().String(), Priority: e.Priority()}
		if raw, err := event.MarshalPayload(e.Payload()); err == nil {
			ev.Payload = raw
		}
		v.Events = append(v.Events, ev)
	}
	return v
}

func openExisting(path string) (*store.Store, error) {
	st, err := store.OpenExisting(path)
	if errors.Is(err, store.ErrNoJournal) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return st, nil
}
