package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/arena/internal/battle"
	"github.com/roach88/arena/internal/config"
	"github.com/roach88/arena/internal/engine"
	"github.com/roach88/arena/internal/observability"
	"github.com/roach88/arena/internal/robots"
	"github.com/roach88/arena/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal     string // overrides the battle file's journal
	MetricsAddr string
	Trace       bool
	TraceFile   string

	// IDGenerator allows overriding the battle ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.IDGenerator

	// Robots resolves robot names. Defaults to robots.Default().
	Robots config.Lookup
}

// BattleSummary is the output of the run command.
type BattleSummary struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Rounds  []RoundSummary `json:"rounds"`
	Ranking []string       `json:"ranking"`
	Scores  map[string]int `json:"scores"`
	Aborted bool           `json:"aborted,omitempty"`
	Journal string         `json:"journal,omitempty"`
}

type RoundSummary struct {
	Round   int      `json:"round"`
	Turns   int64    `json:"turns"`
	Winner  string   `json:"winner,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

func (s BattleSummary) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Battle %s (%s)\n", s.Name, s.ID)
	for _, r := range s.Rounds {
		winner := r.Winner
		if winner == "" {
			winner = "none"
		}
		fmt.Fprintf(&buf, "  round %d: %d turns, winner %s", r.Round, r.Turns, winner)
		if len(r.Removed) > 0 {
			fmt.Fprintf(&buf, ", removed %s", strings.Join(r.Removed, ", "))
		}
		buf.WriteString("\n")
	}
	buf.WriteString("Ranking:\n")
	for i, name := range s.Ranking {
		fmt.Fprintf(&buf, "  %d. %s (%d)\n", i+1, name, s.Scores[name])
	}
	if s.Aborted {
		buf.WriteString("Battle aborted.\n")
	}
	if s.Journal != "" {
		fmt.Fprintf(&buf, "Journal: %s", s.Journal)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <battle-file>",
		Short: "Run a battle",
		Long: `Run a battle described by a YAML or CUE battle file.

Every round places the agents, runs them in lock-step with the battlefield
until one survivor is left or the tick limit is reached, and ranks them.
With a journal, every transmissible delivery is recorded in SQLite for
the trace command.

Example:
  arena run testdata/battles/duel.yaml
  arena run --journal ./duel.db --format json battle.cue
  arena run --metrics-addr :9090 --trace battle.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBattle(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (overrides the battle file)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the battle runs")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "export OpenTelemetry spans")
	cmd.Flags().StringVar(&opts.TraceFile, "trace-file", "", "write spans to this file instead of stderr")

	return cmd
}

func runBattle(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg, err := config.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load battle file", err)
	}
	slog.Info("battle file loaded", "path", path, "agents", len(cfg.Agents))

	lookup := opts.Robots
	if lookup == nil {
		lookup = robots.Default()
	}
	entrants, err := cfg.Entrants(lookup)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid battle file", err)
	}
	field, err := cfg.Physics()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid battle file", err)
	}
	battleOpts, err := cfg.Options()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid battle file", err)
	}

	ctx, cancel := context.WithCancel(cmdContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, aborting battle", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	shutdown, err := startTracing(ctx, opts, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start tracing", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewCollector(reg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register metrics", err)
	}
	if opts.MetricsAddr != "" {
		srv := &http.Server{Addr: opts.MetricsAddr, Handler: collector.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server stopped", "addr", opts.MetricsAddr, "error", err)
			}
		}()
		defer srv.Close()
		slog.Info("serving metrics", "addr", opts.MetricsAddr)
	}

	gen := opts.IDGenerator
	if gen == nil {
		gen = engine.UUIDv7Generator{}
	}
	id := gen.Generate()
	battleOpts = append(battleOpts,
		battle.WithIDGenerator(engine.NewFixedGenerator(id)),
		battle.WithMetrics(collector),
	)

	journalPath := cfg.Journal
	if opts.Journal != "" {
		journalPath = opts.Journal
	}
	var st *store.Store
	if journalPath != "" {
		st, err = store.Open(journalPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()
		if err := st.WriteBattle(ctx, id, cfg.Name, cfg); err != nil {
			return WrapExitError(ExitCommandError, "failed to record battle", err)
		}
		journal := store.NewJournal(st, id)
		battleOpts = append(battleOpts, battle.WithRecorder(journal))
		defer func() {
			slog.Info("journal closed", "written", journal.Written(), "skipped", journal.Skipped(), "failed", journal.Failed())
		}()
	}

	b, err := battle.New(field, entrants, battleOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create battle", err)
	}
	opts.VerboseLogf(cmd, "battle %s starting with %d agents", id, len(entrants))

	res, runErr := b.Run(ctx)
	if res == nil {
		return WrapExitError(ExitFailure, "battle failed", runErr)
	}
	if st != nil {
		// The battle context may be cancelled; record the result regardless.
		if err := st.FinishBattle(context.Background(), id, res); err != nil {
			slog.Error("failed to record battle result", "id", id, "error", err)
		}
	}

	summary := summarize(res)
	summary.Journal = journalPath
	f := newFormatter(opts.RootOptions, cmd)
	if err := f.SuccessForBattle(id, summary); err != nil {
		return err
	}
	if runErr != nil || res.Aborted {
		return WrapExitError(ExitFailure, "battle aborted", runErr)
	}
	return nil
}

// VerboseLogf writes a diagnostic line to stderr in verbose mode.
func (o *RootOptions) VerboseLogf(cmd *cobra.Command, format string, args ...any) {
	newFormatter(o, cmd).VerboseLog(format, args...)
}

func startTracing(ctx context.Context, opts *RunOptions, cmd *cobra.Command) (func(context.Context) error, error) {
	cfg := observability.TracingConfig{Enabled: opts.Trace, ServiceName: "arena"}
	if opts.Trace {
		cfg.Writer = cmd.ErrOrStderr()
		if opts.TraceFile != "" {
			f, err := os.Create(opts.TraceFile)
			if err != nil {
				return nil, err
			}
			cfg.Writer = f
			shutdown, err := observability.InitTracing(ctx, cfg)
			if err != nil {
				f.Close()
				return nil, err
			}
			return func(ctx context.Context) error {
				defer f.Close()
				return shutdown(ctx)
			}, nil
		}
	}
	return observability.InitTracing(ctx, cfg)
}

func summarize(res *battle.Result) BattleSummary {
	s := BattleSummary{
		ID:      res.ID,
		Name:    res.Name,
		Rounds:  make([]RoundSummary, 0, len(res.Rounds)),
		Ranking: res.Ranking,
		Scores:  res.Scores,
		Aborted: res.Aborted,
	}
	for _, r := range res.Rounds {
		removed := append([]string(nil), r.Removed...)
		sort.Strings(removed)
		s.Rounds = append(s.Rounds, RoundSummary{Round: r.Round, Turns: r.Turns, Winner: r.Winner, Removed: removed})
	}
	return s
}
