package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nvandessel/biolattice/internal/analysis"
	"github.com/nvandessel/biolattice/internal/config"
	"github.com/nvandessel/biolattice/internal/engine"
	"github.com/nvandessel/biolattice/internal/export"
	"github.com/nvandessel/biolattice/internal/lattice"
	"github.com/nvandessel/biolattice/internal/logging"
	"github.com/nvandessel/biolattice/internal/store"
	"github.com/spf13/cobra"
)

// runResult is the summary printed after a run.
type runResult struct {
	RunID         string           `json:"run_id"`
	Shape         lattice.Shape    `json:"shape"`
	Seed          uint64           `json:"seed"`
	SpinModel     string           `json:"spin_model"`
	Steps         int              `json:"steps"`
	Elapsed       string           `json:"elapsed"`
	Database      string           `json:"database,omitempty"`
	Frames        int              `json:"frames"`
	Last          engine.Stats     `json:"last_step"`
	Summary       analysis.Summary `json:"summary"`
	LargestDomain int              `json:"largest_spin_up_domain"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		Long: `Initialize a lattice from a seed and advance it for a number of steps.

Flags override the configuration file, which overrides the defaults.
With --db the recorded frames are stored in a SQLite run that the
stats command can analyse later.

Examples:
  biolattice run                                  # 30x30x10, 100 steps
  biolattice run --size 20x20x1 --steps 500       # planar lattice
  biolattice run --spin-model ising_thermal --seed 7
  biolattice run --db runs.db --record-every 10 --json`,
		RunE: runSimulation,
	}

	cmd.Flags().String("size", "", "Lattice size as XxYxZ (e.g. 30x30x10)")
	cmd.Flags().Int("steps", 0, "Number of steps to run")
	cmd.Flags().Uint64("seed", 0, "Random seed")
	cmd.Flags().String("spin-model", "", "Spin model: tunneling or ising_thermal")
	cmd.Flags().Int("workers", 0, "Sweep workers (0 = one per CPU)")
	cmd.Flags().Int("record-every", 0, "Record a frame every N steps")
	cmd.Flags().String("db", "", "SQLite database to record the run into")
	cmd.Flags().String("log-level", "", "Log level: info, debug, trace")
	cmd.Flags().String("trace-dir", "", "Directory for steps.jsonl at debug/trace level")

	return cmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	shape, err := cfg.Shape()
	if err != nil {
		return err
	}
	spin, err := cfg.SpinParams()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	opts := []engine.Option{engine.WithLogger(logger)}

	if dir, _ := cmd.Flags().GetString("trace-dir"); dir != "" {
		tracer := logging.NewStepTracer(dir, cfg.Logging.Level)
		defer tracer.Close()
		opts = append(opts, engine.WithTracer(tracer))
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	var recorder store.Recorder = store.NewMemoryRecorder()
	if cfg.Recording.Database != "" {
		db, err := store.OpenSQLite(cfg.Recording.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		yaml, err := cfg.YAML()
		if err != nil {
			return err
		}
		id, err := db.CreateRun(ctx, store.Run{
			Shape:     shape,
			Seed:      cfg.Lattice.Seed,
			SpinModel: spin.Model.String(),
			Config:    string(yaml),
		})
		if err != nil {
			return fmt.Errorf("failed to create run: %w", err)
		}
		rec, err := db.Recorder(ctx, id)
		if err != nil {
			return err
		}
		recorder = rec
		opts = append(opts, engine.WithRunID(id))
	}
	opts = append(opts, engine.WithRecorder(recorder))

	stepper, err := engine.New(cfg, opts...)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := stepper.Initialize(ctx, shape, cfg.Lattice.Seed); err != nil {
		return fmt.Errorf("failed to initialize lattice: %w", err)
	}
	runErr := stepper.Run(ctx)
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}

	final := stepper.Snapshot()
	g := export.BuildGraph(final)
	result := runResult{
		RunID:         stepper.RunID(),
		Shape:         shape,
		Seed:          cfg.Lattice.Seed,
		SpinModel:     stepper.SpinModel().String(),
		Steps:         stepper.Step(),
		Elapsed:       time.Since(start).Round(time.Millisecond).String(),
		Database:      cfg.Recording.Database,
		Frames:        recorder.Len(),
		Last:          stepper.LastStats(),
		Summary:       analysis.Summarize(g),
		LargestDomain: len(analysis.LargestDomain(g, 1)),
	}

	if jsonOut {
		if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		printRunResult(cmd, result)
	}

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	return nil
}

// loadRunConfig loads the configuration file and applies the run flags
// that were set explicitly.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("size") {
		v, _ := flags.GetString("size")
		size, err := parseSize(v)
		if err != nil {
			return nil, err
		}
		cfg.Lattice.GridSize = size
	}
	if flags.Changed("steps") {
		cfg.Lattice.Steps, _ = flags.GetInt("steps")
	}
	if flags.Changed("seed") {
		cfg.Lattice.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("spin-model") {
		cfg.Spin.Model, _ = flags.GetString("spin-model")
	}
	if flags.Changed("workers") {
		cfg.Lattice.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("record-every") {
		cfg.Recording.RecordEvery, _ = flags.GetInt("record-every")
	}
	if flags.Changed("db") {
		cfg.Recording.Database, _ = flags.GetString("db")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseSize parses "XxYxZ", or "XxY" for a planar lattice.
func parseSize(s string) ([3]int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) == 2 {
		parts = append(parts, "1")
	}
	if len(parts) != 3 {
		return [3]int{}, fmt.Errorf("invalid size %q: want XxYxZ", s)
	}

	var size [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return [3]int{}, fmt.Errorf("invalid size %q: %q is not a positive integer", s, p)
		}
		size[i] = n
	}
	return size, nil
}

func printRunResult(cmd *cobra.Command, r runResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", r.RunID)
	fmt.Fprintf(out, "  lattice:        %s (%d interior cells)\n", r.Shape, r.Summary.Nodes)
	fmt.Fprintf(out, "  spin model:     %s\n", r.SpinModel)
	fmt.Fprintf(out, "  seed:           %d\n", r.Seed)
	fmt.Fprintf(out, "  steps:          %d in %s\n", r.Steps, r.Elapsed)
	fmt.Fprintf(out, "  frames:         %d\n", r.Frames)
	if r.Database != "" {
		fmt.Fprintf(out, "  database:       %s\n", r.Database)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Interior summary:")
	fmt.Fprintf(out, "  avg voltage:    %.4f\n", r.Summary.AvgVoltage)
	fmt.Fprintf(out, "  spin up/down:   %d/%d (coherence %.3f)\n", r.Summary.SpinUp, r.Summary.SpinDown, r.Summary.Coherence)
	fmt.Fprintf(out, "  differentiated: %d\n", r.Summary.Differentiated)
	fmt.Fprintf(out, "  largest domain: %d\n", r.LargestDomain)
}
