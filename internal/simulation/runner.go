package simulation

import (
	"path/filepath"
	"testing"

	"github.com/nvandessel/biolattice/internal/config"
	"github.com/nvandessel/biolattice/internal/engine"
	"github.com/nvandessel/biolattice/internal/lattice"
	"github.com/nvandessel/biolattice/internal/store"
)

// Runner executes scenarios against the real Stepper.
type Runner struct {
	t   *testing.T
	dir string
	db  *store.SQLiteStore
}

// NewRunner creates a runner whose persisted runs live in an isolated
// temporary directory.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{t: t, dir: t.TempDir()}
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) Result {
	r.t.Helper()
	ctx := r.t.Context()

	cfg := config.Default()
	cfg.Lattice.GridSize = [3]int{scenario.Shape.X, scenario.Shape.Y, scenario.Shape.Z}
	cfg.Lattice.Seed = scenario.Seed
	cfg.Lattice.Steps = scenario.Steps
	if scenario.Configure != nil {
		scenario.Configure(cfg)
	}

	recorder, runID := r.recorder(scenario, cfg)

	opts := []engine.Option{engine.WithRecorder(recorder), engine.WithRunID(runID)}
	if scenario.Workers > 0 {
		opts = append(opts, engine.WithWorkers(scenario.Workers))
	}
	stepper, err := engine.New(cfg, opts...)
	if err != nil {
		r.t.Fatalf("scenario %s: engine.New: %v", scenario.Name, err)
	}

	if scenario.Fill != nil {
		snap := lattice.Snapshot{Shape: scenario.Shape, Fields: lattice.NewFields(scenario.Shape)}
		scenario.Fill(scenario.Shape, snap.Fields)
		if err := stepper.Restore(ctx, snap); err != nil {
			r.t.Fatalf("scenario %s: Restore: %v", scenario.Name, err)
		}
	} else if err := stepper.Initialize(ctx, scenario.Shape, scenario.Seed); err != nil {
		r.t.Fatalf("scenario %s: Initialize: %v", scenario.Name, err)
	}

	stats := make([]engine.Stats, 0, scenario.Steps)
	for range scenario.Steps {
		if err := stepper.Advance(ctx, 1); err != nil {
			r.t.Fatalf("scenario %s: step %d: %v", scenario.Name, stepper.Step()+1, err)
		}
		stats = append(stats, stepper.LastStats())
	}

	frames, err := recorder.Frames(ctx)
	if err != nil {
		r.t.Fatalf("scenario %s: Frames: %v", scenario.Name, err)
	}

	return Result{
		Scenario: scenario.Name,
		RunID:    stepper.RunID(),
		Frames:   frames,
		Stats:    stats,
		Final:    stepper.Snapshot(),
	}
}

// recorder returns an in-memory time series, or a fresh SQLite run when the
// scenario asks for persistence.
func (r *Runner) recorder(scenario Scenario, cfg *config.Config) (store.Recorder, string) {
	r.t.Helper()
	if !scenario.Persist {
		return store.NewMemoryRecorder(), scenario.Name
	}

	db := r.Store()
	yaml, err := cfg.YAML()
	if err != nil {
		r.t.Fatalf("scenario %s: YAML: %v", scenario.Name, err)
	}

	spin, err := cfg.SpinParams()
	if err != nil {
		r.t.Fatalf("scenario %s: %v", scenario.Name, err)
	}

	ctx := r.t.Context()
	id, err := db.CreateRun(ctx, store.Run{
		Shape:     scenario.Shape,
		Seed:      cfg.Lattice.Seed,
		SpinModel: spin.Model.String(),
		Config:    string(yaml),
	})
	if err != nil {
		r.t.Fatalf("scenario %s: CreateRun: %v", scenario.Name, err)
	}
	rec, err := db.Recorder(ctx, id)
	if err != nil {
		r.t.Fatalf("scenario %s: Recorder: %v", scenario.Name, err)
	}
	return rec, id
}

// Store returns the runner's SQLite store, opening it on first use.
func (r *Runner) Store() *store.SQLiteStore {
	r.t.Helper()
	if r.db != nil {
		return r.db
	}
	db, err := store.OpenSQLite(filepath.Join(r.dir, "runs.db"))
	if err != nil {
		r.t.Fatalf("NewRunner: failed to open store: %v", err)
	}
	r.t.Cleanup(func() { db.Close() })
	r.db = db
	return db
}
