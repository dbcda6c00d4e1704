// Package engine owns the lattice state and advances it one timestep at a
// time: voltage, then phase, then spin, then differentiation. Each stage
// writes a fresh buffer from the committed fields, so no update observes a
// partially written field.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/biolattice/internal/config"
	"github.com/nvandessel/biolattice/internal/constants"
	"github.com/nvandessel/biolattice/internal/dynamics"
	"github.com/nvandessel/biolattice/internal/lattice"
	"github.com/nvandessel/biolattice/internal/logging"
	"github.com/nvandessel/biolattice/internal/rng"
	"github.com/nvandessel/biolattice/internal/store"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNonFinite is returned when a step produces NaN or ±Inf. The step
	// is not committed.
	ErrNonFinite = errors.New("engine: non-finite field value")

	// ErrNotInitialized is returned by Advance before Initialize or Restore.
	ErrNotInitialized = errors.New("engine: stepper not initialized")

	// ErrInvalidSnapshot is returned by Restore for fields outside their
	// domains.
	ErrInvalidSnapshot = errors.New("engine: invalid snapshot")
)

// Stats are the counters of the most recent step.
type Stats struct {
	Step           int     `json:"step"`
	Stimulated     int     `json:"stimulated"`
	Flips          int     `json:"flips"`
	Differentiated int     `json:"differentiated"`
	MeanVoltage    float64 `json:"mean_voltage"`
}

// Option configures a Stepper.
type Option func(*Stepper)

// WithLogger sets the operational logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stepper) { s.logger = l }
}

// WithTracer attaches a JSONL step tracer.
func WithTracer(t *logging.StepTracer) Option {
	return func(s *Stepper) { s.tracer = t }
}

// WithRecorder sets the time series every recorded snapshot is appended to.
func WithRecorder(r store.Recorder) Option {
	return func(s *Stepper) { s.recorder = r }
}

// WithWorkers overrides the configured sweep worker count.
func WithWorkers(n int) Option {
	return func(s *Stepper) { s.sweep.Workers = n }
}

// WithRunID labels log records and trace lines. A random ID is used
// otherwise.
func WithRunID(id string) Option {
	return func(s *Stepper) { s.runID = id }
}

// Stepper advances the coupled lattice fields. It is not safe for
// concurrent use; parallelism happens inside each sweep.
type Stepper struct {
	voltage     dynamics.VoltageParams
	phase       dynamics.PhaseParams
	spin        dynamics.SpinParams
	threshold   float64
	steps       int
	recordEvery int
	seed        uint64

	sweep    dynamics.Sweep
	logger   *slog.Logger
	tracer   *logging.StepTracer
	recorder store.Recorder
	runID    string

	shape       lattice.Shape
	source      rng.Source
	cur, next   lattice.Fields
	step        int
	initialized bool
	last        Stats
}

// New validates cfg and returns a Stepper holding its constants. Invalid
// configuration is reported as a *config.FieldError before any step runs.
func New(cfg *config.Config, opts ...Option) (*Stepper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	spin, err := cfg.SpinParams()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Stepper{
		voltage:     cfg.VoltageParams(),
		phase:       cfg.PhaseParams(),
		spin:        spin,
		threshold:   cfg.Differentiation.ThresholdPotential,
		steps:       cfg.Lattice.Steps,
		recordEvery: cfg.Recording.RecordEvery,
		seed:        cfg.Lattice.Seed,
		sweep:       dynamics.Sweep{Workers: cfg.Lattice.Workers},
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	return s, nil
}

// RunID returns the identifier used in logs and traces.
func (s *Stepper) RunID() string {
	return s.runID
}

// SpinModel returns the spin model fixed for this stepper.
func (s *Stepper) SpinModel() dynamics.SpinModel {
	return s.spin.Model
}

// Shape returns the current lattice shape.
func (s *Stepper) Shape() lattice.Shape {
	return s.shape
}

// Step returns the number of the last committed step.
func (s *Stepper) Step() int {
	return s.step
}

// LastStats returns the counters of the most recent step.
func (s *Stepper) LastStats() Stats {
	return s.last
}

// Initialize allocates fields for shape and draws the initial state from
// seed: voltage 0.1·U[0,1), phase U[0,1), fair-coin spins, and an
// undifferentiated state. The initial snapshot is recorded as step 0.
func (s *Stepper) Initialize(ctx context.Context, shape lattice.Shape, seed uint64) error {
	if err := shape.Validate(); err != nil {
		return err
	}

	s.shape = shape
	s.seed = seed
	s.source = rng.New(seed)
	s.cur = lattice.NewFields(shape)
	s.next = lattice.NewFields(shape)
	s.step = 0
	s.last = Stats{}

	voltage := s.source.Stream(0, rng.StreamInitVoltage)
	phase := s.source.Stream(0, rng.StreamInitPhase)
	spin := s.source.Stream(0, rng.StreamInitSpin)
	for i := range s.cur.Voltage {
		s.cur.Voltage[i] = constants.InitialVoltageScale * voltage.Float64(i)
		s.cur.Phase[i] = phase.Float64(i)
		s.cur.Spin[i] = spin.Bit(i)
	}
	s.last.MeanVoltage = stat.Mean(s.cur.Voltage, nil)
	s.initialized = true

	return s.record(ctx)
}

// Restore replaces the fields with a copy of snap and continues numbering
// from snap.Step. Draws for later steps use the configured seed.
func (s *Stepper) Restore(ctx context.Context, snap lattice.Snapshot) error {
	if err := snap.Shape.Validate(); err != nil {
		return err
	}
	if err := snap.Fields.Check(snap.Shape); err != nil {
		return err
	}
	for i := range snap.Voltage {
		switch {
		case math.IsNaN(snap.Voltage[i]) || snap.Voltage[i] < 0 || snap.Voltage[i] > 1:
			return fmt.Errorf("%w: voltage[%d] = %v outside [0,1]", ErrInvalidSnapshot, i, snap.Voltage[i])
		case math.IsNaN(snap.Phase[i]) || math.IsInf(snap.Phase[i], 0):
			return fmt.Errorf("%w: phase[%d] = %v", ErrInvalidSnapshot, i, snap.Phase[i])
		case snap.Spin[i] > 1:
			return fmt.Errorf("%w: spin[%d] = %d", ErrInvalidSnapshot, i, snap.Spin[i])
		case snap.State[i] > 1:
			return fmt.Errorf("%w: state[%d] = %d", ErrInvalidSnapshot, i, snap.State[i])
		}
	}

	s.shape = snap.Shape
	s.source = rng.New(s.seed)
	s.cur = snap.Fields.Clone()
	s.next = lattice.NewFields(snap.Shape)
	s.step = snap.Step
	s.last = Stats{Step: snap.Step, MeanVoltage: stat.Mean(s.cur.Voltage, nil)}
	s.initialized = true

	return s.record(ctx)
}

// Snapshot returns a deep copy of the committed fields. It is the zero
// Snapshot before Initialize or Restore.
func (s *Stepper) Snapshot() lattice.Snapshot {
	if !s.initialized {
		return lattice.Snapshot{}
	}
	return lattice.NewSnapshot(s.step, s.shape, s.cur)
}

// Run advances the configured number of steps.
func (s *Stepper) Run(ctx context.Context) error {
	start := time.Now()
	s.logger.Info("run started",
		"run_id", s.runID,
		"shape", s.shape.String(),
		"steps", s.steps,
		"spin_model", s.spin.Model.String(),
		"seed", s.seed,
		"workers", s.sweep.Workers)

	if err := s.Advance(ctx, s.steps); err != nil {
		s.logger.Error("run failed", "run_id", s.runID, "step", s.step, "error", err)
		return err
	}

	s.logger.Info("run finished",
		"run_id", s.runID,
		"steps", s.step,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"mean_voltage", s.last.MeanVoltage,
		"differentiated", s.last.Differentiated)
	return nil
}

// Advance applies n timesteps. Cancellation is checked between steps; a
// cancelled run keeps every step committed so far.
func (s *Stepper) Advance(ctx context.Context, n int) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	for range n {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("advance stopped after step %d: %w", s.step, err)
		}
		if err := s.advance(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stepper) advance(ctx context.Context) error {
	start := time.Now()
	t := s.step + 1
	cur, next := s.cur, s.next

	stimulated := dynamics.StepVoltage(next.Voltage, cur.Voltage, cur.Phase, s.shape, s.voltage,
		s.source.Stream(t, rng.StreamStimulus), s.sweep)
	dynamics.StepPhase(next.Phase, cur.Phase, next.Voltage, cur.Spin, s.shape, s.phase, s.sweep)
	flips := dynamics.StepSpin(next.Spin, cur.Spin, next.Voltage, next.Phase, s.shape, s.spin,
		s.source.Stream(t, rng.StreamSpinFlip), s.sweep)
	differentiated := dynamics.StepDifferentiation(next.State, cur.State, next.Voltage, s.shape, s.threshold, s.sweep)

	if err := s.checkFinite(t, "voltage", next.Voltage); err != nil {
		return err
	}
	if err := s.checkFinite(t, "phase", next.Phase); err != nil {
		return err
	}

	s.cur, s.next = next, cur
	s.step = t
	s.last = Stats{
		Step:           t,
		Stimulated:     stimulated,
		Flips:          flips,
		Differentiated: differentiated,
		MeanVoltage:    stat.Mean(s.cur.Voltage, nil),
	}

	s.logger.Debug("step",
		"run_id", s.runID,
		"step", t,
		"stimulated", stimulated,
		"flips", flips,
		"differentiated", differentiated,
		"mean_voltage", s.last.MeanVoltage)
	s.trace(time.Since(start))

	if t%s.recordEvery == 0 {
		return s.record(ctx)
	}
	return nil
}

func (s *Stepper) checkFinite(step int, field string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			x, y, z := s.shape.Coord(i)
			return fmt.Errorf("%w: %s = %v at (%d,%d,%d) in step %d", ErrNonFinite, field, v, x, y, z, step)
		}
	}
	return nil
}

func (s *Stepper) trace(elapsed time.Duration) {
	if s.tracer == nil {
		return
	}
	ev := logging.StepEvent{
		RunID:          s.runID,
		Step:           s.last.Step,
		Stimulated:     s.last.Stimulated,
		Flips:          s.last.Flips,
		Differentiated: s.last.Differentiated,
		MeanVoltage:    s.last.MeanVoltage,
		Elapsed:        elapsed,
	}
	if s.tracer.Verbose() {
		ev.Fields = map[string]logging.FieldStats{
			"voltage": fieldStats(s.cur.Voltage),
			"phase":   fieldStats(s.cur.Phase),
		}
	}
	s.tracer.Trace(ev)
}

func fieldStats(values []float64) logging.FieldStats {
	return logging.FieldStats{
		Min:  floats.Min(values),
		Max:  floats.Max(values),
		Mean: stat.Mean(values, nil),
	}
}

func (s *Stepper) record(ctx context.Context) error {
	if s.recorder == nil {
		return nil
	}
	if err := s.recorder.Append(ctx, lattice.NewSnapshot(s.step, s.shape, s.cur)); err != nil {
		return fmt.Errorf("recording step %d: %w", s.step, err)
	}
	return nil
}
