// Package config provides unified configuration loading for biolattice.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/nvandessel/biolattice/internal/constants"
	"github.com/nvandessel/biolattice/internal/dynamics"
	"github.com/nvandessel/biolattice/internal/lattice"
	"gopkg.in/yaml.v3"
)

// FieldError reports an invalid configuration value.
type FieldError struct {
	Field  string
	Value  any
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Config contains all biolattice configuration settings.
type Config struct {
	Lattice         LatticeConfig         `json:"lattice" yaml:"lattice"`
	Voltage         VoltageConfig         `json:"voltage" yaml:"voltage"`
	Phase           PhaseConfig           `json:"phase" yaml:"phase"`
	Spin            SpinConfig            `json:"spin" yaml:"spin"`
	Differentiation DifferentiationConfig `json:"differentiation" yaml:"differentiation"`
	Recording       RecordingConfig       `json:"recording" yaml:"recording"`
	Logging         LoggingConfig         `json:"logging" yaml:"logging"`
}

// LatticeConfig fixes the grid and the run length.
type LatticeConfig struct {
	// GridSize is [X, Y, Z]. Z == 1 selects a planar lattice.
	GridSize [3]int  `json:"grid_size" yaml:"grid_size,flow"`
	Steps    int     `json:"steps" yaml:"steps"`
	DT       float64 `json:"dt" yaml:"dt"`
	Seed     uint64  `json:"seed" yaml:"seed"`

	// Workers bounds the goroutines used per sweep. 0 uses GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
}

// VoltageConfig configures the reaction-diffusion voltage update.
type VoltageConfig struct {
	DiffusionRate       float64 `json:"diffusion_rate" yaml:"diffusion_rate"`
	DecayRate           float64 `json:"decay_rate" yaml:"decay_rate"`
	StimulusStrength    float64 `json:"stimulus_strength" yaml:"stimulus_strength"`
	StimulusProbability float64 `json:"stimulus_probability" yaml:"stimulus_probability"`

	// FeedbackStrength couples the previous phase back into voltage.
	// Zero disables feedback.
	FeedbackStrength float64 `json:"voltage_feedback_strength" yaml:"voltage_feedback_strength"`
}

// PhaseConfig configures the phase-field update.
type PhaseConfig struct {
	BioelectricCoupling float64 `json:"bioelectric_coupling" yaml:"bioelectric_coupling"`
	Diffusion           float64 `json:"phase_diffusion" yaml:"phase_diffusion"`
	PotentialStrength   float64 `json:"phase_potential_strength" yaml:"phase_potential_strength"`
}

// SpinConfig selects the spin model and its parameters.
type SpinConfig struct {
	// Model is "tunneling" or "ising_thermal".
	Model             string  `json:"spin_model" yaml:"spin_model"`
	CouplingStrength  float64 `json:"coupling_strength" yaml:"coupling_strength"`
	LongRangeStrength float64 `json:"long_range_coupling_strength" yaml:"long_range_coupling_strength"`
	LongRangeRadius   int     `json:"long_range_radius" yaml:"long_range_radius"`
	KT                float64 `json:"kT" yaml:"kT"`
	Temperature       float64 `json:"temperature" yaml:"temperature"`
}

// DifferentiationConfig configures the hysteretic state switch.
type DifferentiationConfig struct {
	ThresholdPotential float64 `json:"threshold_potential" yaml:"threshold_potential"`
}

// RecordingConfig controls the time series.
type RecordingConfig struct {
	// RecordEvery appends a snapshot every N steps. The initial state is
	// always recorded.
	RecordEvery int `json:"record_every" yaml:"record_every"`

	// Database is a SQLite path. Empty keeps the time series in memory.
	Database string `json:"database" yaml:"database"`
}

// LoggingConfig configures logging verbosity.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the step trace; "trace" adds per-field statistics.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with the reference parameterisation.
func Default() *Config {
	return &Config{
		Lattice: LatticeConfig{
			GridSize: [3]int{constants.DefaultGridX, constants.DefaultGridY, constants.DefaultGridZ},
			Steps:    constants.DefaultSteps,
			DT:       constants.DefaultDT,
			Seed:     constants.DefaultSeed,
		},
		Voltage: VoltageConfig{
			DiffusionRate:       constants.DefaultDiffusionRate,
			DecayRate:           constants.DefaultDecayRate,
			StimulusStrength:    constants.DefaultStimulusStrength,
			StimulusProbability: constants.DefaultStimulusProbability,
			FeedbackStrength:    constants.DefaultVoltageFeedbackStrength,
		},
		Phase: PhaseConfig{
			BioelectricCoupling: constants.DefaultBioelectricCoupling,
			Diffusion:           constants.DefaultPhaseDiffusion,
			PotentialStrength:   constants.DefaultPhasePotentialStrength,
		},
		Spin: SpinConfig{
			Model:             constants.DefaultSpinModel,
			CouplingStrength:  constants.DefaultCouplingStrength,
			LongRangeStrength: constants.DefaultLongRangeCouplingStrength,
			LongRangeRadius:   constants.DefaultLongRangeRadius,
			KT:                constants.DefaultKT,
			Temperature:       constants.DefaultTemperature,
		},
		Differentiation: DifferentiationConfig{
			ThresholdPotential: constants.DefaultThresholdPotential,
		},
		Recording: RecordingConfig{
			RecordEvery: constants.DefaultRecordEvery,
		},
		Logging: LoggingConfig{
			Level: constants.LevelInfo.String(),
		},
	}
}

// Load returns the defaults, overlaid by the YAML file at path (if path is
// non-empty) and then by environment variables.
func Load(path string) (*Config, error) {
	config := Default()
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys missing
// from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// YAML renders the configuration in the same layout LoadFromFile reads.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// Validate checks every option and returns the first *FieldError found.
func (c *Config) Validate() error {
	if _, err := c.Shape(); err != nil {
		return &FieldError{Field: "lattice.grid_size", Value: c.Lattice.GridSize, Reason: err.Error(), Err: err}
	}
	if c.Lattice.Steps < 1 {
		return &FieldError{Field: "lattice.steps", Value: c.Lattice.Steps, Reason: "must be positive"}
	}
	if !positive(c.Lattice.DT) {
		return &FieldError{Field: "lattice.dt", Value: c.Lattice.DT, Reason: "must be positive and finite"}
	}
	if c.Lattice.Workers < 0 {
		return &FieldError{Field: "lattice.workers", Value: c.Lattice.Workers, Reason: "must be non-negative"}
	}

	for _, f := range []struct {
		name  string
		value float64
	}{
		{"voltage.diffusion_rate", c.Voltage.DiffusionRate},
		{"voltage.decay_rate", c.Voltage.DecayRate},
		{"voltage.stimulus_strength", c.Voltage.StimulusStrength},
		{"voltage.voltage_feedback_strength", c.Voltage.FeedbackStrength},
		{"phase.bioelectric_coupling", c.Phase.BioelectricCoupling},
		{"phase.phase_diffusion", c.Phase.Diffusion},
		{"phase.phase_potential_strength", c.Phase.PotentialStrength},
		{"spin.coupling_strength", c.Spin.CouplingStrength},
		{"spin.long_range_coupling_strength", c.Spin.LongRangeStrength},
		{"differentiation.threshold_potential", c.Differentiation.ThresholdPotential},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &FieldError{Field: f.name, Value: f.value, Reason: "must be finite"}
		}
	}

	if p := c.Voltage.StimulusProbability; !(p >= 0 && p <= 1) {
		return &FieldError{Field: "voltage.stimulus_probability", Value: p, Reason: "must be between 0 and 1"}
	}

	model, err := dynamics.ParseSpinModel(c.Spin.Model)
	if err != nil {
		return &FieldError{Field: "spin.spin_model", Value: c.Spin.Model, Reason: "must be tunneling or ising_thermal", Err: err}
	}
	switch model {
	case dynamics.Tunneling:
		// +Inf is accepted: every barrier collapses and all candidates flip.
		if !(c.Spin.KT > 0) {
			return &FieldError{Field: "spin.kT", Value: c.Spin.KT, Reason: "must be positive"}
		}
		if c.Spin.LongRangeRadius < 0 {
			return &FieldError{Field: "spin.long_range_radius", Value: c.Spin.LongRangeRadius, Reason: "must be non-negative"}
		}
	case dynamics.IsingThermal:
		if !(c.Spin.Temperature > 0) {
			return &FieldError{Field: "spin.temperature", Value: c.Spin.Temperature, Reason: "must be positive"}
		}
	}

	if c.Recording.RecordEvery < 1 {
		return &FieldError{Field: "recording.record_every", Value: c.Recording.RecordEvery, Reason: "must be at least 1"}
	}

	if c.Logging.Level != "" && !constants.LogLevel(c.Logging.Level).Valid() {
		return &FieldError{Field: "logging.level", Value: c.Logging.Level, Reason: "valid: info, debug, trace, or empty for default"}
	}

	return nil
}

// Shape returns the lattice shape named by grid_size.
func (c *Config) Shape() (lattice.Shape, error) {
	s := lattice.Shape{X: c.Lattice.GridSize[0], Y: c.Lattice.GridSize[1], Z: c.Lattice.GridSize[2]}
	if err := s.Validate(); err != nil {
		return lattice.Shape{}, err
	}
	return s, nil
}

// VoltageParams returns the voltage update parameters.
func (c *Config) VoltageParams() dynamics.VoltageParams {
	return dynamics.VoltageParams{
		DiffusionRate:       c.Voltage.DiffusionRate,
		DecayRate:           c.Voltage.DecayRate,
		StimulusStrength:    c.Voltage.StimulusStrength,
		StimulusProbability: c.Voltage.StimulusProbability,
		FeedbackStrength:    c.Voltage.FeedbackStrength,
		DT:                  c.Lattice.DT,
	}
}

// PhaseParams returns the phase update parameters.
func (c *Config) PhaseParams() dynamics.PhaseParams {
	return dynamics.PhaseParams{
		BioelectricCoupling: c.Phase.BioelectricCoupling,
		Diffusion:           c.Phase.Diffusion,
		PotentialStrength:   c.Phase.PotentialStrength,
		DT:                  c.Lattice.DT,
	}
}

// SpinParams returns the spin update parameters. The model name must
// already have passed Validate.
func (c *Config) SpinParams() (dynamics.SpinParams, error) {
	model, err := dynamics.ParseSpinModel(c.Spin.Model)
	if err != nil {
		return dynamics.SpinParams{}, err
	}
	return dynamics.SpinParams{
		Model:             model,
		CouplingStrength:  c.Spin.CouplingStrength,
		LongRangeStrength: c.Spin.LongRangeStrength,
		LongRangeRadius:   c.Spin.LongRangeRadius,
		KT:                c.Spin.KT,
		Temperature:       c.Spin.Temperature,
	}, nil
}

func positive(f float64) bool {
	return f > 0 && !math.IsInf(f, 0)
}

// applyEnvOverrides applies environment variable overrides to the config.
// Malformed numbers are reported rather than ignored.
func applyEnvOverrides(config *Config) error {
	var errs []error

	if v := os.Getenv("BIOLATTICE_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Lattice.Seed = n
		} else {
			errs = append(errs, &FieldError{Field: "BIOLATTICE_SEED", Value: v, Reason: "not an unsigned integer", Err: err})
		}
	}

	if v := os.Getenv("BIOLATTICE_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Lattice.Steps = n
		} else {
			errs = append(errs, &FieldError{Field: "BIOLATTICE_STEPS", Value: v, Reason: "not an integer", Err: err})
		}
	}

	if v := os.Getenv("BIOLATTICE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Lattice.Workers = n
		} else {
			errs = append(errs, &FieldError{Field: "BIOLATTICE_WORKERS", Value: v, Reason: "not an integer", Err: err})
		}
	}

	if v := os.Getenv("BIOLATTICE_SPIN_MODEL"); v != "" {
		config.Spin.Model = v
	}

	if v := os.Getenv("BIOLATTICE_DATABASE"); v != "" {
		config.Recording.Database = v
	}

	if v := os.Getenv("BIOLATTICE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	return errors.Join(errs...)
}
