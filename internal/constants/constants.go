// Package constants provides the named defaults used throughout biolattice.
// Values follow the reference parameterisation of the lattice model.
package constants

// Lattice and run defaults
const (
	// DefaultGridX, DefaultGridY and DefaultGridZ give a 30x30x10 lattice.
	DefaultGridX = 30
	DefaultGridY = 30
	DefaultGridZ = 10

	// DefaultSteps is the number of timesteps advanced by a full run.
	DefaultSteps = 100

	// DefaultDT is the integration timestep.
	DefaultDT = 0.1

	// DefaultSeed seeds every random stream of a run.
	DefaultSeed = 42
)

// Voltage field defaults
const (
	// DefaultDiffusionRate scales the interior voltage Laplacian.
	DefaultDiffusionRate = 0.2

	// DefaultDecayRate is the fraction of voltage lost per step.
	DefaultDecayRate = 0.05

	// DefaultStimulusStrength is added to a cell when it is stimulated.
	DefaultStimulusStrength = 1.0

	// DefaultStimulusProbability is the per-cell, per-step stimulus chance.
	DefaultStimulusProbability = 0.01

	// DefaultVoltageFeedbackStrength disables phase-to-voltage feedback.
	DefaultVoltageFeedbackStrength = 0.0

	// InitialVoltageScale scales the uniform draw used to seed voltages.
	InitialVoltageScale = 0.1
)

// Phase field defaults
const (
	DefaultBioelectricCoupling    = 0.5
	DefaultPhaseDiffusion         = 1.0
	DefaultPhasePotentialStrength = 2.0
)

// Spin defaults
const (
	// DefaultSpinModel selects the tunneling flip rule.
	DefaultSpinModel = "tunneling"

	// DefaultCouplingStrength weights nearest-neighbor alignment.
	DefaultCouplingStrength = 0.1

	// DefaultLongRangeCouplingStrength weights the neighborhood cube average.
	// Zero disables the long-range term.
	DefaultLongRangeCouplingStrength = 0.05

	// DefaultLongRangeRadius is the Chebyshev radius of the neighborhood cube.
	DefaultLongRangeRadius = 3

	// DefaultKT is the thermal energy of the tunneling model.
	DefaultKT = 0.05

	// DefaultTemperature is the heat-bath temperature of the Ising model.
	DefaultTemperature = 0.1
)

// Differentiation defaults
const (
	// DefaultThresholdPotential is the rising threshold. Cells revert below
	// half of it.
	DefaultThresholdPotential = 0.6
)

// Analysis defaults
const (
	// DefaultEntropyBins is the histogram bin count for entropy tracking.
	DefaultEntropyBins = 20

	// EntropySmoothing is added to every histogram density before
	// normalising, so empty bins contribute a finite term.
	EntropySmoothing = 1e-9
)

// Recording defaults
const (
	// DefaultRecordEvery appends a snapshot after every step.
	DefaultRecordEvery = 1

	// StepTraceFile is the JSONL file written by the step tracer.
	StepTraceFile = "steps.jsonl"
)
