package constants

// LogLevel is a recognized logging verbosity.
type LogLevel string

const (
	// LevelInfo logs run start and finish only.
	LevelInfo LogLevel = "info"

	// LevelDebug adds per-step counters and enables the step tracer.
	LevelDebug LogLevel = "debug"

	// LevelTrace adds per-field diagnostics to the step trace.
	LevelTrace LogLevel = "trace"
)

// Valid returns true if the level is a recognized value.
func (l LogLevel) Valid() bool {
	switch l {
	case LevelInfo, LevelDebug, LevelTrace:
		return true
	}
	return false
}

// String returns the string representation of the level.
func (l LogLevel) String() string {
	return string(l)
}
