// Package logging provides leveled logging and per-step tracing for biolattice.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (run progress)
//   - A StepTracer for structured JSONL step diagnostics (<dir>/steps.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/biolattice/internal/constants"
)

// LevelTrace is a custom slog level below Debug. At this level the step
// tracer also records per-field statistics.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch constants.LogLevel(strings.ToLower(s)) {
	case constants.LevelDebug:
		return slog.LevelDebug
	case constants.LevelTrace:
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing text records to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// FieldStats summarises one field at the end of a step.
type FieldStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// StepEvent is one line of the step trace.
type StepEvent struct {
	RunID          string                `json:"run_id,omitempty"`
	Step           int                   `json:"step"`
	Stimulated     int                   `json:"stimulated"`
	Flips          int                   `json:"flips"`
	Differentiated int                   `json:"differentiated"`
	MeanVoltage    float64               `json:"mean_voltage"`
	Elapsed        time.Duration         `json:"elapsed_ns"`
	Fields         map[string]FieldStats `json:"fields,omitempty"`
}

type stepRecord struct {
	Time string `json:"time"`
	StepEvent
}

// StepTracer writes StepEvents to a JSONL file.
// It is safe for concurrent use. A nil StepTracer is safe to use;
// all methods are no-ops on nil receiver.
type StepTracer struct {
	mu      sync.Mutex
	file    *os.File
	verbose bool
}

// NewStepTracer creates a tracer writing to dir/steps.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewStepTracer(dir string, level string) *StepTracer {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, constants.StepTraceFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &StepTracer{file: f, verbose: lvl <= LevelTrace}
}

// Verbose reports whether callers should attach per-field statistics.
func (st *StepTracer) Verbose() bool {
	return st != nil && st.verbose
}

// Trace writes ev as a single JSONL line with a "time" field.
// Safe to call on nil receiver.
func (st *StepTracer) Trace(ev StepEvent) {
	if st == nil {
		return
	}

	data, err := json.Marshal(stepRecord{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		StepEvent: ev,
	})
	if err != nil {
		return
	}
	data = append(data, '\n')

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.file == nil {
		return
	}
	_, _ = st.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (st *StepTracer) Close() {
	if st == nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.file == nil {
		return
	}
	st.file.Close()
	st.file = nil
}
