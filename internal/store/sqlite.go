package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/biolattice/internal/lattice"

	_ "modernc.org/sqlite" // SQLite driver
)

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists runs and their frames in a SQLite database.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// OpenSQLite opens (creating if needed) the database at path. The parent
// directory is created when missing.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Validate runs the SQLite integrity and foreign key checks.
func (s *SQLiteStore) Validate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ValidateIntegrity(ctx, s.db)
}

// CreateRun inserts a run and returns its generated ID. run.ID and
// run.CreatedAt are filled in when empty.
func (s *SQLiteStore) CreateRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, grid_x, grid_y, grid_z, seed, spin_model, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(timeLayout),
		run.Shape.X, run.Shape.Y, run.Shape.Z,
		int64(run.Seed), run.SpinModel, run.Config)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return run.ID, nil
}

const runColumns = `r.id, r.created_at, r.grid_x, r.grid_y, r.grid_z, r.seed, r.spin_model, COALESCE(r.config, ''),
	(SELECT COUNT(*) FROM frames f WHERE f.run_id = r.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run       Run
		createdAt string
		seed      int64
	)
	if err := row.Scan(&run.ID, &createdAt, &run.Shape.X, &run.Shape.Y, &run.Shape.Z,
		&seed, &run.SpinModel, &run.Config, &run.Frames); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parsing created_at for run %s: %w", run.ID, err)
	}
	run.CreatedAt = t
	run.Seed = uint64(seed)
	return run, nil
}

// GetRun returns the run with the given ID, or ErrNotFound.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns every run, oldest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs r ORDER BY r.created_at, r.rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and all of its frames.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// AppendFrame stores snap under runID. The snapshot shape must match the
// run's grid.
func (s *SQLiteStore) AppendFrame(ctx context.Context, runID string, snap lattice.Snapshot) error {
	if err := snap.Fields.Check(snap.Shape); err != nil {
		return err
	}

	voltage, err := encodeFloats(snap.Voltage)
	if err != nil {
		return err
	}
	phase, err := encodeFloats(snap.Phase)
	if err != nil {
		return err
	}
	spin, err := encodeBytes(snap.Spin)
	if err != nil {
		return err
	}
	state, err := encodeBytes(snap.State)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var shape lattice.Shape
	var last sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT r.grid_x, r.grid_y, r.grid_z, (SELECT MAX(step) FROM frames f WHERE f.run_id = r.id)
		FROM runs r WHERE r.id = ?`, runID).Scan(&shape.X, &shape.Y, &shape.Z, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read run: %w", err)
	}
	if snap.Shape != shape {
		return fmt.Errorf("%w: got %s, run %s is %s", ErrShapeMismatch, snap.Shape, runID, shape)
	}
	if last.Valid && int64(snap.Step) <= last.Int64 {
		return fmt.Errorf("%w: step %d after step %d", ErrOutOfOrder, snap.Step, last.Int64)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO frames (run_id, step, voltage, phase, spin, state)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, snap.Step, voltage, phase, spin, state); err != nil {
		return fmt.Errorf("failed to insert frame: %w", err)
	}

	return tx.Commit()
}

// LoadFrames returns every frame of runID in step order.
func (s *SQLiteStore) LoadFrames(ctx context.Context, runID string) ([]lattice.Snapshot, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	n := run.Shape.Len()

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT step, voltage, phase, spin, state FROM frames
		WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var frames []lattice.Snapshot
	for rows.Next() {
		var (
			step                        int
			voltage, phase, spin, state []byte
		)
		if err := rows.Scan(&step, &voltage, &phase, &spin, &state); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}

		snap := lattice.Snapshot{Step: step, Shape: run.Shape}
		if snap.Voltage, err = decodeFloats(voltage, n); err != nil {
			return nil, fmt.Errorf("frame %d voltage: %w", step, err)
		}
		if snap.Phase, err = decodeFloats(phase, n); err != nil {
			return nil, fmt.Errorf("frame %d phase: %w", step, err)
		}
		if snap.Spin, err = decodeBytes(spin, n); err != nil {
			return nil, fmt.Errorf("frame %d spin: %w", step, err)
		}
		if snap.State, err = decodeBytes(state, n); err != nil {
			return nil, fmt.Errorf("frame %d state: %w", step, err)
		}
		frames = append(frames, snap)
	}
	return frames, rows.Err()
}

// Recorder returns a Recorder appending to runID.
func (s *SQLiteStore) Recorder(ctx context.Context, runID string) (*RunRecorder, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &RunRecorder{store: s, runID: runID, n: run.Frames}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// RunRecorder implements Recorder on top of one SQLiteStore run.
type RunRecorder struct {
	store *SQLiteStore
	runID string

	mu sync.Mutex
	n  int
}

// RunID returns the run this recorder appends to.
func (r *RunRecorder) RunID() string {
	return r.runID
}

// Append persists snap as the next frame of the run.
func (r *RunRecorder) Append(ctx context.Context, snap lattice.Snapshot) error {
	if err := r.store.AppendFrame(ctx, r.runID, snap); err != nil {
		return err
	}
	r.mu.Lock()
	r.n++
	r.mu.Unlock()
	return nil
}

// Frames loads every frame of the run.
func (r *RunRecorder) Frames(ctx context.Context) ([]lattice.Snapshot, error) {
	return r.store.LoadFrames(ctx, r.runID)
}

// Len returns the number of frames recorded for the run.
func (r *RunRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}
