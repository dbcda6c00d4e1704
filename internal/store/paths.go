package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DatabaseFile is the file name of the default run database.
const DatabaseFile = "runs.db"

// GlobalDir returns the per-user biolattice directory.
// On Unix: ~/.biolattice
// On Windows: %USERPROFILE%\.biolattice
func GlobalDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".biolattice"), nil
}

// DefaultDatabasePath returns the database used when no path is given:
// $BIOLATTICE_DATABASE when set, otherwise runs.db in GlobalDir.
func DefaultDatabasePath() (string, error) {
	if v := os.Getenv("BIOLATTICE_DATABASE"); v != "" {
		return v, nil
	}
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DatabaseFile), nil
}

// ResolveDatabasePath returns path, or DefaultDatabasePath when path is
// empty.
func ResolveDatabasePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultDatabasePath()
}
