package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the pdfsplit home directory.
	DefaultDirName = ".pdfsplit"

	// StagingDirName is the subdirectory for downloaded remote sources.
	StagingDirName = "staging"

	// RunsDirName is the subdirectory for per-run scratch space.
	RunsDirName = "runs"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the pdfsplit home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.pdfsplit).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// StagingPath returns the directory where remote downloads are staged.
func (d *Dir) StagingPath() string {
	return filepath.Join(d.path, StagingDirName)
}

// RunsPath returns the root directory for per-run scratch space.
func (d *Dir) RunsPath() string {
	return filepath.Join(d.path, RunsDirName)
}

// RunPath returns the scratch directory for a single run.
func (d *Dir) RunPath(runID string) string {
	return filepath.Join(d.RunsPath(), runID)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.StagingPath(), d.RunsPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// EnsureRunDir creates the scratch directory for a run.
func (d *Dir) EnsureRunDir(runID string) error {
	return os.MkdirAll(d.RunPath(runID), 0o755)
}

// CleanupRunDir removes the scratch directory for a run.
func (d *Dir) CleanupRunDir(runID string) error {
	return os.RemoveAll(d.RunPath(runID))
}
