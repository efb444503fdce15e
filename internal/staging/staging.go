package staging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var ErrExists = errors.New("output file already exists")

// Manager writes output files atomically: content goes to a temp file under
// <baseDir>/.staging and is renamed into baseDir only after a clean close.
type Manager struct {
	baseDir     string
	stagingRoot string
}

func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = "."
	}
	return &Manager{
		baseDir:     baseDir,
		stagingRoot: filepath.Join(baseDir, ".staging"),
	}
}

func (m *Manager) FinalDir() string {
	return m.baseDir
}

func (m *Manager) StagingRoot() string {
	return m.stagingRoot
}

// FinalPath is where a committed file named name ends up.
func (m *Manager) FinalPath(name string) string {
	return filepath.Join(m.baseDir, name)
}

// Write streams write's output to a staged temp file, then renames it over
// FinalPath(name). On any error nothing is left at the final path.
func (m *Manager) Write(name string, write func(io.Writer) error) (string, error) {
	tmpPath, err := m.stage(name, write)
	if err != nil {
		return "", err
	}

	// Atomic rename
	destPath := m.FinalPath(name)
	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}

	return destPath, nil
}

// Create is Write for files that must be written only once. It fails with
// ErrExists, leaving the existing file untouched, when FinalPath(name) is
// already taken.
func (m *Manager) Create(name string, write func(io.Writer) error) (string, error) {
	tmpPath, err := m.stage(name, write)
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	// Link refuses an existing destination, unlike rename
	destPath := m.FinalPath(name)
	if err := os.Link(tmpPath, destPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, destPath)
		}
		return "", fmt.Errorf("linking temp file: %w", err)
	}

	return destPath, nil
}

// stage writes a complete temp file and returns its path.
func (m *Manager) stage(name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(m.stagingRoot, 0750); err != nil {
		return "", fmt.Errorf("creating directories: %w", err)
	}

	f, err := os.CreateTemp(m.stagingRoot, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := f.Name()

	err = write(f)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return tmpPath, nil
}

// Cleanup removes the staging directory and anything abandoned in it.
func (m *Manager) Cleanup() error {
	return os.RemoveAll(m.stagingRoot)
}
