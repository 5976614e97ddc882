// Package lockfile provides cross-process advisory locking for a data
// directory, so that at most one indexer holds write access at a time.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock guards a data directory with an exclusive advisory lock backed
// by gofrs/flock, which works uniformly across Unix and Windows.
type Lock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New returns a lock for "<dataDir>/nexus.lock". The file is created
// on first acquisition if it doesn't already exist.
func New(dataDir string) *Lock {
	path := filepath.Join(dataDir, "nexus.lock")
	return &Lock{path: path, flock: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking. It returns
// false, not an error, when another process already holds it.
func (l *Lock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("lockfile: create directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("lockfile: acquire: %w", err)
	}
	l.locked = acquired
	return acquired, nil
}

// Lock blocks until the lock can be acquired.
func (l *Lock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("lockfile: create directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("lockfile: acquire: %w", err)
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call multiple times.
func (l *Lock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("lockfile: release: %w", err)
	}
	l.locked = false
	return nil
}

// Path returns the underlying lock file path.
func (l *Lock) Path() string {
	return l.path
}

// IsLocked reports whether this handle currently holds the lock.
func (l *Lock) IsLocked() bool {
	return l.locked
}
