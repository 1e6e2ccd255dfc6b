// Package instance keeps two processes from indexing into the same database.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("instance: another process holds the lock")

// Lock is an exclusive, non-blocking advisory file lock.
type Lock struct {
	flock *flock.Flock
	path  string
}

// Acquire takes the lock at path, creating parent directories. It fails with
// ErrLocked instead of waiting when the lock is held elsewhere.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("instance: create lock dir: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("instance: lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return &Lock{flock: fl, path: path}, nil
}

// PathFor is the lock file guarding the database at dbPath.
func PathFor(dbPath string) string {
	return dbPath + ".lock"
}

func (l *Lock) Path() string { return l.path }

// Release unlocks. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("instance: unlock %s: %w", l.path, err)
	}
	return nil
}
