package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// LockFileName is the in-use marker inside every scratch directory.
const LockFileName = ".inuse.lock"

// Dir is a locked scratch directory.
type Dir struct {
	path string
	lock *flock.Flock
}

// Acquire creates <root>/<uuid> and locks it.
func Acquire(root string) (*Dir, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("staging: scratch root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	path := filepath.Join(root, uuid.NewString())
	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	lock := flock.New(filepath.Join(path, LockFileName))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		_ = os.RemoveAll(path)
		if err == nil {
			err = errors.New("lock held by another process")
		}
		return nil, fmt.Errorf("lock scratch dir: %w", err)
	}
	return &Dir{path: path, lock: lock}, nil
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// File returns a path inside the directory.
func (d *Dir) File(name string) string {
	return filepath.Join(d.path, filepath.Base(name))
}

// Release removes the directory and everything in it, then drops the lock.
func (d *Dir) Release() error {
	if d == nil {
		return nil
	}
	removeErr := os.RemoveAll(d.path)
	unlockErr := d.lock.Unlock()
	if removeErr != nil {
		return fmt.Errorf("remove scratch dir: %w", removeErr)
	}
	return unlockErr
}

// inUse reports whether another holder has the directory locked.
func inUse(dir string) (bool, error) {
	lockPath := filepath.Join(dir, LockFileName)
	if _, err := os.Stat(lockPath); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	probe := flock.New(lockPath)
	locked, err := probe.TryLock()
	if err != nil {
		return false, err
	}
	if locked {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}
