package artifact

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = ".run.lock"

// ErrLocked reports that another pipeline run holds the store.
var ErrLocked = errors.New("artifact store is locked by another run")

// Lock acquires the store's advisory run lock without blocking. The returned
// function releases it.
func (s *Store) Lock() (func() error, error) {
	lock := flock.New(filepath.Join(s.root, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire artifact lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, lock.Path())
	}
	return lock.Unlock, nil
}
