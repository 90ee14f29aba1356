// Package statestore implements the authoritative state store and lock
// manager of spec.md §4.1: Load, Save, Validate, and Recover over the
// state.json document, guarded by an advisory filesystem lock sidecar.
package statestore

import (
	"os"
	"path/filepath"
	"time"

	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/errors"
	"github.com/taskforge/forge/internal/flock"
)

// lockHandle holds an open lock sidecar file descriptor for later release.
type lockHandle struct {
	f *os.File
}

// acquireLock opens (creating if needed) the lock sidecar at dir/name and
// spins acquiring an exclusive advisory lock until timeout elapses, polling
// every constants.LockPollInterval. It takes any sidecar name; its callers
// are the state store's Load, Save and Recover.
//
// There is no shared mode: Load and Save both take this exclusive lock.
// Load holds it only around the read, Save across the full
// write-temp-then-rename sequence.
func acquireLock(dir, name string, timeout time.Duration) (*lockHandle, error) {
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, constants.FilePerm) //nolint:gosec // path is sidecar under caller-controlled planning dir
	if err != nil {
		return nil, errors.Wrapf(err, "open lock file %s", path)
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := flock.Exclusive(f.Fd()); err == nil {
			return &lockHandle{f: f}, nil
		}

		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, errors.NewCodedError(errors.CategoryState, "LOCKED", errors.ErrLockTimeout)
		}
		time.Sleep(constants.LockPollInterval)
	}
}

// release unlocks and closes the lock sidecar.
func (h *lockHandle) release() {
	if h == nil || h.f == nil {
		return
	}
	_ = flock.Unlock(h.f.Fd())
	_ = h.f.Close()
}
