package statestore

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/taskforge/forge/internal/clock"
	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/domain"
	"github.com/taskforge/forge/internal/errors"
)

// Store is the single-writer authoritative state document manager of
// spec.md §4.1: every read and write goes through an advisory lock
// sidecar, and every write lands via write-temp-then-rename so a reader
// never observes a partial document.
type Store struct {
	dir   string
	clock clock.Clock
}

// New returns a Store rooted at the given planning directory.
func New(dir string, c clock.Clock) *Store {
	if c == nil {
		c = clock.RealClock{}
	}
	return &Store{dir: dir, clock: c}
}

func (s *Store) statePath() string { return filepath.Join(s.dir, constants.StateFileName) }
func (s *Store) tempPath() string  { return filepath.Join(s.dir, constants.StateTempFileName) }

// Init creates a fresh state.json for targetDir if one does not already
// exist, returning errors.ErrStateWriteFailed wrapped if it does.
func (s *Store) Init(targetDir string) (*domain.State, error) {
	if _, err := os.Stat(s.statePath()); err == nil {
		return nil, errors.NewCodedError(errors.CategoryState, "ALREADY_EXISTS", errors.ErrStateWriteFailed)
	}

	if err := os.MkdirAll(s.dir, constants.DirPerm); err != nil {
		return nil, errors.Wrap(err, "create planning directory")
	}

	st := domain.NewState(targetDir, s.clock.Now())
	if err := s.Save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Load reads and unmarshals state.json under the same exclusive lock that
// Save takes, held only for the read; concurrent loads do not share it and
// run one at a time. It returns
// errors.ErrStateNotFound if the file does not exist, and
// errors.ErrStateCorrupt (wrapping the json error) if it cannot be parsed.
func (s *Store) Load() (*domain.State, error) {
	lock, err := acquireLock(s.dir, constants.StateLockFileName, constants.DefaultLockTimeout)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	data, err := os.ReadFile(s.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewCodedError(errors.CategoryState, "NOT_FOUND", errors.ErrStateNotFound)
		}
		return nil, errors.Wrap(err, "read state file")
	}

	var st domain.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.NewCodedError(errors.CategoryState, "CORRUPT", errors.Wrap(err, errors.ErrStateCorrupt.Error()))
	}
	return &st, nil
}

// Save recomputes st's derived counters, marshals it as canonical JSON
// (2-space indent, sorted map keys via encoding/json's default behavior),
// and writes it atomically: write to state.json.tmp, fsync, then rename
// over state.json. The whole sequence runs under the exclusive lock.
func (s *Store) Save(st *domain.State) error {
	lock, err := acquireLock(s.dir, constants.StateLockFileName, constants.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer lock.release()

	st.UpdatedAt = s.clock.Now().UTC()
	st.RecomputeCounters()

	return s.writeAtomic(st)
}

func (s *Store) writeAtomic(st *domain.State) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(st); err != nil {
		return errors.Wrap(err, "marshal state")
	}

	if err := os.MkdirAll(s.dir, constants.DirPerm); err != nil {
		return errors.Wrap(err, "create planning directory")
	}

	tmp, err := os.OpenFile(s.tempPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.FilePerm)
	if err != nil {
		return errors.NewCodedError(errors.CategoryState, "WRITE_FAILED", errors.Wrap(err, errors.ErrStateWriteFailed.Error()))
	}

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return errors.NewCodedError(errors.CategoryState, "WRITE_FAILED", errors.Wrap(err, errors.ErrStateWriteFailed.Error()))
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.NewCodedError(errors.CategoryState, "WRITE_FAILED", errors.Wrap(err, errors.ErrStateWriteFailed.Error()))
	}
	if err := tmp.Close(); err != nil {
		return errors.NewCodedError(errors.CategoryState, "WRITE_FAILED", errors.Wrap(err, errors.ErrStateWriteFailed.Error()))
	}

	if err := os.Rename(s.tempPath(), s.statePath()); err != nil {
		return errors.NewCodedError(errors.CategoryState, "WRITE_FAILED", errors.Wrap(err, errors.ErrStateWriteFailed.Error()))
	}
	return nil
}

// Exists reports whether a state.json is present under dir, without
// locking — used by commands that need to fail fast before Load.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, constants.StateFileName))
	return err == nil
}
