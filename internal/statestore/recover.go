package statestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/dag"
	"github.com/taskforge/forge/internal/domain"
	"github.com/taskforge/forge/internal/errors"
)

// Recover handles an unreadable or structurally invalid state.json per
// spec.md §4.1: it quarantines the bad bytes under
// state.json.corrupted.<timestamp>, then reconstructs a best-effort
// replacement — every top-level field that parses individually and holds a
// valid value survives; everything else falls back to a fresh default and
// is named in the state_recovered event's data_lost detail. Task
// definitions are re-merged from tasks/*.json for any ID the corrupt
// document no longer carries. Recover is idempotent: called against an
// already-healthy state.json, it returns nil without touching the file.
func (s *Store) Recover() error {
	lock, err := acquireLock(s.dir, constants.StateLockFileName, constants.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer lock.release()

	data, err := os.ReadFile(s.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewCodedError(errors.CategoryState, "NOT_FOUND", errors.ErrStateNotFound)
		}
		return errors.Wrap(err, "read state file")
	}

	var healthy domain.State
	if json.Unmarshal(data, &healthy) == nil && Validate(&healthy) == nil {
		return nil
	}

	quarantine := filepath.Join(s.dir, constants.StateCorruptedPrefix+s.clock.Now().UTC().Format("20060102T150405Z"))
	if err := os.WriteFile(quarantine, data, constants.FilePerm); err != nil {
		return errors.Wrap(err, "quarantine corrupt state file")
	}

	now := s.clock.Now().UTC()
	rebuilt, dataLost := rebuildState(s.dir, data, now)

	if merged, mergeErr := dag.Load(context.Background(), s.dir, rebuilt.Tasks); mergeErr == nil {
		rebuilt.Tasks = merged
	} else {
		dataLost = append(dataLost, "tasks: "+mergeErr.Error())
	}

	rebuilt.UpdatedAt = now
	rebuilt.RecomputeCounters()
	rebuilt.AppendEvent(now, "state_recovered", "", map[string]interface{}{
		"quarantine": filepath.Base(quarantine),
		"data_lost":  dataLost,
	})

	return s.writeAtomic(rebuilt)
}

// rebuildState parses raw as a generic field map and carries forward every
// top-level domain.State field that both unmarshals cleanly into its typed
// shape and holds a sane value, starting from a fresh domain.NewState
// skeleton (version "2.0", phase "ingestion", empty task set) as the
// fallback for anything that doesn't. It returns the reconstructed state
// and the list of field names it could not recover.
func rebuildState(dir string, raw []byte, now time.Time) (*domain.State, []string) {
	rebuilt := domain.NewState(dir, now)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return rebuilt, []string{"document: " + err.Error()}
	}

	var dataLost []string
	lose := func(name string) { dataLost = append(dataLost, name) }

	if v, ok := fields["version"]; ok {
		var version string
		if err := json.Unmarshal(v, &version); err == nil && version == constants.StateSchemaVersion {
			rebuilt.Version = version
		} else {
			lose("version")
		}
	}

	if v, ok := fields["target_dir"]; ok {
		var targetDir string
		if err := json.Unmarshal(v, &targetDir); err == nil && targetDir != "" {
			rebuilt.TargetDir = targetDir
		} else {
			lose("target_dir")
		}
	}

	if v, ok := fields["created_at"]; ok {
		var createdAt time.Time
		if err := json.Unmarshal(v, &createdAt); err == nil && !createdAt.IsZero() {
			rebuilt.CreatedAt = createdAt
		} else {
			lose("created_at")
		}
	}

	if v, ok := fields["phase"]; ok {
		var phase domain.PhaseState
		if err := json.Unmarshal(v, &phase); err == nil && constants.IsValidPhase(phase.Current) {
			rebuilt.Phase = phase
		} else {
			lose("phase")
		}
	}

	if v, ok := fields["artifacts"]; ok {
		var artifacts domain.Artifacts
		if err := json.Unmarshal(v, &artifacts); err == nil {
			rebuilt.Artifacts = artifacts
		} else {
			lose("artifacts")
		}
	}

	if v, ok := fields["halt"]; ok {
		var halt domain.HaltInfo
		if err := json.Unmarshal(v, &halt); err == nil {
			rebuilt.Halt = &halt
		} else {
			lose("halt")
		}
	}

	if v, ok := fields["events"]; ok {
		var events []domain.Event
		if err := json.Unmarshal(v, &events); err == nil {
			rebuilt.Events = events
		} else {
			lose("events")
		}
	}

	if v, ok := fields["tasks"]; ok {
		var rawTasks map[string]json.RawMessage
		if err := json.Unmarshal(v, &rawTasks); err != nil {
			lose("tasks")
		} else {
			tasks := make(map[string]*domain.Task, len(rawTasks))
			for id, rt := range rawTasks {
				var t domain.Task
				if err := json.Unmarshal(rt, &t); err == nil && t.ID == id {
					tasks[id] = &t
				} else {
					lose("tasks." + id)
				}
			}
			rebuilt.Tasks = tasks
		}
	}

	return rebuilt, dataLost
}

// LoadOrRecover loads and validates state, running Recover and reloading
// the reconstructed document whenever the file is unreadable or fails
// validation rather than handing a half-parsed or invalid document to the
// caller.
func (s *Store) LoadOrRecover() (*domain.State, error) {
	st, err := s.Load()
	if err == nil {
		if verr := Validate(st); verr == nil {
			return st, nil
		}
	}

	if recErr := s.Recover(); recErr != nil {
		return nil, recErr
	}
	return s.Load()
}
