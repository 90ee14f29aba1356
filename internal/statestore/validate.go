package statestore

import (
	"fmt"

	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/domain"
	"github.com/taskforge/forge/internal/errors"
)

// Validate checks a loaded State document against the structural invariants
// of spec.md §3/§8: a known schema version, a known current phase, a
// completed-phases prefix of PhaseOrder, and well-formed task IDs with no
// dangling dependency references. It returns the first violation found,
// wrapped as a schema-category CodedError.
func Validate(st *domain.State) error {
	if st.Version != constants.StateSchemaVersion {
		return errors.NewCodedError(errors.CategorySchema, "VERSION_MISMATCH",
			fmt.Errorf("state schema version %q, want %q", st.Version, constants.StateSchemaVersion))
	}

	if st.TargetDir == "" {
		return errors.NewCodedError(errors.CategorySchema, "MISSING_FIELD",
			fmt.Errorf("target_dir: %w", errors.ErrInvalidField))
	}

	if st.CreatedAt.IsZero() {
		return errors.NewCodedError(errors.CategorySchema, "MISSING_FIELD",
			fmt.Errorf("created_at: %w", errors.ErrInvalidField))
	}

	if !constants.IsValidPhase(st.Phase.Current) {
		return errors.NewCodedError(errors.CategorySchema, "UNKNOWN_PHASE",
			fmt.Errorf("%w: %q", errors.ErrUnknownPhase, st.Phase.Current))
	}

	if err := validateCompletedPrefix(st.Phase.Completed, st.Phase.Current); err != nil {
		return errors.NewCodedError(errors.CategorySchema, "PHASE_SEQUENCE", err)
	}

	if err := validateTasks(st); err != nil {
		return errors.NewCodedError(errors.CategorySchema, "TASK_GRAPH", err)
	}

	return nil
}

// validateCompletedPrefix checks that completed is exactly the prefix of
// PhaseOrder preceding current — never out of order, never skipping ahead.
func validateCompletedPrefix(completed []constants.PhaseName, current constants.PhaseName) error {
	currentIdx := constants.PhaseIndex(current)
	if currentIdx < 0 {
		return fmt.Errorf("%w: %q", errors.ErrUnknownPhase, current)
	}

	if len(completed) > currentIdx {
		return fmt.Errorf("completed phases %v exceed current phase %q", completed, current)
	}

	for i, p := range completed {
		if p != constants.PhaseOrder[i] {
			return fmt.Errorf("completed[%d] = %q, want %q", i, p, constants.PhaseOrder[i])
		}
	}
	return nil
}

// validateTasks checks that every task's ID matches its map key and that
// every depends_on/blocks reference resolves to a task present in the set.
func validateTasks(st *domain.State) error {
	for id, t := range st.Tasks {
		if t.ID != id {
			return fmt.Errorf("task map key %q does not match task.id %q", id, t.ID)
		}
		if !constants.IsValidTaskStatus(t.Status) {
			return fmt.Errorf("task %q: %w: %q", id, errors.ErrInvalidField, t.Status)
		}
		for _, dep := range t.DependsOn {
			if _, ok := st.Tasks[dep]; !ok {
				return fmt.Errorf("task %q depends on missing task %q: %w", id, dep, errors.ErrTaskNotFound)
			}
		}
		for _, blocked := range t.Blocks {
			if _, ok := st.Tasks[blocked]; !ok {
				return fmt.Errorf("task %q blocks missing task %q: %w", id, blocked, errors.ErrTaskNotFound)
			}
		}
	}
	return nil
}
