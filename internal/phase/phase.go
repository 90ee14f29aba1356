// Package phase implements the pipeline phase controller of spec.md §4.2: a
// fixed-order state machine over constants.PhaseName, where each transition
// guards on a named precondition evaluated against the current domain.State.
//
// The precondition table is a single read-only map populated at init time,
// with derived lookups (here, just the terminal phase from
// constants.IsTerminalPhase) rather than re-deriving structure the
// constants package already owns.
package phase

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/dag"
	"github.com/taskforge/forge/internal/domain"
	"github.com/taskforge/forge/internal/errors"
)

// precondition checks whether st may transition out of its current phase
// given the planning directory dir (needed only by the ingestion check,
// which looks at a file rather than a State field), returning a descriptive
// error naming the unmet condition on failure.
type precondition func(dir string, st *domain.State) error

//nolint:gochecknoglobals // read-only precondition table populated once at init
var preconditions = map[constants.PhaseName]precondition{
	constants.PhaseIngestion:  checkSpecInputExists,
	constants.PhaseSpecReview: checkNoOp, // informational gate, recorded but not enforced
	constants.PhaseLogical:    withoutDir(checkArtifactValid(func(a domain.Artifacts) *domain.ArtifactRef { return a.CapabilityMap }, "capability_map")),
	constants.PhasePhysical:   withoutDir(checkArtifactValid(func(a domain.Artifacts) *domain.ArtifactRef { return a.PhysicalMap }, "physical_map")),
	constants.PhaseDefinition: withoutDir(checkPlanningGatesPass),
	constants.PhaseValidation: withoutDir(checkTaskValidationReady),
	constants.PhaseSequencing: withoutDir(checkDAGSequenceable),
	constants.PhaseReady:      checkNoOp, // ready → executing is implicit on first start-task
	constants.PhaseExecuting:  withoutDir(checkAllTasksDone),
}

func checkNoOp(string, *domain.State) error { return nil }

// withoutDir adapts a State-only precondition to the (dir, *State) shape so
// the table can hold a single function type.
func withoutDir(f func(*domain.State) error) precondition {
	return func(_ string, st *domain.State) error { return f(st) }
}

func checkSpecInputExists(dir string, _ *domain.State) error {
	path := filepath.Join(dir, constants.InputsDir, constants.SpecInputFile)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s does not exist", errors.ErrPreconditionNotMet, path)
	}
	return nil
}

func checkArtifactValid(get func(domain.Artifacts) *domain.ArtifactRef, name string) precondition {
	return func(st *domain.State) error {
		ref := get(st.Artifacts)
		if ref == nil || !ref.Valid {
			return fmt.Errorf("%w: artifacts.%s.valid is not true", errors.ErrPreconditionNotMet, name)
		}
		return nil
	}
}

func checkPlanningGatesPass(st *domain.State) error {
	vr := st.Artifacts.ValidationResults
	if vr == nil {
		return fmt.Errorf("%w: planning gates have not been evaluated", errors.ErrPreconditionNotMet)
	}
	switch {
	case !vr.SpecCoverage.Passed:
		return fmt.Errorf("%w: spec coverage %.2f below threshold %.2f", errors.ErrPreconditionNotMet, vr.SpecCoverage.Ratio, vr.SpecCoverage.Threshold)
	case !vr.PhaseLeakage.Passed:
		return fmt.Errorf("%w: phase leakage gate failed", errors.ErrPreconditionNotMet)
	case !vr.DependencyExistence.Passed:
		return fmt.Errorf("%w: dependency existence gate failed", errors.ErrPreconditionNotMet)
	case !vr.AcceptanceCriteria.Passed:
		return fmt.Errorf("%w: acceptance criteria gate failed", errors.ErrPreconditionNotMet)
	}
	return nil
}

func checkTaskValidationReady(st *domain.State) error {
	tv := st.Artifacts.TaskValidation
	if tv == nil {
		return fmt.Errorf("%w: task_validation has not been recorded", errors.ErrPreconditionNotMet)
	}
	if tv.Verdict != constants.TaskValidationReady && tv.Verdict != constants.TaskValidationReadyWithNotes {
		return fmt.Errorf("%w: task_validation.verdict is %s", errors.ErrPreconditionNotMet, tv.Verdict)
	}
	return nil
}

func checkDAGSequenceable(st *domain.State) error {
	if cycle := dag.Cycles(st.Tasks); len(cycle) > 0 {
		return fmt.Errorf("%w: %v", errors.ErrCycleDetected, cycle)
	}
	if violations := dag.CheckPhaseOrdering(st.Tasks); len(violations) > 0 {
		return fmt.Errorf("%w: %v", errors.ErrPhaseOrderingViolated, violations)
	}
	return nil
}

func checkAllTasksDone(st *domain.State) error {
	for id, t := range st.Tasks {
		if !constants.IsCountedComplete(t.Status) {
			return fmt.Errorf("%w: task %s is %s", errors.ErrPreconditionNotMet, id, t.Status)
		}
	}
	return nil
}

// Advance computes the phase following st.Phase.Current, checks its
// precondition against dir and st, and on success appends the previous
// phase to phase.completed, sets phase.current to the next phase. The
// caller is responsible for appending the phase_advanced event and saving —
// Advance only mutates the in-memory phase fields. On precondition failure
// st is left unmodified and the specific unmet condition is returned.
func Advance(dir string, st *domain.State) error {
	current := st.Phase.Current
	if constants.IsTerminalPhase(current) {
		return fmt.Errorf("%w: phase %s has no successor", errors.ErrPreconditionNotMet, current)
	}

	next, ok := constants.NextPhase(current)
	if !ok {
		return fmt.Errorf("%w: phase %s has no successor", errors.ErrPreconditionNotMet, current)
	}

	check, ok := preconditions[current]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownPhase, current)
	}
	if err := check(dir, st); err != nil {
		return err
	}

	st.Phase.Completed = append(st.Phase.Completed, current)
	st.Phase.Current = next
	return nil
}

// Summary is the derived status report of spec.md §4.2 "status()".
type Summary struct {
	CurrentPhase   constants.PhaseName
	CountsByStatus map[constants.TaskStatus]int
	ActiveTasks    []string
	FailedTasks    []string
	ReadyTasks     []string
	CompletedRatio float64
}

// Status computes the derived status summary over st: current phase, task
// counts by status, the active/failed/ready sets, and a completed/total
// ratio counting skipped tasks as completed.
func Status(st *domain.State) Summary {
	counts := make(map[constants.TaskStatus]int, len(constants.TaskStatusOrder))
	var active, failed []string

	for id, t := range st.Tasks {
		counts[t.Status]++
		if constants.IsActiveTaskStatus(t.Status) {
			active = append(active, id)
		}
		if t.Status == constants.TaskStatusFailed {
			failed = append(failed, id)
		}
	}

	var ratio float64
	if total := len(st.Tasks); total > 0 {
		ratio = float64(counts[constants.TaskStatusComplete]+counts[constants.TaskStatusSkipped]) / float64(total)
	}

	return Summary{
		CurrentPhase:   st.Phase.Current,
		CountsByStatus: counts,
		ActiveTasks:    active,
		FailedTasks:    failed,
		ReadyTasks:     dag.ReadySet(st.Tasks),
		CompletedRatio: ratio,
	}
}
