// Package domain holds the State Document types of spec.md §3: the
// authoritative shape persisted to state.json and orchestrator-checkpoint.json.
//
// This package may only import internal/constants, internal/errors, and the
// standard library — it owns no business logic, only the wire shape and the
// small helpers (deep copy, zero-value constructors) that every other
// package builds on.
package domain

import (
	"sort"
	"time"

	"github.com/taskforge/forge/internal/constants"
)

// State is the single authoritative JSON document describing planning
// phase, task graph, execution status, per-task outcomes, halt control, and
// performance counters.
type State struct {
	Version   string    `json:"version"`
	TargetDir string    `json:"target_dir"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Phase     PhaseState        `json:"phase"`
	Artifacts Artifacts         `json:"artifacts"`
	Tasks     map[string]*Task  `json:"tasks"`
	Execution Execution         `json:"execution"`
	Halt      *HaltInfo         `json:"halt,omitempty"`
	Events    []Event           `json:"events"`
}

// PhaseState tracks the current pipeline phase and the ordered sequence of
// phases already completed.
type PhaseState struct {
	Current   constants.PhaseName   `json:"current"`
	Completed []constants.PhaseName `json:"completed"`
}

// ArtifactRef describes a single planning artifact on disk: its path, a
// checksum taken at validation time, and the outcome of that validation.
type ArtifactRef struct {
	Path        string     `json:"path"`
	Checksum    string     `json:"checksum,omitempty"`
	Valid       bool       `json:"valid"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
}

// SpecCoverage records the planning-gate coverage ratio check.
type SpecCoverage struct {
	Ratio     float64   `json:"ratio"`
	Passed    bool      `json:"passed"`
	Threshold float64   `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidationViolation is a single planning-gate finding against one task.
type ValidationViolation struct {
	TaskID         string  `json:"task_id"`
	Behavior       string  `json:"behavior,omitempty"`
	Evidence       string  `json:"evidence,omitempty"`
	MissingDep     string  `json:"missing_dep,omitempty"`
	CriterionIndex *int    `json:"criterion_index,omitempty"`
	Issue          string  `json:"issue,omitempty"`
}

// GateResult is a pass/fail outcome with an optional list of violations.
type GateResult struct {
	Passed     bool                  `json:"passed"`
	Violations []ValidationViolation `json:"violations,omitempty"`
}

// ValidationResults is the full planning-gate outcome recorded before the
// definition → validation phase transition.
type ValidationResults struct {
	SpecCoverage        SpecCoverage `json:"spec_coverage"`
	PhaseLeakage        GateResult   `json:"phase_leakage"`
	DependencyExistence GateResult   `json:"dependency_existence"`
	AcceptanceCriteria  GateResult   `json:"acceptance_criteria"`
	ValidatedAt         time.Time   `json:"validated_at"`
}

// TaskValidation is the LLM-judge verdict over the whole task set, gating
// the validation → sequencing phase transition.
type TaskValidation struct {
	Verdict     constants.TaskValidationVerdict `json:"verdict"`
	Valid       bool                            `json:"valid"`
	Summary     string                          `json:"summary,omitempty"`
	Issues      []string                        `json:"issues,omitempty"`
	ValidatedAt time.Time                       `json:"validated_at"`
	Error       string                          `json:"error,omitempty"`
}

// Artifacts groups the planning outputs tracked by the phase controller.
type Artifacts struct {
	CapabilityMap     *ArtifactRef        `json:"capability_map,omitempty"`
	PhysicalMap       *ArtifactRef        `json:"physical_map,omitempty"`
	DependencyGraph   *ArtifactRef        `json:"dependency_graph,omitempty"`
	BehaviorModel     *ArtifactRef        `json:"behavior_model,omitempty"`
	ValidationResults *ValidationResults  `json:"validation_results,omitempty"`
	TaskValidation    *TaskValidation     `json:"task_validation,omitempty"`
}

// Execution holds the performance counters derived from task status.
type Execution struct {
	CurrentPhase   int      `json:"current_phase"`
	ActiveTasks    []string `json:"active_tasks"`
	CompletedCount int      `json:"completed_count"`
	FailedCount    int      `json:"failed_count"`
	TotalTokens    int64    `json:"total_tokens"`
	TotalCostUSD   float64  `json:"total_cost_usd"`
}

// HaltInfo records a pending or confirmed cooperative halt request.
type HaltInfo struct {
	Requested   bool       `json:"requested"`
	Reason      string     `json:"reason,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	RequestedBy string     `json:"requested_by,omitempty"`
	HaltedAt    *time.Time `json:"halted_at,omitempty"`
	ActiveTask  string     `json:"active_task,omitempty"`
}

// Event is a single append-only audit record.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      string                 `json:"type"`
	TaskID    string                 `json:"task_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// NewState constructs the initial State document for a freshly-initialized
// planning directory (the `init` command).
func NewState(targetDir string, now time.Time) *State {
	return &State{
		Version:   constants.StateSchemaVersion,
		TargetDir: targetDir,
		CreatedAt: now,
		UpdatedAt: now,
		Phase: PhaseState{
			Current:   constants.PhaseIngestion,
			Completed: []constants.PhaseName{},
		},
		Artifacts: Artifacts{},
		Tasks:     make(map[string]*Task),
		Execution: Execution{
			ActiveTasks: []string{},
		},
		Events: []Event{},
	}
}

// AppendEvent appends an audit record with the given type, optional task ID,
// and detail map, stamped with now.
func (s *State) AppendEvent(now time.Time, eventType, taskID string, details map[string]interface{}) {
	s.Events = append(s.Events, Event{
		Timestamp: now,
		Type:      eventType,
		TaskID:    taskID,
		Details:   details,
	})
}

// RecomputeCounters recomputes execution.completed_count, failed_count, and
// active_tasks from the current task set, per the Counter Consistency
// invariant (spec.md §3, §8).
func (s *State) RecomputeCounters() {
	completed := 0
	failed := 0
	active := make([]string, 0, len(s.Tasks))

	for id, t := range s.Tasks {
		switch {
		case constants.IsCountedComplete(t.Status):
			completed++
		case t.Status == constants.TaskStatusFailed:
			failed++
		}
		if constants.IsActiveTaskStatus(t.Status) {
			active = append(active, id)
		}
	}

	sort.Strings(active)

	s.Execution.CompletedCount = completed
	s.Execution.FailedCount = failed
	s.Execution.ActiveTasks = active
}
