package domain

import (
	"time"

	"github.com/taskforge/forge/internal/constants"
)

// TaskFailure records the category and retryability of a failed task.
type TaskFailure struct {
	Category  constants.FailureCategory `json:"category"`
	Retryable bool                      `json:"retryable"`
}

// VerificationCriterion is a single named check the judge scored.
type VerificationCriterion struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Evidence string  `json:"evidence,omitempty"`
}

// VerificationQuality holds secondary quality signals the judge may report.
type VerificationQuality struct {
	Types    float64 `json:"types,omitempty"`
	Docs     float64 `json:"docs,omitempty"`
	Patterns float64 `json:"patterns,omitempty"`
	Errors   float64 `json:"errors,omitempty"`
}

// VerificationTests holds test-coverage signals the judge may report.
type VerificationTests struct {
	Coverage   float64 `json:"coverage,omitempty"`
	Assertions int     `json:"assertions,omitempty"`
	EdgeCases  int     `json:"edge_cases,omitempty"`
}

// Verification is the LLM judge's recorded assessment of one task's output.
type Verification struct {
	Verdict        constants.VerificationVerdict        `json:"verdict"`
	Recommendation constants.VerificationRecommendation `json:"recommendation"`
	Criteria       []VerificationCriterion               `json:"criteria,omitempty"`
	Quality        *VerificationQuality                  `json:"quality,omitempty"`
	Tests          *VerificationTests                    `json:"tests,omitempty"`
	VerifiedAt     time.Time                              `json:"verified_at"`
}

// Task is a unit of work with an ID, dependencies, and a lifecycle
// (spec.md §3).
type Task struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Status        constants.TaskStatus `json:"status"`
	Phase         int                `json:"phase"`
	DependsOn     []string           `json:"depends_on"`
	Blocks        []string           `json:"blocks"`
	File          string             `json:"file"`
	StartedAt     *time.Time         `json:"started_at,omitempty"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	Error         string             `json:"error,omitempty"`
	Failure       *TaskFailure       `json:"failure,omitempty"`
	FilesCreated  []string           `json:"files_created,omitempty"`
	FilesModified []string           `json:"files_modified,omitempty"`
	Attempts      int                `json:"attempts"`
	DurationSecs  *float64           `json:"duration_seconds,omitempty"`
	Verification  *Verification      `json:"verification,omitempty"`
}

// TaskDefinition is the subset of fields a per-file task definition must
// supply (spec.md §6 "Task-file format"); additional fields are preserved
// on disk but unused by the core.
type TaskDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Phase       int      `json:"phase"`
	DependsOn   []string `json:"depends_on"`
	Blocks      []string `json:"blocks"`
	Description string   `json:"description,omitempty"`
}

// NewTaskFromDefinition materializes a Task from a loaded per-file
// definition with initial status pending and the source file name recorded
// (spec.md §4.3).
func NewTaskFromDefinition(def TaskDefinition, sourceFile string) *Task {
	return &Task{
		ID:        def.ID,
		Name:      def.Name,
		Status:    constants.TaskStatusPending,
		Phase:     def.Phase,
		DependsOn: append([]string(nil), def.DependsOn...),
		Blocks:    append([]string(nil), def.Blocks...),
		File:      sourceFile,
		Attempts:  0,
	}
}

// WorkerResultFiles is the files{created,modified} sub-object of a
// worker-result document (spec.md §6).
type WorkerResultFiles struct {
	Created  []string `json:"created"`
	Modified []string `json:"modified"`
}

// WorkerResultError is the error{category,message,retryable} sub-object of a
// worker-result document.
type WorkerResultError struct {
	Category  constants.FailureCategory `json:"category"`
	Message   string                    `json:"message"`
	Retryable bool                      `json:"retryable"`
}

// WorkerResult is the worker-result document format consumed by checkpoint
// recovery (spec.md §6): bundles/<task>-result.json.
type WorkerResult struct {
	Version      string             `json:"version"`
	TaskID       string             `json:"task_id"`
	Status       string             `json:"status"` // "success" | "failed"
	StartedAt    time.Time          `json:"started_at"`
	CompletedAt  time.Time          `json:"completed_at"`
	Files        WorkerResultFiles  `json:"files"`
	Verification *Verification      `json:"verification,omitempty"`
	Error        *WorkerResultError `json:"error,omitempty"`
}
