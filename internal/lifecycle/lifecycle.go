// Package lifecycle implements the task lifecycle operations of spec.md
// §4.4: start, complete, fail, retry, and skip, plus verification recording
// and BLOCK propagation to successors.
//
// Each exported operation mutates a single domain.Task in place and stamps
// the surrounding domain.State's counters and event log: validate the
// transition against a declared table, record it, stamp timestamps, leave
// persistence to the caller. A task has only seven states and no
// append-only transition history field — state.json already carries an
// event log that serves the same audit purpose at the document level.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/domain"
	"github.com/taskforge/forge/internal/errors"
)

// validStarts is the set of statuses start_task may transition from.
//
//nolint:gochecknoglobals // read-only precondition set
var validStarts = map[constants.TaskStatus]bool{
	constants.TaskStatusPending: true,
	constants.TaskStatusReady:   true,
}

// validSkips is the set of statuses skip_task may transition from.
//
//nolint:gochecknoglobals // read-only precondition set
var validSkips = map[constants.TaskStatus]bool{
	constants.TaskStatusPending: true,
	constants.TaskStatusReady:   true,
	constants.TaskStatusBlocked: true,
}

func invalidTransition(id string, from constants.TaskStatus, op string) error {
	return fmt.Errorf("%w: task %s cannot %s from status %s", errors.ErrInvalidTransition, id, op, from)
}

// StartTask transitions task to running: requires status ∈ {pending,
// ready}, sets started_at=now, increments attempts, and appends the task ID
// to st.Execution.ActiveTasks. Emits a task_started event.
func StartTask(st *domain.State, id string, now time.Time) error {
	t, ok := st.Tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrTaskNotFound, id)
	}
	if !validStarts[t.Status] {
		return invalidTransition(id, t.Status, "start")
	}

	t.Status = constants.TaskStatusRunning
	t.StartedAt = &now
	t.Attempts++

	st.Execution.ActiveTasks = appendUnique(st.Execution.ActiveTasks, id)
	st.AppendEvent(now, "task_started", id, nil)
	return nil
}

// CompleteTask transitions task to complete: requires status=running, sets
// completed_at=now, records created/modified file lists, computes
// duration_seconds from started_at, removes the ID from active_tasks, and
// emits task_completed. st.Execution.CompletedCount is recomputed by the
// caller via statestore.Save → RecomputeCounters, not here, so a single
// source of truth derives it from task status rather than two places
// incrementing independently.
func CompleteTask(st *domain.State, id string, created, modified []string, now time.Time) error {
	t, ok := st.Tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrTaskNotFound, id)
	}
	if t.Status != constants.TaskStatusRunning {
		return invalidTransition(id, t.Status, "complete")
	}

	t.Status = constants.TaskStatusComplete
	t.CompletedAt = &now
	t.FilesCreated = created
	t.FilesModified = modified
	if t.StartedAt != nil {
		d := now.Sub(*t.StartedAt).Seconds()
		t.DurationSecs = &d
	}

	st.Execution.ActiveTasks = removeID(st.Execution.ActiveTasks, id)
	st.AppendEvent(now, "task_completed", id, nil)
	return nil
}

// FailTask transitions task to failed: requires status=running, attaches
// failure{category, retryable}, records the error message and duration,
// removes the ID from active_tasks, and emits task_failed.
func FailTask(st *domain.State, id, message string, category constants.FailureCategory, retryable bool, now time.Time) error {
	t, ok := st.Tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrTaskNotFound, id)
	}
	if t.Status != constants.TaskStatusRunning {
		return invalidTransition(id, t.Status, "fail")
	}

	t.Status = constants.TaskStatusFailed
	t.Error = message
	t.Failure = &domain.TaskFailure{Category: category, Retryable: retryable}
	if t.StartedAt != nil {
		d := now.Sub(*t.StartedAt).Seconds()
		t.DurationSecs = &d
	}

	st.Execution.ActiveTasks = removeID(st.Execution.ActiveTasks, id)
	st.AppendEvent(now, "task_failed", id, map[string]interface{}{"category": string(category), "retryable": retryable})
	return nil
}

// RetryTask transitions task back to pending: requires status=failed and
// failure.retryable=true. Clears timing, error, failure, files, and
// verification, but preserves attempts so the next StartTask continues
// counting from where the prior attempts left off. Emits task_retried.
func RetryTask(st *domain.State, id string, now time.Time) error {
	t, ok := st.Tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrTaskNotFound, id)
	}
	if t.Status != constants.TaskStatusFailed {
		return invalidTransition(id, t.Status, "retry")
	}
	if t.Failure == nil || !t.Failure.Retryable {
		return fmt.Errorf("%w: task %s failure is not retryable", errors.ErrNotRetryable, id)
	}

	t.Status = constants.TaskStatusPending
	t.StartedAt = nil
	t.CompletedAt = nil
	t.Error = ""
	t.Failure = nil
	t.FilesCreated = nil
	t.FilesModified = nil
	t.DurationSecs = nil
	t.Verification = nil

	st.AppendEvent(now, "task_retried", id, nil)
	return nil
}

// SkipTask transitions task to skipped: requires status ∈ {pending, ready,
// blocked}. Records reason in Error and emits task_skipped. Skipped tasks
// satisfy dependency readiness for their successors via
// constants.IsCountedComplete.
func SkipTask(st *domain.State, id, reason string, now time.Time) error {
	t, ok := st.Tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrTaskNotFound, id)
	}
	if !validSkips[t.Status] {
		return invalidTransition(id, t.Status, "skip")
	}

	t.Status = constants.TaskStatusSkipped
	t.Error = reason
	st.AppendEvent(now, "task_skipped", id, nil)
	return nil
}

// RecordVerification attaches the LLM judge's verdict to task. When
// recommendation is BLOCK, every successor listed in task.Blocks is
// transitively marked blocked (unless already terminal) with an
// explanatory error, per spec.md §4.4.
func RecordVerification(st *domain.State, id string, v domain.Verification, now time.Time) error {
	t, ok := st.Tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrTaskNotFound, id)
	}
	t.Verification = &v

	if v.Recommendation != constants.RecommendationBlock {
		return nil
	}

	queue := append([]string(nil), t.Blocks...)
	seen := map[string]bool{id: true}
	for len(queue) > 0 {
		blockedID := queue[0]
		queue = queue[1:]
		if seen[blockedID] {
			continue
		}
		seen[blockedID] = true
		blocked, ok := st.Tasks[blockedID]
		if !ok {
			continue
		}
		queue = append(queue, blocked.Blocks...)
		if constants.IsTerminalTaskStatus(blocked.Status) {
			continue
		}
		blocked.Status = constants.TaskStatusBlocked
		blocked.Error = fmt.Sprintf("blocked by verification BLOCK recommendation on %s", id)
		st.AppendEvent(now, "task_blocked", blockedID, map[string]interface{}{"blocked_by": id})
	}
	return nil
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
