// Package metrics accumulates token and cost counters onto State.Execution
// and exposes the reconciliation helper that restores Counter Consistency
// (execution.completed_count, failed_count, active_tasks) after a partial
// recovery. The recomputation logic itself lives on domain.State — this
// package only orchestrates when it runs, so there is one implementation of
// "derive counters from tasks," not two.
package metrics

import (
	"time"

	"github.com/taskforge/forge/internal/domain"
	"github.com/taskforge/forge/internal/errors"
)

// Usage is one token/cost observation to log against a task.
type Usage struct {
	TaskID       string
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
}

// LogTokens records a usage observation: it adds the token count and cost to
// the running totals in st.Execution and appends a "tokens_logged" audit
// event. Negative token counts or cost are rejected rather than silently
// clamped, since a negative delta would mean the running total could drift
// below zero.
func LogTokens(st *domain.State, u Usage, now time.Time) error {
	if u.InputTokens < 0 || u.OutputTokens < 0 {
		return errors.NewCodedError(errors.CategoryValidation, "NEGATIVE_TOKENS", errors.ErrInvalidField)
	}
	if u.CostUSD < 0 {
		return errors.NewCodedError(errors.CategoryValidation, "NEGATIVE_COST", errors.ErrInvalidField)
	}

	total := u.InputTokens + u.OutputTokens
	st.Execution.TotalTokens += total
	st.Execution.TotalCostUSD += u.CostUSD

	st.AppendEvent(now, "tokens_logged", u.TaskID, map[string]interface{}{
		"input_tokens":  u.InputTokens,
		"output_tokens": u.OutputTokens,
		"cost_usd":      u.CostUSD,
	})

	return nil
}

// Reconcile restores the Counter Consistency invariant by recomputing
// execution.completed_count, failed_count, and active_tasks from the
// current task set. Callers run this after any operation that can leave
// derived counters stale relative to task state — most notably checkpoint
// recovery, where orphaned/completed/failed tasks are discovered out of
// band from the normal lifecycle transitions.
func Reconcile(st *domain.State) {
	st.RecomputeCounters()
}
