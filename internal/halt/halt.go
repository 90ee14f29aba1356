// Package halt implements cooperative halt/resume of spec.md §4.6: a
// polled STOP sentinel file plus a persisted state.halt flag, checked by
// the scheduler before each batch and between tasks.
//
// Cooperative cancellation through polling, re-targeted at a polled
// sentinel file and a State field instead of a signal channel, since
// spec.md §5/§6 requires halt to be observable across process restarts —
// an OS signal delivered to a dead process is not.
package halt

import (
	"os"
	"path/filepath"
	"time"

	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/domain"
)

func stopPath(dir string) string { return filepath.Join(dir, constants.StopFileName) }

// StopFilePresent reports whether the STOP sentinel file exists under dir.
func StopFilePresent(dir string) bool {
	_, err := os.Stat(stopPath(dir))
	return err == nil
}

// Halt records an explicit halt request on st: sets halt.requested=true
// with reason/who metadata and emits halt_requested. It does not touch the
// STOP file — that trigger is independent and polled separately.
func Halt(st *domain.State, reason, who string, now time.Time) {
	st.Halt = &domain.HaltInfo{
		Requested:   true,
		Reason:      reason,
		RequestedAt: now,
		RequestedBy: who,
	}
	st.AppendEvent(now, "halt_requested", "", map[string]interface{}{"reason": reason, "requested_by": who})
}

// CheckHalt reports whether a halt is pending, from either trigger: the
// STOP file on disk, or state.halt.requested already set.
func CheckHalt(dir string, st *domain.State) bool {
	if StopFilePresent(dir) {
		return true
	}
	return st.Halt != nil && st.Halt.Requested
}

// ConfirmHalt records that the scheduler has observed a pending halt and
// stopped spawning new work: stamps halted_at and the first still-running
// task ID (if any), for operator visibility into what was in flight.
func ConfirmHalt(st *domain.State, activeTask string, now time.Time) {
	if st.Halt == nil {
		st.Halt = &domain.HaltInfo{Requested: true, RequestedAt: now}
	}
	st.Halt.HaltedAt = &now
	st.Halt.ActiveTask = activeTask
	st.AppendEvent(now, "halt_confirmed", "", map[string]interface{}{"active_task": activeTask})
}

// HaltStatus reports the current halt state for the `halt-status` command.
func HaltStatus(st *domain.State) *domain.HaltInfo {
	return st.Halt
}

// Resume removes the STOP file (if present), clears halt.requested, and
// emits execution_resumed.
func Resume(dir string, st *domain.State, now time.Time) error {
	if StopFilePresent(dir) {
		if err := os.Remove(stopPath(dir)); err != nil {
			return err
		}
	}
	st.Halt = nil
	st.AppendEvent(now, "execution_resumed", "", nil)
	return nil
}
