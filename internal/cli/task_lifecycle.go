// Package cli provides the command-line interface for forge.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/domain"
	"github.com/taskforge/forge/internal/lifecycle"
)

// AddStartTaskCommand adds the start-task command to the root command.
func AddStartTaskCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "start-task <task-id>",
		Short: "Transition a ready task to running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd, flags, args[0], func(st *taskOp) error {
				return lifecycle.StartTask(st.state, st.id, now())
			})
		},
		SilenceUsage: true,
	}
	addDirFlag(cmd)
	root.AddCommand(cmd)
}

// AddCompleteTaskCommand adds the complete-task command to the root command.
func AddCompleteTaskCommand(root *cobra.Command, flags *GlobalFlags) {
	var created, modified []string

	cmd := &cobra.Command{
		Use:   "complete-task <task-id>",
		Short: "Transition a running task to complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd, flags, args[0], func(st *taskOp) error {
				return lifecycle.CompleteTask(st.state, st.id, created, modified, now())
			})
		},
		SilenceUsage: true,
	}
	addDirFlag(cmd)
	cmd.Flags().StringSliceVar(&created, "created", nil, "files created by the task")
	cmd.Flags().StringSliceVar(&modified, "modified", nil, "files modified by the task")
	root.AddCommand(cmd)
}

// AddFailTaskCommand adds the fail-task command to the root command.
func AddFailTaskCommand(root *cobra.Command, flags *GlobalFlags) {
	var message, category string
	var retryable bool

	cmd := &cobra.Command{
		Use:   "fail-task <task-id>",
		Short: "Transition a running task to failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd, flags, args[0], func(st *taskOp) error {
				return lifecycle.FailTask(st.state, st.id, message, constants.FailureCategory(category), retryable, now())
			})
		},
		SilenceUsage: true,
	}
	addDirFlag(cmd)
	cmd.Flags().StringVar(&message, "message", "", "failure message")
	cmd.Flags().StringVar(&category, "category", string(constants.FailureCategoryUnknown), "failure category (transient|logic|dependency|environment|unknown)")
	cmd.Flags().BoolVar(&retryable, "retryable", false, "whether the task can be retried")
	root.AddCommand(cmd)
}

// AddRetryTaskCommand adds the retry-task command to the root command.
func AddRetryTaskCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "retry-task <task-id>",
		Short: "Transition a retryable failed task back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd, flags, args[0], func(st *taskOp) error {
				return lifecycle.RetryTask(st.state, st.id, now())
			})
		},
		SilenceUsage: true,
	}
	addDirFlag(cmd)
	root.AddCommand(cmd)
}

// AddSkipTaskCommand adds the skip-task command to the root command.
func AddSkipTaskCommand(root *cobra.Command, flags *GlobalFlags) {
	var reason string

	cmd := &cobra.Command{
		Use:   "skip-task <task-id>",
		Short: "Mark a pending or blocked task skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd, flags, args[0], func(st *taskOp) error {
				return lifecycle.SkipTask(st.state, st.id, reason, now())
			})
		},
		SilenceUsage: true,
	}
	addDirFlag(cmd)
	cmd.Flags().StringVar(&reason, "reason", "", "reason the task is being skipped")
	root.AddCommand(cmd)
}

// taskOp bundles the state document a lifecycle mutation runs against with
// the task ID it targets, so the shared withTask helper can report both.
type taskOp struct {
	state *domain.State
	id    string
}

// withTask opens the store, runs mutate against the loaded state, saves on
// success, and reports the task's new status either way mutate errors.
func withTask(cmd *cobra.Command, flags *GlobalFlags, id string, mutate func(*taskOp) error) error {
	out := outputFor(cmd, flags)
	dir, _ := cmd.Flags().GetString(dirFlagName)

	store, st, err := openStore(dir)
	if err != nil {
		return printErr(out, err)
	}

	if err := mutate(&taskOp{state: st, id: id}); err != nil {
		return printErr(out, err)
	}

	if err := store.Save(st); err != nil {
		return printErr(out, err)
	}

	task := st.Tasks[id]
	out.Success(fmt.Sprintf("%s is now %s", id, task.Status))
	return out.JSON(task)
}
