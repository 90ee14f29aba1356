// Package cli provides the command-line interface for forge.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskforge/forge/internal/checkpoint"
	"github.com/taskforge/forge/internal/constants"
	forgeerrors "github.com/taskforge/forge/internal/errors"
)

// AddCheckpointCommand adds the checkpoint command and its subcommands
// (create|update|complete|status|recover|clear) to the root command.
func AddCheckpointCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage the in-flight parallel-execution batch checkpoint",
		Long: `checkpoint records which tasks were dispatched together as a batch,
so a crash mid-batch can be reconciled against bundles/<id>-result.json on
restart rather than silently losing track of in-flight work.`,
	}

	cmd.AddCommand(
		newCheckpointCreateCmd(flags),
		newCheckpointUpdateCmd(flags),
		newCheckpointCompleteCmd(flags),
		newCheckpointStatusCmd(flags),
		newCheckpointRecoverCmd(flags),
		newCheckpointClearCmd(flags),
	)

	root.AddCommand(cmd)
}

func newCheckpointCreateCmd(flags *GlobalFlags) *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a new in-flight batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			cp, err := checkpoint.NewManager(dir).Create(ids, now())
			if err != nil {
				return printErr(out, err)
			}

			out.Success(fmt.Sprintf("checkpoint %s created for %d task(s)", cp.BatchID, len(ids)))
			return out.JSON(cp)
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	cmd.Flags().StringSliceVar(&ids, "task", nil, "task ID dispatched as part of this batch (repeatable)")
	return cmd
}

func newCheckpointUpdateCmd(flags *GlobalFlags) *cobra.Command {
	var taskID, outcome string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Move one task from pending to completed or failed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			mgr := checkpoint.NewManager(dir)
			if _, err := mgr.Load(); err != nil {
				return printErr(out, err)
			}

			cp, err := mgr.Update(taskID, outcome, now())
			if err != nil {
				return printErr(out, err)
			}

			out.Success(fmt.Sprintf("%s marked %s", taskID, outcome))
			return out.JSON(cp)
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	cmd.Flags().StringVar(&taskID, "task", "", "task ID to update")
	cmd.Flags().StringVar(&outcome, "outcome", "", "outcome: success|failed")
	return cmd
}

func newCheckpointCompleteCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Mark the in-flight batch complete",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			mgr := checkpoint.NewManager(dir)
			if _, err := mgr.Load(); err != nil {
				return printErr(out, err)
			}

			cp, err := mgr.Complete(now())
			if err != nil {
				return printErr(out, err)
			}

			out.Success(fmt.Sprintf("checkpoint %s complete", cp.BatchID))
			return out.JSON(cp)
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	return cmd
}

func newCheckpointStatusCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the in-flight batch, if any",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			mgr := checkpoint.NewManager(dir)
			if !mgr.Exists() {
				out.Info("no checkpoint in flight")
				return out.JSON(nil)
			}

			cp, err := mgr.Load()
			if err != nil {
				return printErr(out, err)
			}

			out.Info(fmt.Sprintf("batch %s: %s (%d pending, %d complete, %d failed)",
				cp.BatchID, cp.Status, len(cp.Tasks.Pending), len(cp.Tasks.Completed), len(cp.Tasks.Failed)))
			return out.JSON(cp)
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	return cmd
}

func newCheckpointRecoverCmd(flags *GlobalFlags) *cobra.Command {
	var running []string

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Reconcile pending tasks against bundles/<id>-result.json",
		Long: `recover checks each pending task's result file: a present result
moves it to completed or failed. A still-running task with no result file
is reported as orphaned, left for the caller to retry or skip rather than
resolved automatically.

The running set is read from state.json's task statuses (any task whose
status is "running" is a candidate orphan) since a real crash leaves no
live process that could supply this reliably itself. --running adds
extra IDs to that set, for a caller that observed work state.json does
not yet reflect.

recover exits with status 2 if any task is reported orphaned, so a driving
script can distinguish "clean recovery" from "needs operator attention".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			_, st, err := openStore(dir)
			if err != nil {
				return printErr(out, err)
			}

			runningSet := make(map[string]bool, len(st.Tasks)+len(running))
			for id, t := range st.Tasks {
				if t.Status == constants.TaskStatusRunning {
					runningSet[id] = true
				}
			}
			for _, id := range running {
				runningSet[id] = true
			}

			mgr := checkpoint.NewManager(dir)
			if _, err := mgr.Load(); err != nil {
				return printErr(out, err)
			}

			changes, err := mgr.Recover(runningSet, now())
			if err != nil {
				return printErr(out, err)
			}

			var orphaned []string
			for _, c := range changes {
				if c.Orphaned {
					orphaned = append(orphaned, c.TaskID)
				}
			}

			out.Info(fmt.Sprintf("reconciled %d task(s), %d orphaned", len(changes), len(orphaned)))
			if err := out.JSON(changes); err != nil {
				return err
			}

			if len(orphaned) > 0 {
				return forgeerrors.NewExitCode2Error(fmt.Errorf("orphaned tasks: %s", strings.Join(orphaned, ", ")))
			}
			return nil
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	cmd.Flags().StringSliceVar(&running, "running", nil, "extra task ID to treat as running, beyond what state.json reports (repeatable)")
	return cmd
}

func newCheckpointClearCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard the in-flight checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			if err := checkpoint.NewManager(dir).Clear(); err != nil {
				return printErr(out, err)
			}

			out.Success("checkpoint cleared")
			return nil
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	return cmd
}
