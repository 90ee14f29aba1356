// Package cli provides the command-line interface for forge.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskforge/forge/internal/halt"
)

// AddHaltCommand adds the halt command to the root command.
func AddHaltCommand(root *cobra.Command, flags *GlobalFlags) {
	var reason, who string

	cmd := &cobra.Command{
		Use:   "halt",
		Short: "Request a cooperative halt of execution",
		Long: `halt records an explicit halt request on the state document: the
scheduler observes it before spawning the next batch and stops cleanly
instead of mid-task.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			store, st, err := openStore(dir)
			if err != nil {
				return printErr(out, err)
			}

			halt.Halt(st, reason, who, now())

			if err := store.Save(st); err != nil {
				return printErr(out, err)
			}

			out.Success("halt requested")
			return out.JSON(st.Halt)
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	cmd.Flags().StringVar(&reason, "reason", "", "reason for the halt request")
	cmd.Flags().StringVar(&who, "who", "", "identity of the requester")
	root.AddCommand(cmd)
}

// AddCheckHaltCommand adds the check-halt command to the root command.
func AddCheckHaltCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "check-halt",
		Short: "Report whether a halt is pending",
		Long: `check-halt reports true if either trigger is active: the STOP
sentinel file on disk, or state.halt.requested already set. Exit code is
non-zero when a halt is pending, so it can gate a shell loop directly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			_, st, err := openStore(dir)
			if err != nil {
				return printErr(out, err)
			}

			pending := halt.CheckHalt(dir, st)
			if pending {
				out.Warning("halt is pending")
			} else {
				out.Info("no halt pending")
			}
			if err := out.JSON(map[string]bool{"halt_pending": pending}); err != nil {
				return err
			}
			if pending {
				return fmt.Errorf("halt is pending")
			}
			return nil
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	root.AddCommand(cmd)
}

// AddConfirmHaltCommand adds the confirm-halt command to the root command.
func AddConfirmHaltCommand(root *cobra.Command, flags *GlobalFlags) {
	var activeTask string

	cmd := &cobra.Command{
		Use:   "confirm-halt",
		Short: "Record that the scheduler stopped spawning new work",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			store, st, err := openStore(dir)
			if err != nil {
				return printErr(out, err)
			}

			halt.ConfirmHalt(st, activeTask, now())

			if err := store.Save(st); err != nil {
				return printErr(out, err)
			}

			out.Success("halt confirmed")
			return out.JSON(st.Halt)
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	cmd.Flags().StringVar(&activeTask, "active-task", "", "task still in flight when the halt was confirmed")
	root.AddCommand(cmd)
}

// AddHaltStatusCommand adds the halt-status command to the root command.
func AddHaltStatusCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "halt-status",
		Short: "Show the current halt state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			_, st, err := openStore(dir)
			if err != nil {
				return printErr(out, err)
			}

			info := halt.HaltStatus(st)
			if info == nil {
				out.Info("no halt recorded")
				return out.JSON(map[string]bool{"requested": false})
			}

			out.Info(fmt.Sprintf("halt requested: %v, confirmed: %v", info.Requested, info.HaltedAt != nil))
			return out.JSON(info)
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	root.AddCommand(cmd)
}

// AddResumeCommand adds the resume command to the root command.
func AddResumeCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Clear a halt and resume execution",
		Long: `resume removes the STOP sentinel file if present, clears
state.halt, and records an execution_resumed event.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			store, st, err := openStore(dir)
			if err != nil {
				return printErr(out, err)
			}

			if err := halt.Resume(dir, st, now()); err != nil {
				return printErr(out, err)
			}

			if err := store.Save(st); err != nil {
				return printErr(out, err)
			}

			out.Success("execution resumed")
			return nil
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	root.AddCommand(cmd)
}
