// Package cli provides the command-line interface for forge.
package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/taskforge/forge/internal/phase"
)

// AddStatusCommand adds the status command to the root command.
func AddStatusCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newStatusCmd(flags))
}

// statusReport is the JSON-mode shape for `forge status`.
type statusReport struct {
	CurrentPhase   string         `json:"current_phase"`
	CountsByStatus map[string]int `json:"counts_by_status"`
	ActiveTasks    []string       `json:"active_tasks"`
	FailedTasks    []string       `json:"failed_tasks"`
	ReadyTasks     []string       `json:"ready_tasks"`
	CompletedRatio float64        `json:"completed_ratio"`
}

func newStatusCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current phase and task status summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			_, st, err := openStore(dir)
			if err != nil {
				return printErr(out, err)
			}

			summary := phase.Status(st)
			report := statusReport{
				CurrentPhase:   string(summary.CurrentPhase),
				CountsByStatus: make(map[string]int, len(summary.CountsByStatus)),
				ActiveTasks:    summary.ActiveTasks,
				FailedTasks:    summary.FailedTasks,
				ReadyTasks:     summary.ReadyTasks,
				CompletedRatio: summary.CompletedRatio,
			}
			for status, count := range summary.CountsByStatus {
				report.CountsByStatus[string(status)] = count
			}

			headers := []string{"STATUS", "COUNT"}
			rows := make([][]string, 0, len(report.CountsByStatus))
			statuses := make([]string, 0, len(report.CountsByStatus))
			for status := range report.CountsByStatus {
				statuses = append(statuses, status)
			}
			sort.Strings(statuses)
			for _, status := range statuses {
				rows = append(rows, []string{status, fmt.Sprintf("%d", report.CountsByStatus[status])})
			}

			out.Info(fmt.Sprintf("phase: %s, ready: %d, active: %d, failed: %d",
				report.CurrentPhase, len(report.ReadyTasks), len(report.ActiveTasks), len(report.FailedTasks)))
			out.Table(headers, rows)
			return out.JSON(report)
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	return cmd
}
