// Package cli provides the command-line interface for forge.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskforge/forge/internal/metrics"
)

// AddLogTokensCommand adds the log-tokens command to the root command.
func AddLogTokensCommand(root *cobra.Command, flags *GlobalFlags) {
	var taskID string
	var inputTokens, outputTokens int64
	var costUSD float64

	cmd := &cobra.Command{
		Use:   "log-tokens",
		Short: "Record a token/cost usage observation against a task",
		Long: `log-tokens adds the observed token count and cost to the running
totals in execution.total_tokens/total_cost_usd and appends a
tokens_logged audit event.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			store, st, err := openStore(dir)
			if err != nil {
				return printErr(out, err)
			}

			usage := metrics.Usage{
				TaskID:       taskID,
				InputTokens:  inputTokens,
				OutputTokens: outputTokens,
				CostUSD:      costUSD,
			}
			if err := metrics.LogTokens(st, usage, now()); err != nil {
				return printErr(out, err)
			}
			metrics.Reconcile(st)

			if err := store.Save(st); err != nil {
				return printErr(out, err)
			}

			out.Success(fmt.Sprintf("logged %d tokens ($%.4f) for %s", inputTokens+outputTokens, costUSD, taskID))
			return out.JSON(st.Execution)
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	cmd.Flags().StringVar(&taskID, "task", "", "task ID the usage is attributed to")
	cmd.Flags().Int64Var(&inputTokens, "input-tokens", 0, "input token count")
	cmd.Flags().Int64Var(&outputTokens, "output-tokens", 0, "output token count")
	cmd.Flags().Float64Var(&costUSD, "cost-usd", 0, "observed cost in USD")
	root.AddCommand(cmd)
}
