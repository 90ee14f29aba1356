// Package cli provides the command-line interface for forge.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskforge/forge/internal/phase"
)

// AddAdvanceCommand adds the advance command to the root command.
func AddAdvanceCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newAdvanceCmd(flags))
}

func newAdvanceCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Move to the next pipeline phase",
		Long: `Advance computes the phase following the current one, checks its
precondition, and on success records the previous phase as completed and
moves state.phase.current forward.

A failing precondition leaves the state document unchanged and the unmet
condition is reported.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			store, st, err := openStore(dir)
			if err != nil {
				return printErr(out, err)
			}

			from := st.Phase.Current
			if err := phase.Advance(dir, st); err != nil {
				return printErr(out, err)
			}

			st.AppendEvent(now(), "phase_advanced", "", map[string]interface{}{
				"from": string(from),
				"to":   string(st.Phase.Current),
			})

			if err := store.Save(st); err != nil {
				return printErr(out, err)
			}

			out.Success(fmt.Sprintf("advanced from %s to %s", from, st.Phase.Current))
			return out.JSON(map[string]string{"from": string(from), "to": string(st.Phase.Current)})
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	return cmd
}
