// Package cli provides the command-line interface for forge.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AddInitCommand adds the init command to the root command.
func AddInitCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newInitCmd(flags))
}

func newInitCmd(flags *GlobalFlags) *cobra.Command {
	var targetDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a planning directory",
		Long: `Create a fresh state.json in the planning directory.

init fails if a state.json already exists at that location; run against
the existing planning directory instead of overwriting it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			store := statestoreFor(dir)
			st, err := store.Init(targetDir)
			if err != nil {
				return printErr(out, err)
			}

			out.Success(fmt.Sprintf("initialized planning directory %s", dir))
			return out.JSON(st)
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	cmd.Flags().StringVar(&targetDir, "target-dir", ".", "directory the generated code will be written to")

	return cmd
}
