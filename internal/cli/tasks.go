// Package cli provides the command-line interface for forge.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskforge/forge/internal/config"
	"github.com/taskforge/forge/internal/dag"
)

// openTopoCache builds a dag.TopoCache from the resolved configuration, or
// returns nil if no Redis address is configured — every dag.TopoOrder call
// tolerates a nil cache by recomputing the order directly.
func openTopoCache(dir string) (*dag.TopoCache, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg.TopoCache.Addr == "" {
		return nil, nil
	}
	return dag.NewTopoCache(cfg.TopoCache.Addr, cfg.TopoCache.TTL), nil
}

// AddLoadTasksCommand adds the load-tasks command to the root command.
func AddLoadTasksCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newLoadTasksCmd(flags))
}

func newLoadTasksCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load-tasks",
		Short: "Load per-file task definitions from tasks/ into the task graph",
		Long: `load-tasks scans the planning directory's tasks/ folder for task
definition files and merges them into the in-memory task graph, preserving
the lifecycle state of any task already present and adding newly
discovered tasks as pending.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			store, st, err := openStore(dir)
			if err != nil {
				return printErr(out, err)
			}

			tasks, err := dag.Load(cmd.Context(), dir, st.Tasks)
			if err != nil {
				return printErr(out, err)
			}
			st.Tasks = tasks

			cache, err := openTopoCache(dir)
			if err != nil {
				return printErr(out, err)
			}
			defer cache.Close() //nolint:errcheck // best-effort pool close on a short-lived CLI process

			order, err := dag.TopoOrder(st.Tasks, cache)
			if err != nil {
				return printErr(out, err)
			}

			if err := store.Save(st); err != nil {
				return printErr(out, err)
			}

			out.Success(fmt.Sprintf("loaded %d tasks", len(st.Tasks)))
			if err := out.JSON(st.Tasks); err != nil {
				return err
			}
			return out.JSON(map[string][]string{"topo_order": order})
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	return cmd
}

// AddReadyTasksCommand adds the ready-tasks command to the root command.
func AddReadyTasksCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newReadyTasksCmd(flags))
}

func newReadyTasksCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ready-tasks",
		Short: "List tasks whose dependencies are all satisfied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFor(cmd, flags)
			dir, _ := cmd.Flags().GetString(dirFlagName)

			_, st, err := openStore(dir)
			if err != nil {
				return printErr(out, err)
			}

			ready := dag.ReadySet(st.Tasks)

			rows := make([][]string, 0, len(ready))
			for _, id := range ready {
				rows = append(rows, []string{id, st.Tasks[id].Name})
			}

			out.Info(fmt.Sprintf("%d task(s) ready", len(ready)))
			out.Table([]string{"ID", "NAME"}, rows)
			return out.JSON(ready)
		},
		SilenceUsage: true,
	}

	addDirFlag(cmd)
	return cmd
}
