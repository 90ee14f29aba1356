package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/taskforge/forge/internal/clock"
	"github.com/taskforge/forge/internal/domain"
	"github.com/taskforge/forge/internal/statestore"
	"github.com/taskforge/forge/internal/tui"
)

// dirFlagName is the --dir flag shared by every command that touches a planning
// directory. It defaults to the current working directory ("."), which can
// be overridden explicitly.
const dirFlagName = "dir"

// addDirFlag registers --dir on cmd.
func addDirFlag(cmd *cobra.Command) {
	cmd.Flags().String(dirFlagName, ".", "planning directory (defaults to the current directory)")
}

// outputFor builds the Output implementation for the resolved global
// --output flag, writing to cmd's configured stdout.
func outputFor(cmd *cobra.Command, flags *GlobalFlags) tui.Output {
	return tui.NewOutput(cmd.OutOrStdout(), resolveOutputFormat(flags))
}

// resolveOutputFormat falls back to auto-detection when flags is nil, which
// happens only if a command is invoked outside the normal root-command path
// (e.g. directly in a test).
func resolveOutputFormat(flags *GlobalFlags) string {
	if flags == nil {
		return tui.FormatAuto
	}
	return flags.Output
}

// statestoreFor returns a Store rooted at dir using the real wall clock.
func statestoreFor(dir string) *statestore.Store {
	return statestore.New(dir, clock.RealClock{})
}

// openStore loads the state document from dir, running statestore recovery
// when state.json cannot be read, parsed or validated, per spec.md §4.1's
// load-or-recover contract.
func openStore(dir string) (*statestore.Store, *domain.State, error) {
	store := statestoreFor(dir)
	st, err := store.LoadOrRecover()
	if err != nil {
		return nil, nil, err
	}
	return store, st, nil
}

// now is the single clock read point for command handlers, kept as a
// variable so tests can stub it.
var now = func() time.Time { return time.Now().UTC() } //nolint:gochecknoglobals // test seam, mirrors clock.Clock

// printErr writes err to out and returns it unchanged, so RunE can both
// report and propagate in one line.
func printErr(out tui.Output, err error) error {
	out.Error(err)
	return err
}
