package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/forge/internal/clock"
	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/domain"
	"github.com/taskforge/forge/internal/statestore"
)

func seedState(t *testing.T, dir string, mutate func(*domain.State)) {
	t.Helper()
	store := statestore.New(dir, clock.RealClock{})
	st, err := store.Init(dir)
	require.NoError(t, err)
	if mutate != nil {
		mutate(st)
	}
	require.NoError(t, store.Save(st))
}

func TestStatusCmd_ReportsReadyTasks(t *testing.T) {
	dir := t.TempDir()
	seedState(t, dir, func(st *domain.State) {
		st.Tasks["T001"] = &domain.Task{ID: "T001", Status: constants.TaskStatusPending}
	})

	flags := &GlobalFlags{}
	root := &cobra.Command{Use: "forge"}
	AddGlobalFlags(root, flags)
	AddStatusCommand(root, flags)

	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"status", "--dir", dir, "--output", "json"})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "T001")
}

func TestStatusCmd_MissingState(t *testing.T) {
	dir := t.TempDir()

	flags := &GlobalFlags{}
	root := &cobra.Command{Use: "forge"}
	AddGlobalFlags(root, flags)
	AddStatusCommand(root, flags)

	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"status", "--dir", dir})

	require.Error(t, root.Execute())
}
