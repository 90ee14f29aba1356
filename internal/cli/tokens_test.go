package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestLogTokensCmd_UpdatesExecutionTotals(t *testing.T) {
	dir := t.TempDir()
	seedState(t, dir, nil)

	flags := &GlobalFlags{}
	root := &cobra.Command{Use: "forge"}
	AddGlobalFlags(root, flags)
	AddLogTokensCommand(root, flags)

	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{
		"log-tokens", "--dir", dir,
		"--task", "T001",
		"--input-tokens", "120",
		"--output-tokens", "45",
		"--cost-usd", "0.0031",
	})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "T001")
}

func TestLogTokensCmd_RejectsNegativeTokens(t *testing.T) {
	dir := t.TempDir()
	seedState(t, dir, nil)

	flags := &GlobalFlags{}
	root := &cobra.Command{Use: "forge"}
	AddGlobalFlags(root, flags)
	AddLogTokensCommand(root, flags)

	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{
		"log-tokens", "--dir", dir,
		"--task", "T001",
		"--input-tokens", "-5",
	})

	require.Error(t, root.Execute())
}
