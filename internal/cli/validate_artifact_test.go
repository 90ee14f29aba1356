package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/forge/internal/clock"
	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/statestore"
)

func newValidateRoot(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	flags := &GlobalFlags{}
	root := &cobra.Command{Use: "forge"}
	AddGlobalFlags(root, flags)
	AddValidateCommand(root, flags)
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	return root, buf
}

func writeArtifactFile(t *testing.T, dir, subdir, name string, v interface{}) {
	t.Helper()
	full := filepath.Join(dir, subdir)
	require.NoError(t, os.MkdirAll(full, constants.DirPerm))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(full, name), data, constants.FilePerm))
}

func TestValidateCmd_CapabilityMapArtifact(t *testing.T) {
	dir := t.TempDir()
	seedState(t, dir, nil)
	writeArtifactFile(t, dir, constants.ArtifactsDir, constants.CapabilityMapFile,
		map[string]string{"steel_thread": "checkout"})

	root, _ := newValidateRoot(t)
	root.SetArgs([]string{"validate", "capability_map", "--dir", dir})
	require.NoError(t, root.Execute())

	store := statestore.New(dir, clock.RealClock{})
	st, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, st.Artifacts.CapabilityMap)
	require.True(t, st.Artifacts.CapabilityMap.Valid)
	require.Len(t, st.Artifacts.CapabilityMap.Checksum, 16)
}

func TestValidateCmd_ArtifactMissingFileFails(t *testing.T) {
	dir := t.TempDir()
	seedState(t, dir, nil)

	root, _ := newValidateRoot(t)
	root.SetArgs([]string{"validate", "physical_map", "--dir", dir})
	require.Error(t, root.Execute())

	store := statestore.New(dir, clock.RealClock{})
	st, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, st.Artifacts.PhysicalMap)
	require.False(t, st.Artifacts.PhysicalMap.Valid)
	require.NotNil(t, st.Artifacts.PhysicalMap.Error)
}

func TestValidateCmd_UnknownArtifactKindFails(t *testing.T) {
	dir := t.TempDir()
	seedState(t, dir, nil)

	root, _ := newValidateRoot(t)
	root.SetArgs([]string{"validate", "not_a_real_kind", "--dir", dir})
	require.Error(t, root.Execute())
}

func sampleBehaviorModel() map[string]interface{} {
	return map[string]interface{}{
		"slug":  "checkout",
		"level": "steel_thread",
		"steps": []map[string]interface{}{
			{
				"name":          "collect cart",
				"postcondition": "cart_collected",
				"failures": []map[string]interface{}{
					{"condition": "payment gateway unavailable", "outcome": "payment_failed"},
				},
			},
			{
				"name":          "charge payment",
				"postcondition": "payment_charged",
			},
		},
	}
}

func TestValidateCmd_BehaviorModelArtifact_CompilesAndExports(t *testing.T) {
	dir := t.TempDir()
	seedState(t, dir, nil)
	writeArtifactFile(t, dir, filepath.Join(constants.ArtifactsDir, constants.FSMDir), constants.BehaviorModelFile,
		sampleBehaviorModel())

	root, _ := newValidateRoot(t)
	root.SetArgs([]string{"validate", "behavior_model", "--dir", dir})
	require.NoError(t, root.Execute())

	store := statestore.New(dir, clock.RealClock{})
	st, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, st.Artifacts.BehaviorModel)
	require.True(t, st.Artifacts.BehaviorModel.Valid)
	require.Len(t, st.Artifacts.BehaviorModel.Checksum, 16)

	fsmDir := filepath.Join(dir, constants.ArtifactsDir, constants.FSMDir)
	_, err = os.Stat(filepath.Join(fsmDir, "checkout.states.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(fsmDir, "checkout.transitions.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(fsmDir, constants.FSMIndexFile))
	require.NoError(t, err)
}

func TestValidateCmd_BehaviorModelArtifact_CompileFailureRecordsError(t *testing.T) {
	dir := t.TempDir()
	seedState(t, dir, nil)
	writeArtifactFile(t, dir, filepath.Join(constants.ArtifactsDir, constants.FSMDir), constants.BehaviorModelFile,
		map[string]interface{}{"slug": "", "steps": []map[string]interface{}{}})

	root, _ := newValidateRoot(t)
	root.SetArgs([]string{"validate", "behavior_model", "--dir", dir})
	require.Error(t, root.Execute())

	store := statestore.New(dir, clock.RealClock{})
	st, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, st.Artifacts.BehaviorModel)
	require.False(t, st.Artifacts.BehaviorModel.Valid)
	require.NotNil(t, st.Artifacts.BehaviorModel.Error)
}
