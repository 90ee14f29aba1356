package statestore_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/forge/internal/clock"
	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/domain"
	forgeerrors "github.com/taskforge/forge/internal/errors"
	"github.com/taskforge/forge/internal/statestore"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func TestStore_InitAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := statestore.New(dir, fixedClock{t: time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)})

	st, err := store.Init("/repo")
	require.NoError(t, err)
	assert.Equal(t, constants.PhaseIngestion, st.Phase.Current)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, st.Version, loaded.Version)
	assert.Equal(t, "/repo", loaded.TargetDir)

	data, err := os.ReadFile(filepath.Join(dir, constants.StateFileName)) //nolint:gosec // test fixture path
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, constants.StateSchemaVersion, raw["version"])
}

func TestStore_Init_AlreadyExists(t *testing.T) {
	dir := t.TempDir()
	store := statestore.New(dir, nil)

	_, err := store.Init("/repo")
	require.NoError(t, err)

	_, err = store.Init("/repo")
	require.Error(t, err)
}

func TestStore_Load_NotFound(t *testing.T) {
	dir := t.TempDir()
	store := statestore.New(dir, nil)

	_, err := store.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, forgeerrors.ErrStateNotFound)
}

func TestStore_Save_RecomputesCounters(t *testing.T) {
	dir := t.TempDir()
	store := statestore.New(dir, clock.RealClock{})

	st, err := store.Init("/repo")
	require.NoError(t, err)

	st.Tasks["T001"] = &domain.Task{ID: "T001", Status: constants.TaskStatusComplete}
	st.Tasks["T002"] = &domain.Task{ID: "T002", Status: constants.TaskStatusRunning}
	st.Tasks["T003"] = &domain.Task{ID: "T003", Status: constants.TaskStatusFailed}

	require.NoError(t, store.Save(st))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Execution.CompletedCount)
	assert.Equal(t, 1, loaded.Execution.FailedCount)
	assert.Equal(t, []string{"T002"}, loaded.Execution.ActiveTasks)
}

func TestStore_Load_CorruptJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, constants.StateFileName), []byte("{not json"), constants.FilePerm))

	store := statestore.New(dir, nil)
	_, err := store.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, forgeerrors.ErrStateCorrupt)
}

func TestStore_Recover_QuarantinesAndRebuilds(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, constants.StateFileName), []byte("{not json"), constants.FilePerm))

	store := statestore.New(dir, fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	_, err := store.Load()
	require.Error(t, err)

	require.NoError(t, store.Recover())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var foundQuarantine bool
	for _, e := range entries {
		if e.Name() != constants.StateFileName && e.Name() != constants.StateLockFileName {
			foundQuarantine = true
			data, rerr := os.ReadFile(filepath.Join(dir, e.Name())) //nolint:gosec // test fixture path
			require.NoError(t, rerr)
			assert.Equal(t, "{not json", string(data))
		}
	}
	assert.True(t, foundQuarantine, "expected a quarantined state.json.corrupted.* file")

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, statestore.Validate(loaded))
	assert.Equal(t, constants.StateSchemaVersion, loaded.Version)
	assert.Equal(t, constants.PhaseIngestion, loaded.Phase.Current)

	var sawRecoveredEvent bool
	for _, ev := range loaded.Events {
		if ev.Type == "state_recovered" {
			sawRecoveredEvent = true
		}
	}
	assert.True(t, sawRecoveredEvent, "expected a state_recovered event")
}

func TestStore_Recover_PreservesSurvivingFieldsAndMergesTaskFiles(t *testing.T) {
	dir := t.TempDir()
	store := statestore.New(dir, fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})

	_, err := store.Init("/repo")
	require.NoError(t, err)

	tasksDir := filepath.Join(dir, constants.TasksDir)
	require.NoError(t, os.MkdirAll(tasksDir, constants.DirPerm))
	taskDef := `{"id":"T001","name":"seed data"}`
	require.NoError(t, os.WriteFile(filepath.Join(tasksDir, "T001.json"), []byte(taskDef), constants.FilePerm))

	// A document that parses as JSON but not as a valid state: the tasks
	// field is garbage, but target_dir and created_at are intact.
	corrupt := `{
		"version": "2.0",
		"target_dir": "/repo",
		"created_at": "2026-01-01T00:00:00Z",
		"phase": {"current": "ingestion", "completed": []},
		"tasks": "not-a-map",
		"events": []
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, constants.StateFileName), []byte(corrupt), constants.FilePerm))

	require.NoError(t, store.Recover())

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, statestore.Validate(loaded))
	assert.Equal(t, "/repo", loaded.TargetDir)
	assert.Equal(t, 2026, loaded.CreatedAt.Year())
	require.Contains(t, loaded.Tasks, "T001")
	assert.Equal(t, "T001", loaded.Tasks["T001"].ID)
}

func TestStore_Recover_NoopOnHealthyState(t *testing.T) {
	dir := t.TempDir()
	store := statestore.New(dir, fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})

	_, err := store.Init("/repo")
	require.NoError(t, err)

	require.NoError(t, store.Recover())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), constants.StateCorruptedPrefix)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, statestore.Exists(dir))

	store := statestore.New(dir, nil)
	_, err := store.Init("/repo")
	require.NoError(t, err)

	assert.True(t, statestore.Exists(dir))
}
