package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/domain"
	"github.com/taskforge/forge/internal/metrics"
)

func TestLogTokens_Accumulates(t *testing.T) {
	st := domain.NewState("/tmp/proj", time.Now())

	err := metrics.LogTokens(st, metrics.Usage{TaskID: "task-001", InputTokens: 100, OutputTokens: 50, CostUSD: 0.02}, time.Now())
	require.NoError(t, err)
	err = metrics.LogTokens(st, metrics.Usage{TaskID: "task-002", InputTokens: 10, OutputTokens: 5, CostUSD: 0.001}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(165), st.Execution.TotalTokens)
	assert.InDelta(t, 0.021, st.Execution.TotalCostUSD, 1e-9)
	require.Len(t, st.Events, 2)
	assert.Equal(t, "tokens_logged", st.Events[0].Type)
	assert.Equal(t, "task-001", st.Events[0].TaskID)
}

func TestLogTokens_RejectsNegative(t *testing.T) {
	st := domain.NewState("/tmp/proj", time.Now())

	err := metrics.LogTokens(st, metrics.Usage{TaskID: "task-001", InputTokens: -1}, time.Now())
	require.Error(t, err)

	err = metrics.LogTokens(st, metrics.Usage{TaskID: "task-001", CostUSD: -0.5}, time.Now())
	require.Error(t, err)

	assert.Zero(t, st.Execution.TotalTokens)
	assert.Zero(t, st.Execution.TotalCostUSD)
	assert.Empty(t, st.Events)
}

func TestReconcile_RecomputesCounters(t *testing.T) {
	st := domain.NewState("/tmp/proj", time.Now())
	st.Tasks["task-001"] = &domain.Task{ID: "task-001", Status: constants.TaskStatusComplete}
	st.Tasks["task-002"] = &domain.Task{ID: "task-002", Status: constants.TaskStatusFailed}
	st.Tasks["task-003"] = &domain.Task{ID: "task-003", Status: constants.TaskStatusRunning}

	metrics.Reconcile(st)

	assert.Equal(t, 1, st.Execution.CompletedCount)
	assert.Equal(t, 1, st.Execution.FailedCount)
	assert.Equal(t, []string{"task-003"}, st.Execution.ActiveTasks)
}
