package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/netopscore/internal/common"
	"github.com/ternarybob/netopscore/internal/interfaces"
	"github.com/ternarybob/netopscore/internal/models"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()
	db, err := NewDB(arbor.NewLogger(), common.BadgerConfig{Path: t.TempDir() + "/badger"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPersistence(db, arbor.NewLogger())
}

func TestUpsertAndGetDueJobs_RespectsNextRunAt(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	seconds := int64(60)
	_, err := p.UpsertSchedulerJob(ctx, models.SchedulerJob{
		Name: "job-a", TaskName: "noop", Enabled: true,
		ScheduleType: models.ScheduleTypeInterval, IntervalSeconds: &seconds,
	})
	require.NoError(t, err)

	future := time.Now().Add(time.Hour)
	_, err = p.UpsertSchedulerJob(ctx, models.SchedulerJob{
		Name: "job-b", TaskName: "noop", Enabled: true,
		ScheduleType: models.ScheduleTypeInterval, IntervalSeconds: &seconds,
		NextRunAt: &future,
	})
	require.NoError(t, err)

	due, err := p.GetDueJobs(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "job-a", due[0].Name)
}

func TestGetDueJobs_SkipsDisabledAndExhaustedRunBound(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	seconds := int64(60)
	maxRuns := int64(1)

	_, err := p.UpsertSchedulerJob(ctx, models.SchedulerJob{
		Name: "disabled", TaskName: "noop", Enabled: false,
		ScheduleType: models.ScheduleTypeInterval, IntervalSeconds: &seconds,
	})
	require.NoError(t, err)

	_, err = p.UpsertSchedulerJob(ctx, models.SchedulerJob{
		Name: "exhausted", TaskName: "noop", Enabled: true,
		ScheduleType: models.ScheduleTypeInterval, IntervalSeconds: &seconds,
		MaxRuns: &maxRuns, RunCount: 1,
	})
	require.NoError(t, err)

	due, err := p.GetDueJobs(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestMarkSchedulerJobRun_AdvancesNextRunAndIncrementsCount(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	seconds := int64(60)

	_, err := p.UpsertSchedulerJob(ctx, models.SchedulerJob{
		Name: "job-c", TaskName: "noop", Enabled: true,
		ScheduleType: models.ScheduleTypeInterval, IntervalSeconds: &seconds,
	})
	require.NoError(t, err)

	now := time.Now()
	next := now.Add(60 * time.Second)
	require.NoError(t, p.MarkSchedulerJobRun(ctx, "job-c", now, &next))

	due, err := p.GetDueJobs(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)

	jobs, err := p.ListSchedulerJobs(ctx, interfaces.SchedulerJobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(1), jobs[0].RunCount)
}

func TestReapStaleExecutions_MarksOldQueuedRowsAsTimeout(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	old := time.Now().Add(-time.Hour)
	require.NoError(t, p.CreateExecution(ctx, models.Execution{
		TaskID: "task-1", JobName: "job-a", Status: models.ExecutionQueued, StartedAt: old,
	}))
	require.NoError(t, p.CreateExecution(ctx, models.Execution{
		TaskID: "task-2", JobName: "job-a", Status: models.ExecutionQueued, StartedAt: time.Now(),
	}))

	reaped, err := p.ReapStaleExecutions(ctx, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, reaped, 1)
	assert.Equal(t, "task-1", reaped[0].TaskID)
	assert.Equal(t, models.ExecutionTimeout, reaped[0].Status)
}

func TestUpdateExecution_AppliesPartialPatch(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.CreateExecution(ctx, models.Execution{
		TaskID: "task-3", JobName: "job-a", Status: models.ExecutionQueued, StartedAt: time.Now(),
	}))

	status := models.ExecutionSuccess
	require.NoError(t, p.UpdateExecution(ctx, "task-3", interfaces.ExecutionPatch{Status: &status}))

	var got models.Execution
	require.NoError(t, p.db.Store().Get("task-3", &got))
	assert.Equal(t, models.ExecutionSuccess, got.Status)
	assert.Equal(t, "job-a", got.JobName)

	def, err := p.GetJobDefinition(ctx, "missing")
	assert.Error(t, err)
	assert.Empty(t, def.ID)
}

func TestUpsertAndGetJobDefinition_RoundTrips(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	_, err := p.UpsertJobDefinition(ctx, models.JobDefinition{ID: "def-1", Name: "ping sweep"})
	require.NoError(t, err)

	def, err := p.GetJobDefinition(ctx, "def-1")
	require.NoError(t, err)
	assert.Equal(t, "ping sweep", def.Name)
}
