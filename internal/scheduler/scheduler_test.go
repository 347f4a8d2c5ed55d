package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/netopscore/internal/models"
)

func TestComputeNextRunAt_IntervalAdvancesByDuration(t *testing.T) {
	seconds := int64(60)
	job := models.SchedulerJob{ScheduleType: models.ScheduleTypeInterval, IntervalSeconds: &seconds}
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	next := computeNextRunAt(job, now)
	require.NotNil(t, next)
	assert.Equal(t, now.Add(60*time.Second), *next)
}

func TestComputeNextRunAt_MalformedCronReturnsNil(t *testing.T) {
	expr := "not a cron expression"
	job := models.SchedulerJob{ScheduleType: models.ScheduleTypeCron, CronExpression: &expr}
	next := computeNextRunAt(job, time.Now())
	assert.Nil(t, next)
}

func TestComputeNextRunAt_CronAdvancesStrictlyAfterNow(t *testing.T) {
	expr := "0 0 * * *"
	job := models.SchedulerJob{ScheduleType: models.ScheduleTypeCron, CronExpression: &expr}
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	next := computeNextRunAt(job, now)
	require.NotNil(t, next)
	assert.True(t, next.After(now))
}
