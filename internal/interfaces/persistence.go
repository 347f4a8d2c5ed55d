// Package interfaces defines the narrow ports the core consumes (§4):
// Persistence, Broker, Inventory, and the probe/notification surfaces.
// Concrete adapters live under internal/storage, internal/queue, and
// internal/inventory; the core never imports them directly.
package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/netopscore/internal/models"
)

// SchedulerJobFilter narrows ListSchedulerJobs results.
type SchedulerJobFilter struct {
	Enabled *bool
	NameLike string
}

// PersistencePort is the transactional read/write surface over jobs,
// executions, and job definitions (§4.1). All methods are expected to be
// safe under concurrent invocation; callers do not hold long transactions
// across external calls.
//
// Multi-scheduler safety: GetDueJobs + MarkSchedulerJobRun must be
// serializable per job (e.g. SELECT FOR UPDATE SKIP LOCKED) for operators
// to safely run more than one SchedulerTick instance; the badger-backed
// default implementation does NOT provide this guarantee (Open Question
// decision, SPEC_FULL.md) and documents that operators must run exactly
// one tick instance.
type PersistencePort interface {
	ListSchedulerJobs(ctx context.Context, filter SchedulerJobFilter) ([]models.SchedulerJob, error)
	// GetDueJobs returns enabled rows whose window, run-bound, and
	// next_run_at clauses are all satisfied at now, ordered by
	// next_run_at ASC with nulls first (§4.1).
	GetDueJobs(ctx context.Context, now time.Time) ([]models.SchedulerJob, error)
	UpsertSchedulerJob(ctx context.Context, job models.SchedulerJob) (models.SchedulerJob, error)
	// MarkSchedulerJobRun atomically updates last_run_at/next_run_at and
	// increments run_count (§4.1, §8 invariant 2).
	MarkSchedulerJobRun(ctx context.Context, name string, lastRunAt time.Time, nextRunAt *time.Time) error

	CreateExecution(ctx context.Context, row models.Execution) error
	UpdateExecution(ctx context.Context, taskID string, patch ExecutionPatch) error
	// ReapStaleExecutions sets status=timeout on queued/running rows
	// older than threshold and returns the affected set (§4.1, §8
	// invariant 10).
	ReapStaleExecutions(ctx context.Context, threshold time.Duration) ([]models.Execution, error)

	GetJobDefinition(ctx context.Context, id string) (models.JobDefinition, error)
	UpsertJobDefinition(ctx context.Context, def models.JobDefinition) (models.JobDefinition, error)
}

// ExecutionPatch carries partial updates to an Execution row.
type ExecutionPatch struct {
	Status       *models.ExecutionStatus
	FinishedAt   *time.Time
	ErrorMessage *string
	Result       map[string]interface{}
}
