package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/netopscore/internal/interfaces"
	"github.com/ternarybob/netopscore/internal/models"
)

// Persistence implements interfaces.PersistencePort over a single Badger
// database. Scheduler jobs are keyed by Name; executions by TaskID; job
// definitions by ID.
//
// GetDueJobs and MarkSchedulerJobRun are NOT serializable across multiple
// Persistence instances pointed at the same database file (badgerhold
// offers no SELECT FOR UPDATE SKIP LOCKED equivalent) — operators must run
// exactly one Scheduler Tick instance against a given database.
type Persistence struct {
	db     *DB
	logger arbor.ILogger
}

func NewPersistence(db *DB, logger arbor.ILogger) *Persistence {
	return &Persistence{db: db, logger: logger}
}

func (p *Persistence) ListSchedulerJobs(ctx context.Context, filter interfaces.SchedulerJobFilter) ([]models.SchedulerJob, error) {
	var jobs []models.SchedulerJob
	if err := p.db.Store().Find(&jobs, badgerhold.Where("Name").Ne("")); err != nil {
		return nil, fmt.Errorf("list scheduler jobs: %w", err)
	}

	out := jobs[:0]
	for _, j := range jobs {
		if filter.Enabled != nil && j.Enabled != *filter.Enabled {
			continue
		}
		if filter.NameLike != "" && !containsFold(j.Name, filter.NameLike) {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

// GetDueJobs evaluates each enabled job's window/run-bound/next_run_at
// clauses in Go rather than in the query layer, since badgerhold cannot
// express nullable-or comparisons across pointer fields (§4.1).
func (p *Persistence) GetDueJobs(ctx context.Context, now time.Time) ([]models.SchedulerJob, error) {
	var candidates []models.SchedulerJob
	if err := p.db.Store().Find(&candidates, badgerhold.Where("Enabled").Eq(true)); err != nil {
		return nil, fmt.Errorf("get due jobs: %w", err)
	}

	var due []models.SchedulerJob
	for _, j := range candidates {
		if j.StartAt != nil && now.Before(*j.StartAt) {
			continue
		}
		if j.EndAt != nil && now.After(*j.EndAt) {
			continue
		}
		if j.IsRunBoundExceeded() {
			continue
		}
		if j.NextRunAt != nil && now.Before(*j.NextRunAt) {
			continue
		}
		due = append(due, j)
	}

	sortByNextRunAtAsc(due)
	return due, nil
}

func (p *Persistence) UpsertSchedulerJob(ctx context.Context, job models.SchedulerJob) (models.SchedulerJob, error) {
	if job.Name == "" {
		return models.SchedulerJob{}, fmt.Errorf("scheduler job name is required")
	}
	if err := p.db.Store().Upsert(job.Name, &job); err != nil {
		return models.SchedulerJob{}, fmt.Errorf("upsert scheduler job: %w", err)
	}
	return job, nil
}

func (p *Persistence) MarkSchedulerJobRun(ctx context.Context, name string, lastRunAt time.Time, nextRunAt *time.Time) error {
	var job models.SchedulerJob
	if err := p.db.Store().Get(name, &job); err != nil {
		return fmt.Errorf("mark scheduler job run: %w", err)
	}
	job.LastRunAt = &lastRunAt
	job.NextRunAt = nextRunAt
	job.RunCount++
	if err := p.db.Store().Update(name, &job); err != nil {
		return fmt.Errorf("mark scheduler job run: %w", err)
	}
	return nil
}

func (p *Persistence) CreateExecution(ctx context.Context, row models.Execution) error {
	if row.TaskID == "" {
		return fmt.Errorf("execution task_id is required")
	}
	if err := p.db.Store().Insert(row.TaskID, &row); err != nil {
		return fmt.Errorf("create execution: %w", err)
	}
	return nil
}

func (p *Persistence) UpdateExecution(ctx context.Context, taskID string, patch interfaces.ExecutionPatch) error {
	var exec models.Execution
	if err := p.db.Store().Get(taskID, &exec); err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if patch.Status != nil {
		exec.Status = *patch.Status
	}
	if patch.FinishedAt != nil {
		exec.FinishedAt = patch.FinishedAt
	}
	if patch.ErrorMessage != nil {
		exec.ErrorMessage = *patch.ErrorMessage
	}
	if patch.Result != nil {
		exec.Result = patch.Result
	}
	if err := p.db.Store().Update(taskID, &exec); err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	return nil
}

// ReapStaleExecutions marks queued/running executions older than
// threshold as timeout and returns the affected rows (§4.1 invariant 10).
func (p *Persistence) ReapStaleExecutions(ctx context.Context, threshold time.Duration) ([]models.Execution, error) {
	cutoff := time.Now().Add(-threshold)

	var stale []models.Execution
	query := badgerhold.Where("Status").In(models.ExecutionQueued, models.ExecutionRunning).
		And("StartedAt").Lt(cutoff)
	if err := p.db.Store().Find(&stale, query); err != nil {
		return nil, fmt.Errorf("reap stale executions: %w", err)
	}

	for i := range stale {
		stale[i].Status = models.ExecutionTimeout
		finished := time.Now()
		stale[i].FinishedAt = &finished
		if err := p.db.Store().Update(stale[i].TaskID, &stale[i]); err != nil {
			p.logger.Warn().Err(err).Str("task_id", stale[i].TaskID).Msg("failed to mark execution as timed out")
		}
	}
	return stale, nil
}

func (p *Persistence) GetJobDefinition(ctx context.Context, id string) (models.JobDefinition, error) {
	var def models.JobDefinition
	if err := p.db.Store().Get(id, &def); err != nil {
		if err == badgerhold.ErrNotFound {
			return models.JobDefinition{}, fmt.Errorf("job definition not found: %s", id)
		}
		return models.JobDefinition{}, fmt.Errorf("get job definition: %w", err)
	}
	return def, nil
}

func (p *Persistence) UpsertJobDefinition(ctx context.Context, def models.JobDefinition) (models.JobDefinition, error) {
	if def.ID == "" {
		return models.JobDefinition{}, fmt.Errorf("job definition id is required")
	}
	if err := p.db.Store().Upsert(def.ID, &def); err != nil {
		return models.JobDefinition{}, fmt.Errorf("upsert job definition: %w", err)
	}
	return def, nil
}

func sortByNextRunAtAsc(jobs []models.SchedulerJob) {
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0 && nextRunBefore(jobs[j], jobs[j-1]); j-- {
			jobs[j], jobs[j-1] = jobs[j-1], jobs[j]
		}
	}
}

// nextRunBefore orders nulls first, matching §4.1's "ordered by
// next_run_at ASC with nulls first".
func nextRunBefore(a, b models.SchedulerJob) bool {
	if a.NextRunAt == nil {
		return b.NextRunAt != nil || false
	}
	if b.NextRunAt == nil {
		return false
	}
	return a.NextRunAt.Before(*b.NextRunAt)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
