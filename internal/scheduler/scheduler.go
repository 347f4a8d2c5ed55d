// Package scheduler implements the Scheduler Tick Loop (C9, §4.9): a
// fixed-cadence poller over GetDueJobs that enqueues tasks on the broker,
// advances next_run_at, and reaps stale executions.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/netopscore/internal/common"
	"github.com/ternarybob/netopscore/internal/interfaces"
	"github.com/ternarybob/netopscore/internal/models"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// TickResult is the return value of one Tick invocation (§4.9 step 5).
type TickResult struct {
	Enqueued  []string
	TimedOut  []models.Execution
	Timestamp time.Time
}

// Service runs the tick loop on a fixed cadence until Stop is called.
type Service struct {
	Persistence interfaces.PersistencePort
	Broker      interfaces.BrokerPort
	Logger      arbor.ILogger

	TickInterval time.Duration
	StaleAfter   time.Duration

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func New(persistence interfaces.PersistencePort, broker interfaces.BrokerPort, logger arbor.ILogger) *Service {
	return &Service{
		Persistence:  persistence,
		Broker:       broker,
		Logger:       logger,
		TickInterval: 30 * time.Second,
		StaleAfter:   600 * time.Second,
	}
}

// Start launches the tick loop in a background goroutine (§4.9).
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(ctx)
	return nil
}

// Stop signals the tick loop to exit and waits for it to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	<-s.done
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error().Str("panic", fmt.Sprintf("%v", r)).Str("stack", common.GetStackTrace()).Msg("recovered from panic in scheduler tick loop - loop stopped")
		}
	}()

	ticker := time.NewTicker(s.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := s.Tick(ctx)
			if err != nil {
				s.Logger.Error().Err(err).Msg("scheduler tick failed")
				continue
			}
			if len(result.Enqueued) > 0 {
				s.Logger.Debug().Int("count", len(result.Enqueued)).Msg("scheduler tick enqueued jobs")
			}
		}
	}
}

// Tick performs exactly one pass of §4.9 steps 1-4: fetch due jobs,
// dispatch each, advance its schedule, and reap stale executions.
func (s *Service) Tick(ctx context.Context) (TickResult, error) {
	now := time.Now().UTC()

	due, err := s.Persistence.GetDueJobs(ctx, now)
	if err != nil {
		return TickResult{}, fmt.Errorf("get due jobs: %w", err)
	}

	result := TickResult{Timestamp: now}

	for _, job := range due {
		if err := s.dispatch(ctx, job, now); err != nil {
			s.Logger.Warn().Str("job_name", job.Name).Err(err).Msg("scheduler dispatch failed")
			continue
		}
		result.Enqueued = append(result.Enqueued, job.Name)
	}

	reaped, err := s.Persistence.ReapStaleExecutions(ctx, s.StaleAfter)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("reap stale executions failed")
	} else {
		result.TimedOut = reaped
	}

	return result, nil
}

// dispatch implements §4.9 step 3: send_task, compute next_run_at,
// mark_scheduler_job_run, insert an execution row. On enqueue failure an
// execution row with status=failed is written and next_run_at is left
// untouched so the job is retried next tick.
func (s *Service) dispatch(ctx context.Context, job models.SchedulerJob, now time.Time) error {
	taskID, err := s.Broker.SendTask(ctx, job.TaskName, job.Config)
	if err != nil {
		enqueueErr := &common.EnqueueError{TaskName: job.TaskName, Err: err}
		_ = s.Persistence.CreateExecution(ctx, models.Execution{
			TaskID:       fmt.Sprintf("failed-%s-%d", job.Name, now.UnixNano()),
			JobName:      job.Name,
			TaskName:     job.TaskName,
			Status:       models.ExecutionFailed,
			StartedAt:    now,
			ErrorMessage: enqueueErr.Error(),
		})
		return enqueueErr
	}

	nextRunAt := computeNextRunAt(job, now)

	if err := s.Persistence.MarkSchedulerJobRun(ctx, job.Name, now, nextRunAt); err != nil {
		return fmt.Errorf("mark scheduler job run: %w", err)
	}

	return s.Persistence.CreateExecution(ctx, models.Execution{
		TaskID:    taskID,
		JobName:   job.Name,
		TaskName:  job.TaskName,
		Status:    models.ExecutionQueued,
		StartedAt: now,
		Result:    map[string]interface{}{"config": job.Config},
	})
}

// computeNextRunAt implements §4.9 step 3's next_run_at rule: interval
// jobs advance by a fixed duration; cron jobs advance to the next instant
// strictly after now per the expression, or nil on a malformed
// expression (the job becomes due only if manually re-armed).
func computeNextRunAt(job models.SchedulerJob, now time.Time) *time.Time {
	switch job.ScheduleType {
	case models.ScheduleTypeInterval:
		if job.IntervalSeconds == nil {
			return nil
		}
		next := now.Add(time.Duration(*job.IntervalSeconds) * time.Second)
		return &next

	case models.ScheduleTypeCron:
		if job.CronExpression == nil {
			return nil
		}
		schedule, err := cronParser.Parse(*job.CronExpression)
		if err != nil {
			return nil
		}
		next := schedule.Next(now)
		return &next

	default:
		return nil
	}
}
