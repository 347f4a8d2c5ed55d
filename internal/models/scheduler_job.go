package models

import "time"

// ScheduleType tags whether a SchedulerJob fires on a fixed interval or a
// cron expression (§3 SchedulerJob.schedule_type).
type ScheduleType string

const (
	ScheduleTypeInterval ScheduleType = "interval"
	ScheduleTypeCron     ScheduleType = "cron"
)

// SchedulerJob is the persistent row binding a JobDefinition to a
// schedule (§3 SchedulerJob). Field names are normative.
type SchedulerJob struct {
	Name     string                 `json:"name" db:"name" validate:"required"`
	TaskName string                 `json:"task_name" db:"task_name" validate:"required"`
	Config   map[string]interface{} `json:"config" db:"config"`
	Enabled  bool                   `json:"enabled" db:"enabled"`

	ScheduleType    ScheduleType `json:"schedule_type" db:"schedule_type" validate:"required,oneof=interval cron"`
	IntervalSeconds *int64       `json:"interval_seconds,omitempty" db:"interval_seconds"`
	CronExpression  *string      `json:"cron_expression,omitempty" db:"cron_expression"`

	StartAt *time.Time `json:"start_at,omitempty" db:"start_at"`
	EndAt   *time.Time `json:"end_at,omitempty" db:"end_at"`
	MaxRuns *int64     `json:"max_runs,omitempty" db:"max_runs"`
	RunCount int64     `json:"run_count" db:"run_count"`

	LastRunAt *time.Time `json:"last_run_at,omitempty" db:"last_run_at"`
	NextRunAt *time.Time `json:"next_run_at,omitempty" db:"next_run_at"`
}

// IsRunBoundExceeded reports whether MaxRuns is set and RunCount has
// reached or exceeded it (§3 invariant: enabled ∧ run_count ≥ max_runs ⇒
// not due).
func (j *SchedulerJob) IsRunBoundExceeded() bool {
	return j.MaxRuns != nil && j.RunCount >= *j.MaxRuns
}

// IsWithinWindow reports whether now falls within [StartAt, EndAt],
// treating a nil bound as unbounded on that side. StartAt is a hard lower
// bound regardless of ScheduleType (Open Question decision, spec.md §9).
func (j *SchedulerJob) IsWithinWindow(now time.Time) bool {
	if j.StartAt != nil && now.Before(*j.StartAt) {
		return false
	}
	if j.EndAt != nil && now.After(*j.EndAt) {
		return false
	}
	return true
}

// IsDue reports whether this job should be dispatched at now, applying
// every clause of the get_due_jobs predicate in §4.1: enabled, run-bound,
// window, and next_run_at.
func (j *SchedulerJob) IsDue(now time.Time) bool {
	if !j.Enabled {
		return false
	}
	if j.IsRunBoundExceeded() {
		return false
	}
	if !j.IsWithinWindow(now) {
		return false
	}
	if j.NextRunAt != nil && j.NextRunAt.After(now) {
		return false
	}
	return true
}

// ExecutionStatus is the lifecycle state of one Execution (§3 Execution).
type ExecutionStatus string

const (
	ExecutionQueued  ExecutionStatus = "queued"
	ExecutionRunning ExecutionStatus = "running"
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
	ExecutionTimeout ExecutionStatus = "timeout"
)

// Execution is one historical run of a scheduled job (§3 Execution).
type Execution struct {
	TaskID       string                 `json:"task_id" db:"task_id" validate:"required"`
	JobName      string                 `json:"job_name" db:"job_name" validate:"required"`
	TaskName     string                 `json:"task_name" db:"task_name"`
	Status       ExecutionStatus        `json:"status" db:"status"`
	StartedAt    time.Time              `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time             `json:"finished_at,omitempty" db:"finished_at"`
	ErrorMessage string                 `json:"error_message,omitempty" db:"error_message"`
	Result       map[string]interface{} `json:"result,omitempty" db:"result"`
}

// IsTerminal reports whether Status is one that Scheduler Tick's reaper
// will no longer touch.
func (e *Execution) IsTerminal() bool {
	switch e.Status {
	case ExecutionSuccess, ExecutionFailed, ExecutionTimeout:
		return true
	default:
		return false
	}
}
