package common

import "fmt"

// ValidationError signals malformed input (bad CIDR, unknown schedule
// type, missing required field). Always surfaced to the caller, never
// silently swallowed (§7).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NotFoundError signals a referenced entity does not exist, surfaced with
// entity name and key (§7).
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s %q", e.Entity, e.Key)
}

// TargetingError signals target resolution failed. The resolver itself
// never returns this as an error return value — it returns an empty set
// with this populated as an advisory field on the outcome (§5 Target
// Resolver, §7).
type TargetingError struct {
	Targeting string
	Reason    string
}

func (e *TargetingError) Error() string {
	return fmt.Sprintf("targeting: %s: %s", e.Targeting, e.Reason)
}

// AdapterError signals a transient probe or port-call failure, recorded
// per-target and reported as a failed_host in the job result; it never
// aborts the run (§7).
type AdapterError struct {
	Adapter string
	Target  string
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s on %s: %v", e.Adapter, e.Target, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// SinkError signals a persistence or inventory write failure, recorded on
// the affected record (§7).
type SinkError struct {
	Table string
	Key   string
	Err   error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s[%s]: %v", e.Table, e.Key, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// TimeoutError signals a chord wait or adapter exceeded its deadline. At
// action level it is treated as an AdapterError; at execution level it
// becomes status=timeout when reaped (§7).
type TimeoutError struct {
	Operation string
	Timeout   string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s exceeded %s", e.Operation, e.Timeout)
}

// EnqueueError signals the broker rejected a task. An execution row is
// created in failed state and next_run_at is not advanced (§7, §4.9).
type EnqueueError struct {
	TaskName string
	Err      error
}

func (e *EnqueueError) Error() string {
	return fmt.Sprintf("enqueue %s: %v", e.TaskName, e.Err)
}

func (e *EnqueueError) Unwrap() error { return e.Err }
