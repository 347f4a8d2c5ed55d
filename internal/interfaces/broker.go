package interfaces

import "context"

// TaskState is the lifecycle state the Broker Port reports for a
// dispatched task (§4.2).
type TaskState string

const (
	TaskStateQueued  TaskState = "queued"
	TaskStateRunning TaskState = "running"
	TaskStateSuccess TaskState = "success"
	TaskStateFailure TaskState = "failure"
)

// TaskStatus is the result of BrokerPort.Inspect.
type TaskStatus struct {
	State  TaskState
	Result map[string]interface{}
	Error  string
}

// BrokerPort is the enqueue/inspect contract any AMQP-style broker with
// durable queues satisfies (§4.2, §6). Task ids are globally unique. The
// core makes no assumption about exactly-once delivery; duplicate
// delivery must be idempotent at the job-run level.
type BrokerPort interface {
	SendTask(ctx context.Context, taskName string, args map[string]interface{}) (taskID string, err error)
	Inspect(ctx context.Context, taskID string) (TaskStatus, error)
	Cancel(ctx context.Context, taskID string) error
}
