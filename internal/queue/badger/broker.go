// Package badger is the default BrokerPort implementation: a durable,
// visibility-timeout FIFO queue backed by badgerhold, grounded on the
// teacher's internal/queue.BadgerManager.
package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	storagebadger "github.com/ternarybob/netopscore/internal/storage/badger"

	"github.com/ternarybob/netopscore/internal/interfaces"
)

// queuedTask is one enqueued unit of work.
type queuedTask struct {
	ID           string                 `badgerhold:"key"`
	TaskName     string
	Args         map[string]interface{}
	EnqueuedAt   time.Time `badgerhold:"index"`
	VisibleAt    time.Time `badgerhold:"index"`
	ReceiveCount int
	State        interfaces.TaskState
	Result       map[string]interface{}
	Error        string
}

// Broker implements interfaces.BrokerPort over a badgerhold store shared
// with Persistence.
type Broker struct {
	db                *storagebadger.DB
	visibilityTimeout time.Duration
	maxReceive        int
}

func NewBroker(db *storagebadger.DB, visibilityTimeout time.Duration, maxReceive int) *Broker {
	if visibilityTimeout <= 0 {
		visibilityTimeout = 30 * time.Second
	}
	if maxReceive <= 0 {
		maxReceive = 3
	}
	return &Broker{db: db, visibilityTimeout: visibilityTimeout, maxReceive: maxReceive}
}

// SendTask enqueues a task, returning a globally-unique, FIFO-sortable id.
func (b *Broker) SendTask(ctx context.Context, taskName string, args map[string]interface{}) (string, error) {
	now := time.Now()
	taskID := fmt.Sprintf("%019d:%s", now.UnixNano(), uuid.New().String())

	task := queuedTask{
		ID:         taskID,
		TaskName:   taskName,
		Args:       args,
		EnqueuedAt: now,
		VisibleAt:  now,
		State:      interfaces.TaskStateQueued,
	}
	if err := b.db.Store().Insert(taskID, &task); err != nil {
		return "", fmt.Errorf("send task: %w", err)
	}
	return taskID, nil
}

// Receive pops the next visible task, marking it running and extending
// its visibility so a crashed worker's task becomes visible again after
// the timeout.
func (b *Broker) Receive(ctx context.Context) (taskID, taskName string, args map[string]interface{}, err error) {
	now := time.Now()

	var tasks []queuedTask
	query := badgerhold.Where("State").In(interfaces.TaskStateQueued, interfaces.TaskStateRunning).
		And("VisibleAt").Le(now).
		And("ReceiveCount").Lt(b.maxReceive).
		SortBy("ID").
		Limit(1)
	if err := b.db.Store().Find(&tasks, query); err != nil {
		return "", "", nil, fmt.Errorf("receive task: %w", err)
	}
	if len(tasks) == 0 {
		return "", "", nil, ErrNoTask
	}

	task := tasks[0]
	task.ReceiveCount++
	task.VisibleAt = now.Add(b.visibilityTimeout)
	task.State = interfaces.TaskStateRunning
	if err := b.db.Store().Update(task.ID, &task); err != nil {
		return "", "", nil, fmt.Errorf("receive task: %w", err)
	}

	return task.ID, task.TaskName, task.Args, nil
}

// Complete records the final state of a task (§4.2).
func (b *Broker) Complete(ctx context.Context, taskID string, success bool, result map[string]interface{}, errMsg string) error {
	var task queuedTask
	if err := b.db.Store().Get(taskID, &task); err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	if success {
		task.State = interfaces.TaskStateSuccess
	} else {
		task.State = interfaces.TaskStateFailure
	}
	task.Result = result
	task.Error = errMsg
	if err := b.db.Store().Update(taskID, &task); err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

func (b *Broker) Inspect(ctx context.Context, taskID string) (interfaces.TaskStatus, error) {
	var task queuedTask
	if err := b.db.Store().Get(taskID, &task); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.TaskStatus{}, fmt.Errorf("task not found: %s", taskID)
		}
		return interfaces.TaskStatus{}, fmt.Errorf("inspect task: %w", err)
	}
	return interfaces.TaskStatus{State: task.State, Result: task.Result, Error: task.Error}, nil
}

func (b *Broker) Cancel(ctx context.Context, taskID string) error {
	var task queuedTask
	if err := b.db.Store().Get(taskID, &task); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("cancel task: %w", err)
	}
	task.State = interfaces.TaskStateFailure
	task.Error = "canceled"
	return b.db.Store().Update(taskID, &task)
}

// ErrNoTask is returned by Receive when the queue currently has nothing
// visible to deliver.
var ErrNoTask = fmt.Errorf("badger queue: no task available")
