package interfaces

import "context"

// NotificationEvent is emitted after each action per its Notifications
// config (§4.8 step 7). Delivery failures never affect job status.
type NotificationEvent struct {
	Title   string
	Body    string
	Tag     string
	Targets []string
}

// NotificationDispatcher is a sink that receives notification events; the
// transport (email, chat, SMS) is external and out of scope (§1). The
// core only ever calls Dispatch and discards its error.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, event NotificationEvent) error
}

// AuditEventType tags the kind of audit event emitted by the Job Engine
// (§4.8 step 8).
type AuditEventType string

const (
	AuditJobStarted      AuditEventType = "job_started"
	AuditActionStarted   AuditEventType = "action_started"
	AuditActionCompleted AuditEventType = "action_completed"
	AuditJobCompleted    AuditEventType = "job_completed"
)

// AuditEvent is one lifecycle event published by the Job Engine. Audit
// write failures are logged and swallowed (§4.8 step 8, §7).
type AuditEvent struct {
	Type     AuditEventType
	JobName  string
	ActionID string
	Status   string
	Detail   map[string]interface{}
}

// AuditSink receives audit events; the default implementation (notify.Hub)
// writes each event directly to every connected websocket client,
// mirroring the teacher's WebSocketHandler.BroadcastLog (SPEC_FULL.md
// Domain Stack).
type AuditSink interface {
	Publish(ctx context.Context, event AuditEvent) error
}
