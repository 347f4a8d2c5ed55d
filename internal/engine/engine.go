// Package engine implements the Job Engine (C8, §4.8): it orchestrates a
// JobDefinition's actions over resolved targets, threading a shared
// ExecutionContext, chord fan-out waits, notifications, and audit events.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/netopscore/internal/executor"
	"github.com/ternarybob/netopscore/internal/interfaces"
	"github.com/ternarybob/netopscore/internal/models"
	"github.com/ternarybob/netopscore/internal/targeting"
	"github.com/ternarybob/netopscore/internal/variables"
)

var jobValidator = validator.New()

// RunResult is the outcome of one job run (§4.8 entry point).
type RunResult struct {
	Status        string // "success" | "failure"
	NodeResults   map[string]models.NodeResult
	FailedActions []string
}

// Engine runs JobDefinitions, delegating per-action work to the Action
// Executor and Target Resolver.
type Engine struct {
	Executor   *executor.Executor
	Targeting  *targeting.Resolver
	Broker     interfaces.BrokerPort
	Notifier   interfaces.NotificationDispatcher
	Audit      interfaces.AuditSink
	Logger     arborLogger

	// ChordTimeout/ChordPollEvery bound the chord fan-out wait (§4.8 step 6).
	ChordTimeout   time.Duration
	ChordPollEvery time.Duration

	// MaxParallelTargets bounds how many targets run concurrently per
	// action; 0 selects runtime.NumCPU()*4.
	MaxParallelTargets int
}

// arborLogger is the narrow logging seam the engine needs. Its methods
// return the package-local logEvent type, so github.com/ternarybob/arbor.ILogger
// does not satisfy it without an adapter.
type arborLogger interface {
	Info() logEvent
	Warn() logEvent
	Error() logEvent
}

type logEvent interface {
	Msg(string)
}

func New(exec *executor.Executor, resolver *targeting.Resolver) *Engine {
	return &Engine{
		Executor:       exec,
		Targeting:      resolver,
		ChordTimeout:   600 * time.Second,
		ChordPollEvery: 2 * time.Second,
	}
}

// Run executes job over the targets resolved per action (§4.8 steps 1-8).
func (e *Engine) Run(ctx context.Context, job models.JobDefinition, trigger models.Value) RunResult {
	if err := jobValidator.Struct(job); err != nil {
		return RunResult{Status: "failure", NodeResults: map[string]models.NodeResult{}, FailedActions: []string{err.Error()}}
	}

	execCtx := models.NewExecutionContext(trigger)
	e.publishAudit(ctx, interfaces.AuditEvent{Type: interfaces.AuditJobStarted, JobName: job.Name})

	order := orderedActions(job)
	incoming := incomingEdgesByTarget(job)
	result := RunResult{Status: "success", NodeResults: map[string]models.NodeResult{}}

	// handleSets records, per executed action, the outcome handle set its
	// result satisfied (§4.8 step 4); passThrough records actions skipped
	// for being disabled, which have no observed outcome to gate on and so
	// let traversal continue down every outgoing edge unconditionally.
	handleSets := map[string]map[models.EdgeLabel]bool{}
	passThrough := map[string]bool{}

	for _, action := range order {
		if preds := incoming[action.ID]; len(preds) > 0 && !anyEdgeSatisfied(preds, handleSets, passThrough) {
			continue
		}

		if !action.Enabled {
			passThrough[action.ID] = true
			continue
		}
		if execCtx.Cancelled() {
			break
		}

		e.publishAudit(ctx, interfaces.AuditEvent{
			Type: interfaces.AuditActionStarted, JobName: job.Name, ActionID: action.ID,
		})

		nodeResult := e.runAction(ctx, job, action, execCtx)

		execCtx.PublishActionOutput(action.ID, action.Label, nodeResult)
		result.NodeResults[action.ID] = nodeResult
		handleSets[action.ID] = toHandleSet(outcomeHandles(action, nodeResult))

		e.publishAudit(ctx, interfaces.AuditEvent{
			Type: interfaces.AuditActionCompleted, JobName: job.Name, ActionID: action.ID, Status: nodeResult.Status,
		})

		e.maybeNotify(ctx, action, nodeResult)

		if nodeResult.Status == "failure" {
			result.Status = "failure"
			result.FailedActions = append(result.FailedActions, action.ID)
			if job.ErrorHandling == "abort" {
				break
			}
		}
	}

	e.publishAudit(ctx, interfaces.AuditEvent{Type: interfaces.AuditJobCompleted, JobName: job.Name, Status: result.Status})
	return result
}

// incomingEdgesByTarget groups job.Edges by their To action id, so Run can
// gate a successor's execution on whether any predecessor's observed
// outcome satisfies one of the edges reaching it (§4.8 step 3). Actions
// with no incoming edges (including every action when job.Edges is empty)
// are unconditional start points.
func incomingEdgesByTarget(job models.JobDefinition) map[string][]models.Edge {
	if len(job.Edges) == 0 {
		return nil
	}
	out := make(map[string][]models.Edge, len(job.Edges))
	for _, edge := range job.Edges {
		out[edge.To] = append(out[edge.To], edge)
	}
	return out
}

func toHandleSet(handles []models.EdgeLabel) map[models.EdgeLabel]bool {
	set := make(map[models.EdgeLabel]bool, len(handles))
	for _, h := range handles {
		set[h] = true
	}
	return set
}

// anyEdgeSatisfied reports whether at least one of preds is satisfied: its
// source either passed through unconditionally (disabled) or executed and
// produced an outcome handle set containing the edge's label. A source that
// never executed (not yet reached, or skipped by this same gate) does not
// satisfy its edges.
func anyEdgeSatisfied(preds []models.Edge, handleSets map[string]map[models.EdgeLabel]bool, passThrough map[string]bool) bool {
	for _, edge := range preds {
		if passThrough[edge.From] {
			return true
		}
		if set, ok := handleSets[edge.From]; ok && set[edge.Label] {
			return true
		}
	}
	return false
}

// runAction resolves the action's targets, fans out the executor across
// them with bounded parallelism, and folds per-target results into one
// NodeResult whose output_data carries per-target entries (§4.8 step 4
// generic-success handle set: trigger, results, online, offline, data).
func (e *Engine) runAction(ctx context.Context, job models.JobDefinition, action models.Action, execCtx *models.ExecutionContext) models.NodeResult {
	started := time.Now()
	resolver := variables.NewResolver(execCtx)

	targets, warn := e.Targeting.Resolve(ctx, action.Targeting, execCtx)
	if warn != nil && e.Logger != nil {
		e.Logger.Warn().Msg(fmt.Sprintf("action %s targeting: %s", action.ID, *warn))
	}

	results := e.runOverTargets(ctx, action, targets, resolver)

	anyFailure := false
	online := []models.Value{}
	offline := []models.Value{}
	data := map[string]models.Value{}
	for _, r := range results {
		if r.Status == "failure" {
			anyFailure = true
			offline = append(offline, models.String(r.Target))
		} else {
			online = append(online, models.String(r.Target))
		}
		data[r.Target] = r.OutputData
	}

	status := "success"
	errMsg := ""
	if anyFailure {
		status = "failure"
		errMsg = fmt.Sprintf("%d of %d targets failed", len(offline), len(results))
	}

	outputFields := map[string]models.Value{
		"online":  models.List(online),
		"offline": models.List(offline),
		"data":    models.Map(data),
	}

	if action.Required && len(results) > 0 && e.shouldWaitOnChord(action) {
		chord := e.waitOnChord(ctx, action)
		for k, v := range chord.fields {
			outputFields[k] = v
		}
		if chord.failed {
			status = "failure"
			if errMsg == "" {
				errMsg = chord.errMsg
			} else {
				errMsg = errMsg + "; " + chord.errMsg
			}
		}
	}

	return models.NodeResult{
		Status:     status,
		Error:      errMsg,
		OutputData: models.Map(outputFields),
		StartedAt:  started,
		FinishedAt: time.Now(),
		DurationMs: time.Since(started).Milliseconds(),
	}
}

func (e *Engine) runOverTargets(ctx context.Context, action models.Action, targets []string, resolver *variables.Resolver) []models.ActionResult {
	limit := e.MaxParallelTargets
	if limit <= 0 {
		limit = runtime.NumCPU() * 4
	}
	if limit > len(targets) && len(targets) > 0 {
		limit = len(targets)
	}
	if limit == 0 {
		return nil
	}

	sem := make(chan struct{}, limit)
	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make([]models.ActionResult, 0, len(targets))

	for _, target := range targets {
		sem <- struct{}{}
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			defer func() { <-sem }()
			r := e.Executor.Run(ctx, action, target, resolver)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(target)
	}
	wg.Wait()
	return results
}

// shouldWaitOnChord reports whether action dispatched a fan-out task set
// that requires waiting on a reducer result (§4.8 step 6). The core has
// no built-in chord task type; callers mark this via action.Parameters.
func (e *Engine) shouldWaitOnChord(action models.Action) bool {
	if action.Parameters == nil {
		return false
	}
	v, _ := action.Parameters["chord_task_id"].(string)
	return v != ""
}

// chordOutcome is the folded result of waiting on a chord reducer task
// (§4.8 step 6). fields merge directly into the action's output_data;
// failed (with errMsg set) marks the action's overall status as failure
// regardless of how the per-target fan-out itself resolved (§8 invariant
// 9, scenario S6).
type chordOutcome struct {
	fields map[string]models.Value
	failed bool
	errMsg string
}

// waitOnChord polls the broker for the reducer task's result, bounded by
// ChordTimeout and polled every ChordPollEvery (§4.8 step 6). A successful
// reducer's Result map is folded into fields; a reducer failure or a
// timeout yields failed=true so runAction can flip the node's status.
func (e *Engine) waitOnChord(ctx context.Context, action models.Action) chordOutcome {
	if e.Broker == nil {
		return chordOutcome{}
	}
	taskID, _ := action.Parameters["chord_task_id"].(string)
	if taskID == "" {
		return chordOutcome{}
	}

	deadline := time.Now().Add(e.ChordTimeout)
	ticker := time.NewTicker(e.ChordPollEvery)
	defer ticker.Stop()

	for {
		status, err := e.Broker.Inspect(ctx, taskID)
		if err == nil {
			switch status.State {
			case interfaces.TaskStateSuccess:
				return chordOutcome{fields: foldChordResult(status.Result)}
			case interfaces.TaskStateFailure:
				msg := status.Error
				if msg == "" {
					msg = fmt.Sprintf("chord task %s failed", taskID)
				}
				return chordOutcome{failed: true, errMsg: msg}
			}
		}
		if time.Now().After(deadline) {
			return chordOutcome{
				failed: true,
				errMsg: fmt.Sprintf("chord task %s timed out after %s", taskID, e.ChordTimeout),
			}
		}
		select {
		case <-ctx.Done():
			return chordOutcome{failed: true, errMsg: ctx.Err().Error()}
		case <-ticker.C:
		}
	}
}

// foldChordResult converts a reducer's raw result map into Value fields
// merged into the action's output_data (§4.8 step 6).
func foldChordResult(result map[string]interface{}) map[string]models.Value {
	if len(result) == 0 {
		return nil
	}
	out := make(map[string]models.Value, len(result))
	for k, v := range result {
		out[k] = models.FromNative(v)
	}
	return out
}

func (e *Engine) maybeNotify(ctx context.Context, action models.Action, result models.NodeResult) {
	if e.Notifier == nil || !action.Notifications.Enabled {
		return
	}
	if result.Status == "success" && !action.Notifications.OnSuccess {
		return
	}
	if result.Status == "failure" && !action.Notifications.OnFailure {
		return
	}
	event := interfaces.NotificationEvent{
		Title:   fmt.Sprintf("%s: %s", action.ID, result.Status),
		Body:    result.Error,
		Tag:     action.ID,
		Targets: action.Notifications.Targets,
	}
	// Delivery failures never affect job status (§4.8 step 7).
	_ = e.Notifier.Dispatch(ctx, event)
}

func (e *Engine) publishAudit(ctx context.Context, event interfaces.AuditEvent) {
	if e.Audit == nil {
		return
	}
	if err := e.Audit.Publish(ctx, event); err != nil && e.Logger != nil {
		e.Logger.Error().Msg(fmt.Sprintf("audit publish failed: %v", err))
	}
}
