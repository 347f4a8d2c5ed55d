package models

import (
	"sync"
	"time"
)

// NodeResult is the per-action record published into ExecutionContext
// after each action completes (§3 ExecutionContext.node_results).
type NodeResult struct {
	Status     string    `json:"status"` // "success" | "failure"
	OutputData Value     `json:"output_data"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`
}

// TargetContext is per-target scratch state accumulated by the Action
// Executor while running one action against one IP (§3
// ExecutionContext.target_context).
type TargetContext struct {
	IP         string
	ParsedData Value
	// Stores holds named result sets such as "interfaces", "port_status",
	// "lldp_neighbors" used by foreach steps and post-processing merges
	// (§4.7 steps 4-5).
	Stores map[string][]map[string]interface{}
}

func NewTargetContext(ip string) *TargetContext {
	return &TargetContext{IP: ip, Stores: make(map[string][]map[string]interface{})}
}

// ExecutionContext is the per-run in-memory state threaded through a job
// run (§3 ExecutionContext). It is owned by the worker for the duration
// of exactly one job run and dropped on completion (§2 Ownership).
type ExecutionContext struct {
	mu sync.RWMutex

	Trigger     Value
	variables   map[string]Value
	nodeResults map[string]NodeResult

	// cancelled is checked between actions and, where practical, between
	// per-target iterations (§5 Cancellation).
	cancelled bool
}

func NewExecutionContext(trigger Value) *ExecutionContext {
	return &ExecutionContext{
		Trigger:     trigger,
		variables:   map[string]Value{"trigger": trigger},
		nodeResults: make(map[string]NodeResult),
	}
}

// SetVariable stores a value under a variable-resolver path root.
func (c *ExecutionContext) SetVariable(key string, v Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[key] = v
}

// Variable returns the value stored under key, or Null with false if
// absent. The Variable Resolver never raises on a miss (§4.6) — callers
// should treat a false ok the same as KindNull.
func (c *ExecutionContext) Variable(key string) (Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[key]
	return v, ok
}

// Variables returns a snapshot copy of the full variable map, used by the
// Variable Resolver to walk paths.
func (c *ExecutionContext) Variables() map[string]Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Value, len(c.variables))
	for k, v := range c.variables {
		out[k] = v
	}
	return out
}

// PublishActionOutput records an action's result under its id, label, and
// the "results" alias (§4.8 step 5), and stores the NodeResult.
func (c *ExecutionContext) PublishActionOutput(actionID, label string, result NodeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodeResults[actionID] = result
	c.variables[actionID] = result.OutputData
	if label != "" {
		c.variables[label] = result.OutputData
	}
	results, ok := c.variables["results"].Map()
	if !ok {
		results = make(map[string]Value)
	}
	results[actionID] = result.OutputData
	c.variables["results"] = Map(results)
}

// NodeResultByID returns the recorded result for an action id.
func (c *ExecutionContext) NodeResultByID(actionID string) (NodeResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.nodeResults[actionID]
	return r, ok
}

// NodeResults returns a snapshot copy of all recorded node results.
func (c *ExecutionContext) NodeResults() map[string]NodeResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]NodeResult, len(c.nodeResults))
	for k, v := range c.nodeResults {
		out[k] = v
	}
	return out
}

// Cancel sets the cooperative cancellation flag (§5 Cancellation).
func (c *ExecutionContext) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
}

// Cancelled reports whether Cancel has been called.
func (c *ExecutionContext) Cancelled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cancelled
}

// ActionResult is the outcome of running one Action against one target,
// returned by the Action Executor (§4.7).
type ActionResult struct {
	ActionID   string
	Target     string
	Status     string // "success" | "failure"
	OutputData Value
	Error      string
	DurationMs int64
}
