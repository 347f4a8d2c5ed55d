package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/netopscore/internal/executor"
	"github.com/ternarybob/netopscore/internal/interfaces"
	"github.com/ternarybob/netopscore/internal/models"
	"github.com/ternarybob/netopscore/internal/targeting"
)

type fakePing struct{ reachable bool }

func (f *fakePing) Ping(ctx context.Context, ip string, count int, timeout time.Duration) (interfaces.PingResult, error) {
	return interfaces.PingResult{Reachable: f.reachable}, nil
}

// fakeBroker reports a fixed, pre-canned status for every Inspect call,
// regardless of taskID, so chord-wait tests can force a deterministic
// success, failure, or perpetual-running (timeout) path.
type fakeBroker struct {
	status interfaces.TaskStatus
}

func (f *fakeBroker) SendTask(ctx context.Context, taskName string, args map[string]interface{}) (string, error) {
	return "task-1", nil
}

func (f *fakeBroker) Inspect(ctx context.Context, taskID string) (interfaces.TaskStatus, error) {
	return f.status, nil
}

func (f *fakeBroker) Cancel(ctx context.Context, taskID string) error { return nil }

func TestRun_AllTargetsSucceedYieldsSuccessStatus(t *testing.T) {
	ex := executor.New(interfaces.ProbeSet{Ping: &fakePing{reachable: true}}, nil)
	resolver := targeting.NewResolver(nil)
	eng := New(ex, resolver)

	job := models.JobDefinition{
		ID:   "job-health-check",
		Name: "health-check",
		Actions: []models.Action{
			{
				ID:      "ping1",
				Type:    models.ActionKindPing,
				Enabled: true,
				Targeting: models.Targeting{
					Kind: models.TargetingStaticList,
					IPs:  []string{"10.0.0.1", "10.0.0.2"},
				},
			},
		},
	}

	result := eng.Run(context.Background(), job, models.Null())
	assert.Equal(t, "success", result.Status)
	require.Contains(t, result.NodeResults, "ping1")
}

func TestRun_DisabledActionsAreSkipped(t *testing.T) {
	ex := executor.New(interfaces.ProbeSet{Ping: &fakePing{reachable: true}}, nil)
	resolver := targeting.NewResolver(nil)
	eng := New(ex, resolver)

	job := models.JobDefinition{
		ID:   "job-skip-disabled",
		Name: "skip-disabled",
		Actions: []models.Action{
			{ID: "a1", Type: models.ActionKindPing, Enabled: false},
		},
	}

	result := eng.Run(context.Background(), job, models.Null())
	assert.Equal(t, "success", result.Status)
	assert.NotContains(t, result.NodeResults, "a1")
}

func TestRun_RejectsJobDefinitionMissingRequiredFields(t *testing.T) {
	ex := executor.New(interfaces.ProbeSet{Ping: &fakePing{reachable: true}}, nil)
	resolver := targeting.NewResolver(nil)
	eng := New(ex, resolver)

	job := models.JobDefinition{Name: "missing-id-and-actions"}

	result := eng.Run(context.Background(), job, models.Null())
	assert.Equal(t, "failure", result.Status)
	assert.Empty(t, result.NodeResults)
}

func TestRun_EdgeTraversalGatesOnOutcomeHandles(t *testing.T) {
	ex := executor.New(interfaces.ProbeSet{Ping: &fakePing{reachable: true}}, nil)
	resolver := targeting.NewResolver(nil)
	eng := New(ex, resolver)

	job := models.JobDefinition{
		ID:   "job-branching",
		Name: "branching",
		Actions: []models.Action{
			// "check" has no targets, so its output_data carries only the
			// empty online/offline/data entries and no condition_result;
			// outcomeHandles therefore resolves to the "false" handle.
			{ID: "check", Type: models.ActionKindCustom, CustomType: "logic:if", Enabled: true},
			{
				ID: "onTrue", Type: models.ActionKindPing, Enabled: true,
				Targeting: models.Targeting{Kind: models.TargetingStaticList, IPs: []string{"10.0.0.1"}},
			},
			{
				ID: "onFalse", Type: models.ActionKindPing, Enabled: true,
				Targeting: models.Targeting{Kind: models.TargetingStaticList, IPs: []string{"10.0.0.1"}},
			},
		},
		Edges: []models.Edge{
			{From: "check", To: "onTrue", Label: models.EdgeTrue},
			{From: "check", To: "onFalse", Label: models.EdgeFalse},
		},
	}

	result := eng.Run(context.Background(), job, models.Null())
	assert.Contains(t, result.NodeResults, "check")
	assert.NotContains(t, result.NodeResults, "onTrue")
	assert.Contains(t, result.NodeResults, "onFalse")
}

func TestRun_ChordSuccessFoldsReducerResultIntoOutputData(t *testing.T) {
	ex := executor.New(interfaces.ProbeSet{Ping: &fakePing{reachable: true}}, nil)
	resolver := targeting.NewResolver(nil)
	eng := New(ex, resolver)
	eng.Broker = &fakeBroker{status: interfaces.TaskStatus{
		State:  interfaces.TaskStateSuccess,
		Result: map[string]interface{}{"discovered_devices": float64(12)},
	}}

	job := models.JobDefinition{
		ID:   "job-chord-success",
		Name: "chord-success",
		Actions: []models.Action{
			{
				ID: "discover", Type: models.ActionKindPing, Enabled: true, Required: true,
				Targeting:  models.Targeting{Kind: models.TargetingStaticList, IPs: []string{"10.0.0.1"}},
				Parameters: map[string]interface{}{"chord_task_id": "chord-1"},
			},
		},
	}

	result := eng.Run(context.Background(), job, models.Null())
	assert.Equal(t, "success", result.Status)
	nodeResult := result.NodeResults["discover"]
	m, ok := nodeResult.OutputData.Map()
	require.True(t, ok)
	n, ok := m["discovered_devices"].Number()
	require.True(t, ok)
	assert.Equal(t, float64(12), n)
}

func TestRun_ChordTimeoutMarksActionAsFailure(t *testing.T) {
	ex := executor.New(interfaces.ProbeSet{Ping: &fakePing{reachable: true}}, nil)
	resolver := targeting.NewResolver(nil)
	eng := New(ex, resolver)
	eng.Broker = &fakeBroker{status: interfaces.TaskStatus{State: interfaces.TaskStateRunning}}
	eng.ChordTimeout = 20 * time.Millisecond
	eng.ChordPollEvery = 5 * time.Millisecond

	job := models.JobDefinition{
		ID:   "job-chord-timeout",
		Name: "chord-timeout",
		Actions: []models.Action{
			{
				ID: "discover", Type: models.ActionKindPing, Enabled: true, Required: true,
				Targeting:  models.Targeting{Kind: models.TargetingStaticList, IPs: []string{"10.0.0.1"}},
				Parameters: map[string]interface{}{"chord_task_id": "chord-1"},
			},
		},
	}

	result := eng.Run(context.Background(), job, models.Null())
	assert.Equal(t, "failure", result.Status)
	nodeResult := result.NodeResults["discover"]
	assert.Equal(t, "failure", nodeResult.Status)
	assert.Contains(t, nodeResult.Error, "timed out")
}

func TestOrderedActions_FallsBackToDefinitionOrderWithNoEdges(t *testing.T) {
	job := models.JobDefinition{
		Actions: []models.Action{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	}
	order := orderedActions(job)
	require.Len(t, order, 3)
	assert.Equal(t, "a", order[0].ID)
	assert.Equal(t, "c", order[2].ID)
}

func TestOrderedActions_RespectsEdgeDirection(t *testing.T) {
	job := models.JobDefinition{
		Actions: []models.Action{{ID: "b"}, {ID: "a"}},
		Edges:   []models.Edge{{From: "a", To: "b", Label: models.EdgeSuccess}},
	}
	order := orderedActions(job)
	require.Len(t, order, 2)
	assert.Equal(t, "a", order[0].ID)
	assert.Equal(t, "b", order[1].ID)
}

func TestOutcomeHandles_LogicIf(t *testing.T) {
	action := models.Action{CustomType: "logic:if"}
	result := models.NodeResult{OutputData: models.Map(map[string]models.Value{
		"condition_result": models.Bool(true),
	})}
	handles := outcomeHandles(action, result)
	assert.Contains(t, handles, models.EdgeTrue)
}
