package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/netopscore/internal/interfaces"
	"github.com/ternarybob/netopscore/internal/models"
)

type fakePingAdapter struct {
	reachable bool
}

func (f *fakePingAdapter) Ping(ctx context.Context, ip string, count int, timeout time.Duration) (interfaces.PingResult, error) {
	return interfaces.PingResult{Reachable: f.reachable}, nil
}

func TestRun_PingSuccess(t *testing.T) {
	ex := New(interfaces.ProbeSet{Ping: &fakePingAdapter{reachable: true}}, nil)
	action := models.Action{
		ID:      "ping1",
		Type:    models.ActionKindPing,
		Enabled: true,
	}
	result := ex.Run(context.Background(), action, "10.0.0.1", nil)
	assert.Equal(t, "success", result.Status)
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))
}

func TestRun_MissingExecutorIsNoOpUnlessRequired(t *testing.T) {
	ex := New(interfaces.ProbeSet{}, nil)
	action := models.Action{ID: "custom1", Type: models.ActionKindCustom, Enabled: true}
	result := ex.Run(context.Background(), action, "10.0.0.1", nil)
	assert.Equal(t, "success", result.Status)

	action.Required = true
	result = ex.Run(context.Background(), action, "10.0.0.1", nil)
	assert.Equal(t, "failure", result.Status)
}

func TestMergeInterfaces_PortStatusAndLLDPPrecedence(t *testing.T) {
	tctx := models.NewTargetContext("10.0.0.1")
	tctx.Stores["port_status"] = []map[string]interface{}{
		{"port": "1", "oper_link": "down", "mode": "1000M", "port_type": "copper"},
	}
	tctx.Stores["lldp_neighbors"] = []map[string]interface{}{
		{"port": "1", "neighbor_id": "switch-core", "neighbor_port": "Gi0/1"},
	}

	mergeInterfaces(tctx)

	require.Len(t, tctx.Stores["interfaces"], 1)
	iface := tctx.Stores["interfaces"][0]
	assert.Equal(t, "up", iface["status"]) // LLDP neighbor promotes to up
	assert.Equal(t, "1000M", iface["speed"])
	assert.Equal(t, "RJ45", iface["medium"])
	assert.Equal(t, "switch-core", iface["lldp_neighbor"])
}

func TestMatchesFilter_HasPowerReading(t *testing.T) {
	withPower := map[string]interface{}{"tx": -5.2, "rx": nil, "temperature": nil}
	withoutPower := map[string]interface{}{"tx": nil, "rx": nil, "temperature": nil}

	assert.True(t, matchesFilter(withPower, map[string]interface{}{"has_power_reading": true}))
	assert.False(t, matchesFilter(withoutPower, map[string]interface{}{"has_power_reading": true}))
}

func TestApplyParser_RegexFirstMatchWins(t *testing.T) {
	parser := models.Parser{
		Kind: models.ParserKindRegex,
		Patterns: []string{
			`vendor: (?P<vendor>\w+)`,
		},
	}
	v := applyParser(parser, "vendor: Cisco")
	m, ok := v.Map()
	require.True(t, ok)
	s, _ := m["vendor"].String()
	assert.Equal(t, "Cisco", s)
}

func TestApplyParser_MissingParserLeavesEmpty(t *testing.T) {
	v := applyParser(models.Parser{}, "some output")
	assert.True(t, v.IsNull())
}
