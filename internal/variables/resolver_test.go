package variables

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/netopscore/internal/models"
)

func fixedNow() time.Time {
	return time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
}

func TestResolve_WholeStringSingleReferenceReturnsNativeType(t *testing.T) {
	execCtx := models.NewExecutionContext(models.Null())
	execCtx.SetVariable("count", models.Int(42))
	r := NewResolver(execCtx)

	v := r.Resolve("{{count}}")
	n, ok := v.Number()
	assert.True(t, ok)
	assert.Equal(t, float64(42), n)
}

func TestResolve_EmbeddedReferenceStringifies(t *testing.T) {
	execCtx := models.NewExecutionContext(models.Null())
	execCtx.SetVariable("count", models.Int(42))
	r := NewResolver(execCtx)

	v := r.Resolve("total: {{count}} items")
	s, ok := v.String()
	assert.True(t, ok)
	assert.Equal(t, "total: 42 items", s)
}

func TestResolve_MissingPathIsNull(t *testing.T) {
	execCtx := models.NewExecutionContext(models.Null())
	r := NewResolver(execCtx)

	v := r.Resolve("{{nope.missing}}")
	assert.True(t, v.IsNull())
}

func TestResolve_NowAndToday(t *testing.T) {
	r := &Resolver{Now: fixedNow}
	assert.Equal(t, "2026-07-30T12:00:00Z", r.Resolve("{{$now}}").AsString())
	assert.Equal(t, "2026-07-30", r.Resolve("{{$today}}").AsString())
}

func TestResolve_NodeOutputDataPath(t *testing.T) {
	execCtx := models.NewExecutionContext(models.Null())
	execCtx.PublishActionOutput("ping1", "", models.NodeResult{
		Status: "success",
		OutputData: models.Map(map[string]models.Value{
			"reachable": models.Bool(true),
		}),
	})
	r := NewResolver(execCtx)

	v := r.Resolve("{{$node.ping1.output_data.reachable}}")
	b, ok := v.Bool()
	assert.True(t, ok)
	assert.True(t, b)
}

func TestResolve_ListIndexTraversal(t *testing.T) {
	execCtx := models.NewExecutionContext(models.Null())
	execCtx.SetVariable("hosts", models.List([]models.Value{
		models.String("10.0.0.1"), models.String("10.0.0.2"),
	}))
	r := NewResolver(execCtx)

	v := r.Resolve("{{hosts[1]}}")
	s, ok := v.String()
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.2", s)
}

func TestResolve_QuotedBracketIndexStripsQuotes(t *testing.T) {
	execCtx := models.NewExecutionContext(models.Null())
	execCtx.SetVariable("device", models.Map(map[string]models.Value{
		"key": models.String("switch-core"),
	}))
	r := NewResolver(execCtx)

	v := r.Resolve(`{{device["key"]}}`)
	s, ok := v.String()
	assert.True(t, ok)
	assert.Equal(t, "switch-core", s)

	v = r.Resolve(`{{device['key']}}`)
	s, ok = v.String()
	assert.True(t, ok)
	assert.Equal(t, "switch-core", s)
}
