package targeting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/netopscore/internal/models"
)

func TestExpandCIDR_ExcludesNetworkAndBroadcast(t *testing.T) {
	ips, err := ExpandCIDR("10.0.0.0/29")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"10.0.0.1", "10.0.0.2", "10.0.0.3",
		"10.0.0.4", "10.0.0.5", "10.0.0.6",
	}, ips)
}

func TestExpandCIDR_SlashThirtyOneYieldsBothAddresses(t *testing.T) {
	ips, err := ExpandCIDR("10.0.0.0/31")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0", "10.0.0.1"}, ips)
}

func TestExpandCIDR_SlashThirtyTwoYieldsOneAddress(t *testing.T) {
	ips, err := ExpandCIDR("10.0.0.5/32")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.5"}, ips)
}

func TestExpandIPRange_Inclusive(t *testing.T) {
	ips, err := ExpandIPRange("10.0.0.1", "10.0.0.4")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}, ips)
}

func TestResolve_StaticListDedupesPreservingOrder(t *testing.T) {
	r := NewResolver(nil)
	ips, warn := r.Resolve(context.Background(), models.Targeting{
		Kind: models.TargetingStaticList,
		IPs:  []string{"10.0.0.1", "10.0.0.2", "10.0.0.1"},
	}, nil)
	assert.Nil(t, warn)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, ips)
}

func TestResolve_PreviousResultMissingFieldIsEmptyNotError(t *testing.T) {
	r := NewResolver(nil)
	execCtx := models.NewExecutionContext(models.Null())
	ips, warn := r.Resolve(context.Background(), models.Targeting{
		Kind:  models.TargetingPreviousResult,
		Field: "nonexistent",
	}, execCtx)
	assert.Nil(t, warn)
	assert.Empty(t, ips)
}

func TestResolve_NetworkRangeAppliesExclusions(t *testing.T) {
	r := NewResolver(nil)
	ips, warn := r.Resolve(context.Background(), models.Targeting{
		Kind:    models.TargetingNetworkRange,
		CIDR:    "10.0.0.0/29",
		Exclude: []string{"10.0.0.3"},
	}, nil)
	assert.Nil(t, warn)
	assert.NotContains(t, ips, "10.0.0.3")
	assert.Len(t, ips, 5)
}
