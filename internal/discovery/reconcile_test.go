package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/netopscore/internal/interfaces"
	"github.com/ternarybob/netopscore/internal/models"
)

type fakeInventory struct {
	devices map[string]interfaces.Device
	nextID  int
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{devices: map[string]interfaces.Device{}}
}

func (f *fakeInventory) FindDevice(ctx context.Context, q interfaces.FindDeviceQuery) (*interfaces.Device, error) {
	for _, d := range f.devices {
		if q.Name != "" && d.Name == q.Name {
			return &d, nil
		}
		if q.IP != "" && d.PrimaryIPv4 == q.IP {
			return &d, nil
		}
	}
	return nil, nil
}

func (f *fakeInventory) CreateDevice(ctx context.Context, spec interfaces.Device) (interfaces.Device, error) {
	f.nextID++
	spec.ID = "dev-" + string(rune('0'+f.nextID))
	f.devices[spec.ID] = spec
	return spec, nil
}

func (f *fakeInventory) UpdateDevice(ctx context.Context, id string, patch map[string]interface{}) (interfaces.Device, error) {
	d := f.devices[id]
	if v, ok := patch["description"].(string); ok {
		d.Description = v
	}
	if v, ok := patch["mac"].(string); ok {
		d.MAC = v
	}
	f.devices[id] = d
	return d, nil
}

func (f *fakeInventory) FindOrCreate(ctx context.Context, entity, key string, spec map[string]interface{}) (string, bool, error) {
	return entity + ":" + key, true, nil
}

func (f *fakeInventory) AssignIP(ctx context.Context, deviceID, interfaceID, ip string) (interfaces.IP, error) {
	return interfaces.IP{ID: "ip-" + deviceID, Address: ip}, nil
}

func (f *fakeInventory) SetPrimaryIPv4(ctx context.Context, deviceID, ipID string) error {
	return nil
}

func (f *fakeInventory) ResolvePrefix(ctx context.Context, prefixID string) (interfaces.Prefix, error) {
	return interfaces.Prefix{}, nil
}

func (f *fakeInventory) ResolveIPRange(ctx context.Context, rangeID string) (interfaces.IPRangeResource, error) {
	return interfaces.IPRangeResource{}, nil
}

func TestStageReconcile_CreatesNewDeviceWhenUnmatched(t *testing.T) {
	inv := newFakeInventory()
	p := &Pipeline{Inventory: inv, Config: DefaultConfig()}

	devices := []models.DiscoveredDevice{{IPAddress: "10.0.0.5", Hostname: "host-a"}}
	report := p.stageReconcile(context.Background(), devices)

	assert.Equal(t, []string{"host-a"}, report.Created)
	assert.Equal(t, 1, report.Totals["created"])
}

func TestStageReconcile_UpdateOnlySkipsUnmatchedDevice(t *testing.T) {
	inv := newFakeInventory()
	cfg := DefaultConfig()
	cfg.Reconcile.SyncMode = models.SyncUpdateOnly
	p := &Pipeline{Inventory: inv, Config: cfg}

	devices := []models.DiscoveredDevice{{IPAddress: "10.0.0.9", Hostname: "host-b"}}
	report := p.stageReconcile(context.Background(), devices)

	assert.Equal(t, []string{"host-b"}, report.Skipped)
	assert.Empty(t, report.Created)
}

func TestStageReconcile_CreateOnlySkipsExistingDevice(t *testing.T) {
	inv := newFakeInventory()
	inv.devices["dev-1"] = interfaces.Device{ID: "dev-1", Name: "host-c"}
	cfg := DefaultConfig()
	cfg.Reconcile.SyncMode = models.SyncCreateOnly
	p := &Pipeline{Inventory: inv, Config: cfg}

	devices := []models.DiscoveredDevice{{IPAddress: "10.0.0.10", Hostname: "host-c"}}
	report := p.stageReconcile(context.Background(), devices)

	assert.Equal(t, []string{"host-c"}, report.Skipped)
	assert.Empty(t, report.Updated)
}

func TestStageReconcile_UpdatesOnlyMissingFields(t *testing.T) {
	inv := newFakeInventory()
	inv.devices["dev-1"] = interfaces.Device{ID: "dev-1", Name: "host-d", Description: "existing"}
	p := &Pipeline{Inventory: inv, Config: DefaultConfig()}

	devices := []models.DiscoveredDevice{{IPAddress: "10.0.0.11", Hostname: "host-d", Description: "new-desc", MACAddress: "aa:bb:cc:dd:ee:ff"}}
	report := p.stageReconcile(context.Background(), devices)

	require.Equal(t, []string{"host-d"}, report.Updated)
	assert.Equal(t, "existing", inv.devices["dev-1"].Description)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", inv.devices["dev-1"].MAC)
}

func TestStageReconcile_NoOpInventoryReturnsEmptyReport(t *testing.T) {
	p := &Pipeline{Config: DefaultConfig()}
	report := p.stageReconcile(context.Background(), []models.DiscoveredDevice{{IPAddress: "10.0.0.1"}})
	assert.Empty(t, report.Created)
	assert.Empty(t, report.Totals)
}

func TestDeriveName_IPOnlyPolicyIgnoresHostname(t *testing.T) {
	device := models.DiscoveredDevice{IPAddress: "10.0.0.1", Hostname: "host-e"}
	assert.Equal(t, "10.0.0.1", deriveName(models.NamingIPOnly, device))
}
