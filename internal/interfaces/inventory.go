package interfaces

import "context"

// Device is the Inventory Port's resource-oriented device record (§4.3).
type Device struct {
	ID           string
	Name         string
	PrimaryIPv4  string
	MAC          string
	Serial       string
	Description  string
	ManufacturerID string
	DeviceTypeID string
	DeviceRoleID string
	Tags         []string
}

// IP is an Inventory-managed IP address record.
type IP struct {
	ID      string
	Address string // CIDR form, e.g. "10.1.1.10/24"
}

// Interface is an Inventory-managed device interface.
type Interface struct {
	ID       string
	DeviceID string
	Name     string
}

// Prefix/IPRange describe IPAM resources resolved by InventoryPrefix /
// InventoryIpRange targeting (§3 Targeting).
type Prefix struct {
	ID   string
	CIDR string
}

type IPRangeResource struct {
	ID    string
	Start string
	End   string
}

// FindDeviceQuery narrows FindDevice lookups; exactly one field is
// typically populated per the Stage 5 MatchBy policy (§4.10 Stage 5).
type FindDeviceQuery struct {
	Name   string
	IP     string
	MAC    string
	Serial string
}

// InventoryPort is the resource-oriented CRUD surface with idempotent
// find-or-create semantics (§4.3). Reconciliation relies on FindOrCreate
// being serializable from the caller's perspective even under concurrent
// invocation.
type InventoryPort interface {
	FindDevice(ctx context.Context, q FindDeviceQuery) (*Device, error)
	CreateDevice(ctx context.Context, spec Device) (Device, error)
	UpdateDevice(ctx context.Context, id string, patch map[string]interface{}) (Device, error)

	// FindOrCreate resolves entity kinds used by Stage 5 reconciliation:
	// "manufacturer", "device_type", "device_role", "tag", "interface",
	// "ip_address". key is the natural key (name, CIDR, etc.); spec
	// carries creation fields when a create is needed.
	FindOrCreate(ctx context.Context, entity, key string, spec map[string]interface{}) (id string, created bool, err error)

	AssignIP(ctx context.Context, deviceID, interfaceID, ip string) (IP, error)
	SetPrimaryIPv4(ctx context.Context, deviceID, ipID string) error

	ResolvePrefix(ctx context.Context, prefixID string) (Prefix, error)
	ResolveIPRange(ctx context.Context, rangeID string) (IPRangeResource, error)
}
