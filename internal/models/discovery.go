package models

import "time"

// DiscoveredDevice is the pipeline output per live host (§3
// DiscoveredDevice).
type DiscoveredDevice struct {
	IPAddress   string   `json:"ip_address"`
	DNSName     string   `json:"dns_name,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	MACAddress  string   `json:"mac_address,omitempty"`
	Vendor      string   `json:"vendor,omitempty"`
	Model       string   `json:"model,omitempty"`
	OSVersion   string   `json:"os_version,omitempty"`
	Serial      string   `json:"serial,omitempty"`
	DeviceRole  string   `json:"device_role,omitempty"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Contact     string   `json:"contact,omitempty"`
	Uptime      string   `json:"uptime,omitempty"`
	OpenPorts   []int    `json:"open_ports,omitempty"`
	Services    []string `json:"services,omitempty"`
	Interfaces  []DiscoveredInterface `json:"interfaces,omitempty"`
	SNMPSuccess bool     `json:"snmp_success"`
}

// DiscoveredInterface is one interface row attached to a DiscoveredDevice.
// The discovery pipeline does not fill it in; DiscoveredDevice.Interfaces
// stays empty on the devices it produces.
type DiscoveredInterface struct {
	Index    int    `json:"index"`
	Name     string `json:"name,omitempty"`
	Status   string `json:"status,omitempty"` // "up" | "down"
	Speed    string `json:"speed,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Neighbor string `json:"neighbor,omitempty"`
}

// DiscoveryStatusType describes the current state of a discovery run,
// grounded on the carverauto-serviceradar mapper package's
// DiscoveryStatusType.
type DiscoveryStatusType string

const (
	DiscoveryPending   DiscoveryStatusType = "pending"
	DiscoveryRunning   DiscoveryStatusType = "running"
	DiscoveryCompleted DiscoveryStatusType = "completed"
	DiscoveryFailed    DiscoveryStatusType = "failed"
	DiscoveryCanceled  DiscoveryStatusType = "canceled"
)

// DiscoveryRun tracks one invocation of the five-stage pipeline (§4.10)
// as a first-class, queryable object rather than a fire-and-forget call.
type DiscoveryRun struct {
	ID        string
	Status    DiscoveryStatusType
	Progress  float64 // 0-100; set to 100 when the pipeline finishes, not updated between stages
	StartedAt time.Time
	EndedAt   *time.Time
	Error     string
}

// SyncMode controls Discovery Stage 5 reconciliation behavior (§4.10
// Stage 5).
type SyncMode string

const (
	SyncCreateOnly   SyncMode = "create_only"
	SyncUpdateOnly   SyncMode = "update_only"
	SyncCreateUpdate SyncMode = "create_update"
)

// DeviceNaming selects how Stage 5 derives the device name it reconciles
// against Inventory (§4.10 Stage 5 step 1).
type DeviceNaming string

const (
	NamingHostnameOrIP DeviceNaming = "hostname_or_ip"
	NamingHostnameOnly DeviceNaming = "hostname_only"
	NamingIPOnly       DeviceNaming = "ip_only"
	NamingPrefixIP     DeviceNaming = "prefix_ip"
	NamingDNSReverse   DeviceNaming = "dns_reverse"
)

// MatchBy selects the field Stage 5 uses to find an existing Inventory
// device (§4.10 Stage 5 step 2).
type MatchBy string

const (
	MatchByIP       MatchBy = "ip"
	MatchByName     MatchBy = "name"
	MatchByIPOrName MatchBy = "ip_or_name"
	MatchByMAC      MatchBy = "mac"
	MatchBySerial   MatchBy = "serial"
)

// ReconcileConfig bundles the Stage 5 tunables.
type ReconcileConfig struct {
	SyncMode        SyncMode
	DeviceNaming    DeviceNaming
	MatchBy         MatchBy
	AutoCreateTypes bool
	AutoCreateRoles bool
	AutoCreateMfr   bool
	DefaultMfrID    string
	DefaultTypeID   string
	DefaultRoleID   string
	ManagementIface string // name to find-or-create, e.g. "mgmt0"
	PrefixLength    int    // used to build primary IPv4 with a mask, e.g. 24
}

// ReconcileReport is the output of Discovery Stage 5 (§4.10 Stage 5
// Output).
type ReconcileReport struct {
	Created []string
	Updated []string
	Skipped []string
	Failed  []string
	Errors  []string
	Totals  map[string]int
	DurationSeconds float64
}

// DiscoveryReport is the full pipeline output (§4.10 Output) wrapping
// per-stage results.
type DiscoveryReport struct {
	Run       DiscoveryRun
	Targets   []string
	Live      []string
	Devices   []DiscoveredDevice
	Reconcile ReconcileReport
}
