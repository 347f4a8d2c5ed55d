package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/netopscore/internal/models"
)

func TestIdentify_SysDescrMatchSetsVendorRoleModelVersion(t *testing.T) {
	device := models.DiscoveredDevice{
		Description: "Cisco IOS Software, Model: C9300 Software, Version 17.3.4",
	}
	identify(&device)

	assert.Equal(t, "Cisco", device.Vendor)
	assert.Equal(t, "network", device.DeviceRole)
	assert.Equal(t, "C9300", device.Model)
	assert.Equal(t, "17.3.4", device.OSVersion)
}

func TestIdentify_MACOUIFallbackWhenNoSysDescr(t *testing.T) {
	device := models.DiscoveredDevice{MACAddress: "00:1b:0d:aa:bb:cc"}
	identify(&device)
	assert.Equal(t, "Cisco", device.Vendor)
}

func TestIdentify_WindowsPortSignatureFallback(t *testing.T) {
	device := models.DiscoveredDevice{OpenPorts: []int{135, 445, 3389}}
	identify(&device)
	assert.Equal(t, "Microsoft", device.Vendor)
}

func TestIdentify_SinglePortIsNotEnoughForWindowsSignature(t *testing.T) {
	device := models.DiscoveredDevice{OpenPorts: []int{445}}
	identify(&device)
	assert.Empty(t, device.Vendor)
}

func TestIdentify_RoleInferredFromOpenPortsPriorityOrder(t *testing.T) {
	device := models.DiscoveredDevice{OpenPorts: []int{9100, 22}}
	identify(&device)
	assert.Equal(t, "server", device.DeviceRole)
}

func TestIdentify_HostnameFallsBackToDNSShortName(t *testing.T) {
	device := models.DiscoveredDevice{DNSName: "switch-core.lab.internal"}
	identify(&device)
	assert.Equal(t, "switch-core", device.Hostname)
}

func TestIdentify_SNMPHostnameIsNotOverwrittenByDNS(t *testing.T) {
	device := models.DiscoveredDevice{Hostname: "switch-core-snmp", DNSName: "other-name.lab.internal"}
	identify(&device)
	assert.Equal(t, "switch-core-snmp", device.Hostname)
}
