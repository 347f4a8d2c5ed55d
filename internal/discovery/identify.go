package discovery

import (
	"regexp"
	"strings"

	"github.com/ternarybob/netopscore/internal/models"
)

// sysDescrPattern is one entry in the ordered sysDescr identification
// table; first match wins (§4.10 Stage 4).
type sysDescrPattern struct {
	pattern *regexp.Regexp
	vendor  string
	role    string
}

var sysDescrPatterns = []sysDescrPattern{
	{regexp.MustCompile(`(?i)cisco\s+(ios|nx-os|adaptive security)`), "Cisco", "network"},
	{regexp.MustCompile(`(?i)cisco\s+\S+`), "Cisco", "network"},
	{regexp.MustCompile(`(?i)juniper\s+networks`), "Juniper", "network"},
	{regexp.MustCompile(`(?i)junos`), "Juniper", "network"},
	{regexp.MustCompile(`(?i)arista\s+networks\s+eos`), "Arista", "network"},
	{regexp.MustCompile(`(?i)procurve`), "HP", "network"},
	{regexp.MustCompile(`(?i)aruba`), "Aruba", "network"},
	{regexp.MustCompile(`(?i)hpe\s+officeconnect`), "HPE", "network"},
	{regexp.MustCompile(`(?i)dell\s+(emc|networking|powerconnect)`), "Dell", "network"},
	{regexp.MustCompile(`(?i)force10`), "Dell", "network"},
	{regexp.MustCompile(`(?i)ubiquiti`), "Ubiquiti", "network"},
	{regexp.MustCompile(`(?i)edgeos`), "Ubiquiti", "network"},
	{regexp.MustCompile(`(?i)unifi`), "Ubiquiti", "network"},
	{regexp.MustCompile(`(?i)mikrotik|routeros`), "MikroTik", "network"},
	{regexp.MustCompile(`(?i)fortinet|fortigate|fortios`), "Fortinet", "firewall"},
	{regexp.MustCompile(`(?i)palo alto|pan-os`), "Palo Alto Networks", "firewall"},
	{regexp.MustCompile(`(?i)linux\s+\S+\s+\d+\.\d+`), "Linux", "server"},
	{regexp.MustCompile(`(?i)ubuntu`), "Linux", "server"},
	{regexp.MustCompile(`(?i)centos`), "Linux", "server"},
	{regexp.MustCompile(`(?i)red hat|rhel`), "Linux", "server"},
	{regexp.MustCompile(`(?i)debian`), "Linux", "server"},
	{regexp.MustCompile(`(?i)windows`), "Microsoft", "server"},
	{regexp.MustCompile(`(?i)microsoft`), "Microsoft", "server"},
	{regexp.MustCompile(`(?i)vmware\s+esxi?`), "VMware", "server"},
	{regexp.MustCompile(`(?i)ciena|saos`), "Ciena", "network"},
	{regexp.MustCompile(`(?i)axis`), "Axis", "camera"},
	{regexp.MustCompile(`(?i)hikvision|dahua`), "", "camera"},
	{regexp.MustCompile(`(?i)hp jetdirect|laserjet`), "HP", "printer"},
	{regexp.MustCompile(`(?i)synology`), "Synology", "storage"},
	{regexp.MustCompile(`(?i)qnap`), "QNAP", "storage"},
	{regexp.MustCompile(`(?i)netapp`), "NetApp", "storage"},
	{regexp.MustCompile(`(?i)apc\s+web/snmp`), "APC", "pdu"},
	{regexp.MustCompile(`(?i)eaton|tripp`), "", "pdu"},
	{regexp.MustCompile(`(?i)omada`), "TP-Link", "network"},
	{regexp.MustCompile(`(?i)tp-link`), "TP-Link", "network"},
	{regexp.MustCompile(`(?i)proxmox`), "Proxmox", "server"},
	{regexp.MustCompile(`(?i)net-snmp`), "Generic Linux", "server"},
}

var modelSubPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)model[:\s]+(\S+)`),
	regexp.MustCompile(`(?i)(Cisco|Juniper|Arista|HP|Dell)\s+(\S+)`),
	regexp.MustCompile(`(?i)software,\s+(\S+)\s+software`),
}

var versionPattern = regexp.MustCompile(`Version\s+([\w.]+)`)

// roleByPortPriority is the static priority list Fallback 3 walks (§4.10
// Stage 4): network > firewall > server > camera > printer > storage > pdu.
var roleByPortPriority = []struct {
	role  string
	ports []int
}{
	{"network", []int{23, 161}},
	{"firewall", []int{443, 4433}},
	{"server", []int{22, 80, 3306, 5432}},
	{"camera", []int{554, 8000}},
	{"printer", []int{9100, 515, 631}},
	{"storage", []int{2049, 3260}},
	{"pdu", []int{161}},
}

// windowsSignaturePorts is the Fallback 2 port set (§4.10 Stage 4);
// >= 2 open ports from this set implies vendor=Microsoft.
var windowsSignaturePorts = []int{135, 139, 445, 3389, 5985, 5986}

// macOUITable is a small static vendor-by-OUI lookup (§4.10 Stage 4
// Fallback 1). Real deployments load a much larger table from disk; the
// core ships a minimal seed set covering common network-gear vendors.
var macOUITable = map[string]string{
	"00:00:0C": "Cisco",
	"00:01:42": "Cisco",
	"00:1A:A1": "Cisco",
	"00:1B:54": "Cisco",
	"00:1B:0D": "Cisco",
	"00:50:56": "VMware",
	"00:0C:29": "VMware",
	"00:15:5D": "Microsoft Hyper-V",
	"00:1C:42": "Parallels",
	"08:00:27": "VirtualBox",
	"52:54:00": "QEMU/KVM",
	"B8:AC:6F": "Dell",
	"00:14:22": "Dell",
	"18:66:DA": "Dell",
	"00:17:A4": "HP",
	"00:21:5A": "HP",
	"3C:D9:2B": "HP",
	"80:18:44": "Ubiquiti",
	"04:18:D6": "Ubiquiti",
	"F4:5C:89": "Ubiquiti",
	"40:ED:00": "TP-Link",
	"14:CC:20": "TP-Link",
	"B8:27:EB": "Raspberry Pi Foundation",
}

// identify fills in vendor/model/os_version/device_role/hostname on
// device using Stage 4's ordered fallback chain (§4.10).
func identify(device *models.DiscoveredDevice) {
	if device.Description != "" {
		identifyFromSysDescr(device)
	}

	if device.Vendor == "" && device.MACAddress != "" {
		identifyFromMACOUI(device)
	}

	if device.Vendor == "" && isWindowsSignature(device.OpenPorts) {
		device.Vendor = "Microsoft"
	}

	if device.DeviceRole == "" {
		device.DeviceRole = inferRoleFromPorts(device.OpenPorts)
	}

	if device.Hostname == "" && device.DNSName != "" {
		device.Hostname = shortName(device.DNSName)
	}
}

func identifyFromSysDescr(device *models.DiscoveredDevice) {
	for _, p := range sysDescrPatterns {
		if !p.pattern.MatchString(device.Description) {
			continue
		}
		if device.Vendor == "" {
			device.Vendor = p.vendor
		}
		if device.DeviceRole == "" {
			device.DeviceRole = p.role
		}
		break
	}

	for _, re := range modelSubPatterns {
		if m := re.FindStringSubmatch(device.Description); m != nil {
			device.Model = m[len(m)-1]
			break
		}
	}

	if m := versionPattern.FindStringSubmatch(device.Description); m != nil {
		device.OSVersion = m[1]
	}
}

func identifyFromMACOUI(device *models.DiscoveredDevice) {
	oui := strings.ToUpper(device.MACAddress)
	if len(oui) < 8 {
		return
	}
	oui = oui[:8]
	if vendor, ok := macOUITable[oui]; ok {
		device.Vendor = vendor
	}
}

func isWindowsSignature(openPorts []int) bool {
	open := toSet(openPorts)
	count := 0
	for _, p := range windowsSignaturePorts {
		if open[p] {
			count++
		}
	}
	return count >= 2
}

func inferRoleFromPorts(openPorts []int) string {
	open := toSet(openPorts)
	for _, candidate := range roleByPortPriority {
		for _, p := range candidate.ports {
			if open[p] {
				return candidate.role
			}
		}
	}
	return ""
}

func toSet(ports []int) map[int]bool {
	out := make(map[int]bool, len(ports))
	for _, p := range ports {
		out[p] = true
	}
	return out
}

func shortName(dnsName string) string {
	if idx := strings.Index(dnsName, "."); idx != -1 {
		return dnsName[:idx]
	}
	return strings.TrimSuffix(dnsName, ".")
}
