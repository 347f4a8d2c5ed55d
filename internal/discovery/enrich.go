package discovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/netopscore/internal/models"
)

// stageEnrichAndIdentify runs Stage 3 (host enrichment) and Stage 4
// (identification) together per host, at the same bounded concurrency as
// Stage 2 (§4.10).
func (p *Pipeline) stageEnrichAndIdentify(ctx context.Context, live []string) []models.DiscoveredDevice {
	if len(live) == 0 {
		return nil
	}

	limit := stageConcurrency(len(live))
	sem := make(chan struct{}, limit)
	var mu sync.Mutex
	var wg sync.WaitGroup
	devices := make([]models.DiscoveredDevice, 0, len(live))

	for _, ip := range live {
		sem <- struct{}{}
		wg.Add(1)
		go func(ip string) {
			defer wg.Done()
			defer func() { <-sem }()
			device := p.enrichHost(ctx, ip)
			identify(&device)
			mu.Lock()
			devices = append(devices, device)
			mu.Unlock()
		}(ip)
	}
	wg.Wait()
	return devices
}

// enrichHost implements Stage 3 (§4.10): reverse DNS, MAC lookup, port
// scan, and SNMP fingerprint, each best-effort.
func (p *Pipeline) enrichHost(ctx context.Context, ip string) models.DiscoveredDevice {
	device := models.DiscoveredDevice{IPAddress: ip}

	if p.Config.EnableReverseDNS && p.Probes.DNS != nil {
		if name, err := p.Probes.DNS.ReverseDNS(ctx, ip); err == nil {
			device.DNSName = name
		}
	}

	if p.Probes.MAC != nil {
		if mac, err := p.Probes.MAC.Lookup(ctx, ip); err == nil {
			device.MACAddress = mac
		}
	}

	device.OpenPorts = p.scanPorts(ctx, ip)

	p.snmpFingerprint(ctx, ip, &device)

	return device
}

// scanPorts probes each configured port concurrently (§4.10 Stage 3: "one
// socket per port").
func (p *Pipeline) scanPorts(ctx context.Context, ip string) []int {
	if p.Probes.TCP == nil || len(p.Config.PortScanPorts) == 0 {
		return nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var open []int

	for _, port := range p.Config.PortScanPorts {
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			result, err := p.Probes.TCP.TCPProbe(ctx, ip, port, p.Config.PortScanTimeout)
			if err == nil && result.Open {
				mu.Lock()
				open = append(open, port)
				mu.Unlock()
			}
		}(port)
	}
	wg.Wait()
	return open
}

// snmpFingerprint tries each configured community string in order,
// issuing the six MIB-II system OIDs in parallel for each; the first
// community with any non-null response wins (§4.10 Stage 3).
func (p *Pipeline) snmpFingerprint(ctx context.Context, ip string, device *models.DiscoveredDevice) {
	if p.Probes.SNMP == nil {
		return
	}

	oids := map[string]string{
		"sysDescr":    "1.3.6.1.2.1.1.1.0",
		"sysObjectID": "1.3.6.1.2.1.1.2.0",
		"sysUpTime":   "1.3.6.1.2.1.1.3.0",
		"sysContact":  "1.3.6.1.2.1.1.4.0",
		"sysName":     "1.3.6.1.2.1.1.5.0",
		"sysLocation": "1.3.6.1.2.1.1.6.0",
	}

	for _, community := range p.Config.SNMPCommunities {
		values := p.snmpGetAll(ctx, ip, community, oids)
		if len(values) == 0 {
			continue
		}
		device.SNMPSuccess = true
		device.Description = fmt.Sprintf("%v", values["sysDescr"])
		device.Hostname = fmt.Sprintf("%v", values["sysName"])
		device.Contact = fmt.Sprintf("%v", values["sysContact"])
		device.Location = fmt.Sprintf("%v", values["sysLocation"])
		if uptime, ok := values["sysUpTime"]; ok {
			device.Uptime = fmt.Sprintf("%v", uptime)
		}
		return
	}
}

func (p *Pipeline) snmpGetAll(ctx context.Context, ip, community string, oids map[string]string) map[string]interface{} {
	var mu sync.Mutex
	var wg sync.WaitGroup
	out := make(map[string]interface{})

	for name, oid := range oids {
		wg.Add(1)
		go func(name, oid string) {
			defer wg.Done()
			val, err := p.Probes.SNMP.Get(ctx, ip, community, oid, p.Config.SNMPTimeout)
			if err == nil && val != nil {
				mu.Lock()
				out[name] = val
				mu.Unlock()
			}
		}(name, oid)
	}
	wg.Wait()
	return out
}
