package discovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/netopscore/internal/interfaces"
	"github.com/ternarybob/netopscore/internal/models"
)

// stageReconcile is Stage 5 (§4.10): derive a name per DeviceNaming, match
// an existing Inventory device per MatchBy, and create/update it per
// SyncMode. Each device is reconciled independently and a failure on one
// never aborts the rest.
func (p *Pipeline) stageReconcile(ctx context.Context, devices []models.DiscoveredDevice) models.ReconcileReport {
	report := models.ReconcileReport{Totals: map[string]int{}}
	if len(devices) == 0 || p.Inventory == nil {
		return report
	}

	limit := reconcileConcurrency(len(devices))
	sem := make(chan struct{}, limit)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, device := range devices {
		sem <- struct{}{}
		wg.Add(1)
		go func(device models.DiscoveredDevice) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, name, err := p.reconcileOne(ctx, device)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed = append(report.Failed, name)
				report.Errors = append(report.Errors, err.Error())
			case outcome == "created":
				report.Created = append(report.Created, name)
			case outcome == "updated":
				report.Updated = append(report.Updated, name)
			default:
				report.Skipped = append(report.Skipped, name)
			}
		}(device)
	}
	wg.Wait()

	report.Totals["created"] = len(report.Created)
	report.Totals["updated"] = len(report.Updated)
	report.Totals["skipped"] = len(report.Skipped)
	report.Totals["failed"] = len(report.Failed)
	return report
}

// reconcileOne implements Stage 5 steps 1-4 for a single device:
// name derivation, match lookup, sync-mode gating, and the resulting
// create/update/IP-assignment calls against Inventory.
func (p *Pipeline) reconcileOne(ctx context.Context, device models.DiscoveredDevice) (outcome, name string, err error) {
	cfg := p.Config.Reconcile
	name = deriveName(cfg.DeviceNaming, device)
	if name == "" {
		return "skipped", device.IPAddress, nil
	}

	existing, findErr := p.Inventory.FindDevice(ctx, matchQuery(cfg.MatchBy, name, device))
	if findErr != nil {
		return "", name, fmt.Errorf("find device %s: %w", name, findErr)
	}

	if existing == nil {
		if cfg.SyncMode == models.SyncUpdateOnly {
			return "skipped", name, nil
		}
		created, createErr := p.createDevice(ctx, name, device)
		if createErr != nil {
			return "", name, fmt.Errorf("create device %s: %w", name, createErr)
		}
		if err := p.assignManagementIP(ctx, created.ID, device); err != nil {
			return "created", name, fmt.Errorf("assign ip for %s: %w", name, err)
		}
		return "created", name, nil
	}

	if cfg.SyncMode == models.SyncCreateOnly {
		return "skipped", name, nil
	}

	patch := missingFieldPatch(*existing, device)
	if len(patch) == 0 {
		return "skipped", name, nil
	}
	if _, err := p.Inventory.UpdateDevice(ctx, existing.ID, patch); err != nil {
		return "", name, fmt.Errorf("update device %s: %w", name, err)
	}
	return "updated", name, nil
}

// deriveName implements Stage 5 step 1's naming policy.
func deriveName(naming models.DeviceNaming, device models.DiscoveredDevice) string {
	switch naming {
	case models.NamingHostnameOnly:
		return device.Hostname
	case models.NamingIPOnly:
		return device.IPAddress
	case models.NamingPrefixIP:
		if device.Hostname != "" {
			return device.Hostname + "-" + device.IPAddress
		}
		return device.IPAddress
	case models.NamingDNSReverse:
		if device.DNSName != "" {
			return device.DNSName
		}
		return device.IPAddress
	case models.NamingHostnameOrIP:
		fallthrough
	default:
		if device.Hostname != "" {
			return device.Hostname
		}
		return device.IPAddress
	}
}

// matchQuery implements Stage 5 step 2's match-by policy.
func matchQuery(matchBy models.MatchBy, name string, device models.DiscoveredDevice) interfaces.FindDeviceQuery {
	switch matchBy {
	case models.MatchByIP:
		return interfaces.FindDeviceQuery{IP: device.IPAddress}
	case models.MatchByName:
		return interfaces.FindDeviceQuery{Name: name}
	case models.MatchByMAC:
		return interfaces.FindDeviceQuery{MAC: device.MACAddress}
	case models.MatchBySerial:
		return interfaces.FindDeviceQuery{Serial: device.Serial}
	case models.MatchByIPOrName:
		fallthrough
	default:
		return interfaces.FindDeviceQuery{IP: device.IPAddress, Name: name}
	}
}

// createDevice resolves (and auto-creates, if configured) manufacturer,
// device-type, and device-role references before creating the device
// itself, then find-or-creates the "autodiscovered" tag (§4.10 Stage 5
// step 3).
func (p *Pipeline) createDevice(ctx context.Context, name string, device models.DiscoveredDevice) (interfaces.Device, error) {
	cfg := p.Config.Reconcile
	spec := interfaces.Device{
		Name:        name,
		MAC:         device.MACAddress,
		Serial:      device.Serial,
		Description: device.Description,
	}

	spec.ManufacturerID = cfg.DefaultMfrID
	if cfg.AutoCreateMfr && device.Vendor != "" {
		id, _, err := p.Inventory.FindOrCreate(ctx, "manufacturer", device.Vendor, map[string]interface{}{"name": device.Vendor})
		if err == nil {
			spec.ManufacturerID = id
		}
	}

	spec.DeviceTypeID = cfg.DefaultTypeID
	if cfg.AutoCreateTypes && device.Model != "" {
		id, _, err := p.Inventory.FindOrCreate(ctx, "device_type", device.Model, map[string]interface{}{
			"model":           device.Model,
			"manufacturer_id": spec.ManufacturerID,
		})
		if err == nil {
			spec.DeviceTypeID = id
		}
	}

	spec.DeviceRoleID = cfg.DefaultRoleID
	if cfg.AutoCreateRoles && device.DeviceRole != "" {
		id, _, err := p.Inventory.FindOrCreate(ctx, "device_role", device.DeviceRole, map[string]interface{}{"name": device.DeviceRole})
		if err == nil {
			spec.DeviceRoleID = id
		}
	}

	if tagID, _, err := p.Inventory.FindOrCreate(ctx, "tag", "autodiscovered", map[string]interface{}{"name": "autodiscovered"}); err == nil {
		spec.Tags = []string{tagID}
	}

	return p.Inventory.CreateDevice(ctx, spec)
}

// assignManagementIP finds-or-creates the configured management
// interface, assigns the device's IP to it, and sets it as the primary
// IPv4 (§4.10 Stage 5 step 4).
func (p *Pipeline) assignManagementIP(ctx context.Context, deviceID string, device models.DiscoveredDevice) error {
	if device.IPAddress == "" {
		return nil
	}
	cfg := p.Config.Reconcile
	ifaceName := cfg.ManagementIface
	if ifaceName == "" {
		ifaceName = "mgmt0"
	}

	ifaceID, _, err := p.Inventory.FindOrCreate(ctx, "interface", fmt.Sprintf("%s:%s", deviceID, ifaceName), map[string]interface{}{
		"device_id": deviceID,
		"name":      ifaceName,
	})
	if err != nil {
		return err
	}

	prefixLen := cfg.PrefixLength
	if prefixLen <= 0 {
		prefixLen = 32
	}
	cidr := fmt.Sprintf("%s/%d", device.IPAddress, prefixLen)

	ip, err := p.Inventory.AssignIP(ctx, deviceID, ifaceID, cidr)
	if err != nil {
		return err
	}
	return p.Inventory.SetPrimaryIPv4(ctx, deviceID, ip.ID)
}

// missingFieldPatch implements the "update only what's currently empty"
// rule (§4.10 Stage 5 step 3): discovery never overwrites a value an
// operator already set in Inventory.
func missingFieldPatch(existing interfaces.Device, device models.DiscoveredDevice) map[string]interface{} {
	patch := map[string]interface{}{}
	if existing.Description == "" && device.Description != "" {
		patch["description"] = device.Description
	}
	if existing.MAC == "" && device.MACAddress != "" {
		patch["mac"] = device.MACAddress
	}
	if existing.Serial == "" && device.Serial != "" {
		patch["serial"] = device.Serial
	}
	return patch
}
