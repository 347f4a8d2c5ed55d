// Package discovery implements the Autodiscovery Pipeline (C10, §4.10): a
// five-stage fan-out scanner that expands targets, sweeps for liveness,
// enriches live hosts, identifies device type/vendor, and reconciles
// findings into an external Inventory.
package discovery

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/ternarybob/netopscore/internal/interfaces"
	"github.com/ternarybob/netopscore/internal/models"
	"github.com/ternarybob/netopscore/internal/targeting"
)

// Config bundles the pipeline's tunables (SPEC_FULL.md Module Map).
type Config struct {
	PingTimeout    time.Duration
	PingCount      int
	PortScanPorts  []int
	PortScanTimeout time.Duration
	SNMPCommunities []string
	SNMPTimeout    time.Duration
	EnableReverseDNS bool
	Reconcile      models.ReconcileConfig
}

func DefaultConfig() Config {
	return Config{
		PingTimeout:      time.Second,
		PingCount:        2,
		PortScanPorts:    []int{22, 23, 80, 135, 139, 161, 443, 445, 3389, 5985, 5986},
		PortScanTimeout:  time.Second,
		SNMPCommunities:  []string{"public"},
		SNMPTimeout:      time.Second,
		EnableReverseDNS: true,
		Reconcile: models.ReconcileConfig{
			SyncMode:        models.SyncCreateUpdate,
			DeviceNaming:    models.NamingHostnameOrIP,
			MatchBy:         models.MatchByIPOrName,
			ManagementIface: "mgmt0",
			PrefixLength:    32,
		},
	}
}

// Pipeline runs the five discovery stages end to end.
type Pipeline struct {
	Targeting *targeting.Resolver
	Probes    interfaces.ProbeSet
	Inventory interfaces.InventoryPort
	Config    Config
}

func New(resolver *targeting.Resolver, probes interfaces.ProbeSet, inv interfaces.InventoryPort, cfg Config) *Pipeline {
	return &Pipeline{Targeting: resolver, Probes: probes, Inventory: inv, Config: cfg}
}

// Run executes all five stages and returns the full report (§4.10
// Output). Per-host and per-device failures are caught and recorded;
// only a Stage 1 targeting failure can leave Targets empty.
func (p *Pipeline) Run(ctx context.Context, t models.Targeting) models.DiscoveryReport {
	started := time.Now()
	report := models.DiscoveryReport{
		Run: models.DiscoveryRun{Status: models.DiscoveryRunning, StartedAt: started},
	}

	targets, _ := p.Targeting.Resolve(ctx, t, nil)
	report.Targets = targets

	live := p.stageLiveness(ctx, targets)
	report.Live = live

	devices := p.stageEnrichAndIdentify(ctx, live)
	report.Devices = devices

	reconcileStarted := time.Now()
	report.Reconcile = p.stageReconcile(ctx, devices)
	report.Reconcile.DurationSeconds = time.Since(reconcileStarted).Seconds()

	ended := time.Now()
	report.Run.EndedAt = &ended
	report.Run.Status = models.DiscoveryCompleted
	report.Run.Progress = 100

	return report
}

// stageConcurrency implements the §4.10 Stage 2/3 formula:
// min(cpu_count*50, |targets|, 1000).
func stageConcurrency(n int) int {
	c := runtime.NumCPU() * 50
	if n < c {
		c = n
	}
	if c > 1000 {
		c = 1000
	}
	if c <= 0 {
		c = 1
	}
	return c
}

// reconcileConcurrency implements the §4.10 Stage 5 formula:
// min(cpu_count*5, |devices|, 100).
func reconcileConcurrency(n int) int {
	c := runtime.NumCPU() * 5
	if n < c {
		c = n
	}
	if c > 100 {
		c = 100
	}
	if c <= 0 {
		c = 1
	}
	return c
}

// stageLiveness is Stage 2 (§4.10): ping every target with bounded
// parallelism, returning the live subset.
func (p *Pipeline) stageLiveness(ctx context.Context, targets []string) []string {
	if len(targets) == 0 || p.Probes.Ping == nil {
		return nil
	}

	limit := stageConcurrency(len(targets))
	sem := make(chan struct{}, limit)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var live []string

	timeout := p.Config.PingTimeout
	if timeout == 0 {
		timeout = time.Second
	}
	count := p.Config.PingCount
	if count == 0 {
		count = 2
	}

	for _, ip := range targets {
		sem <- struct{}{}
		wg.Add(1)
		go func(ip string) {
			defer wg.Done()
			defer func() { <-sem }()
			result, err := p.Probes.Ping.Ping(ctx, ip, count, timeout)
			if err == nil && result.Reachable {
				mu.Lock()
				live = append(live, ip)
				mu.Unlock()
			}
		}(ip)
	}
	wg.Wait()
	return live
}
