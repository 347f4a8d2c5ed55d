package interfaces

import (
	"context"
	"time"
)

// PingResult is the outcome of a Ping probe (§4.4).
type PingResult struct {
	Reachable bool
	RTTMs     *float64
}

// TCPProbeResult is the outcome of a TCP port check (§4.4).
type TCPProbeResult struct {
	Open bool
}

// SSHCredentials parameterize SSHExec (§3 LoginMethod ssh_port/ssh_cli).
type SSHCredentials struct {
	Username string
	Password string
	KeyPEM   []byte
	Port     int
}

// PingAdapter, TCPProbeAdapter, SNMPAdapter, SSHAdapter, and DNSAdapter
// together form the Probe Adapters port (§4.4). Each returns a
// structured outcome and never returns an error for expected negative
// results (offline, closed port, SNMP timeout) — those are signaled via
// the zero-value / false fields the result type defines.
type PingAdapter interface {
	Ping(ctx context.Context, ip string, count int, timeout time.Duration) (PingResult, error)
}

type TCPProbeAdapter interface {
	TCPProbe(ctx context.Context, ip string, port int, timeout time.Duration) (TCPProbeResult, error)
}

// SNMPAdapter.Get returns nil on timeout or "no such object" (§4.4); it
// never returns an error for those expected negative outcomes.
type SNMPAdapter interface {
	Get(ctx context.Context, ip, community, oid string, timeout time.Duration) (value interface{}, err error)
}

// SSHAdapter.Exec returns the concatenated stdout+stderr; empty on
// connection failure (§4.4).
type SSHAdapter interface {
	Exec(ctx context.Context, ip string, creds SSHCredentials, command string, timeout time.Duration) (output string, err error)
}

type DNSAdapter interface {
	ReverseDNS(ctx context.Context, ip string) (hostname string, err error)
}

// MACAdapter resolves an IP's hardware address via ARP/neighbor-cache
// lookup (§4.10 Stage 3); best-effort, empty string on miss.
type MACAdapter interface {
	Lookup(ctx context.Context, ip string) (mac string, err error)
}

// ProbeSet bundles the adapters the Action Executor and Discovery
// Pipeline depend on, constructed once per worker from configuration at
// startup (§9 DESIGN NOTES: "replace module-level globals with explicit
// dependency injection").
type ProbeSet struct {
	Ping PingAdapter
	TCP  TCPProbeAdapter
	SNMP SNMPAdapter
	SSH  SSHAdapter
	DNS  DNSAdapter
	MAC  MACAdapter
}
