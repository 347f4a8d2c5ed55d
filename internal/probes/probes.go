// Package probes implements the Probe Adapters port (§4.4): ICMP ping, TCP
// port checks, SNMP GET, SSH command execution, and reverse DNS, each
// pacing itself against a shared rate limiter so a large target list can't
// exhaust local ephemeral ports or flood a segment.
package probes

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/prometheus-community/pro-bing"
	"golang.org/x/crypto/ssh"
	"golang.org/x/time/rate"

	"github.com/ternarybob/netopscore/internal/interfaces"
)

// Limiter paces outbound probes across all adapters constructed from the
// same ProbesConfig (SPEC_FULL.md Domain Stack: golang.org/x/time/rate).
type Limiter struct {
	rl *rate.Limiter
}

func NewLimiter(perSecond int) *Limiter {
	if perSecond <= 0 {
		perSecond = 200
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(perSecond), perSecond)}
}

func (l *Limiter) wait(ctx context.Context) error {
	if l == nil || l.rl == nil {
		return nil
	}
	return l.rl.Wait(ctx)
}

// PingAdapter is the default PingAdapter using ICMP echo via pro-bing.
type PingAdapter struct {
	Limiter *Limiter
}

func (p *PingAdapter) Ping(ctx context.Context, ip string, count int, timeout time.Duration) (interfaces.PingResult, error) {
	if err := p.Limiter.wait(ctx); err != nil {
		return interfaces.PingResult{}, err
	}
	if count <= 0 {
		count = 3
	}

	pinger, err := probing.NewPinger(ip)
	if err != nil {
		return interfaces.PingResult{}, fmt.Errorf("ping %s: %w", ip, err)
	}
	pinger.Count = count
	pinger.Timeout = timeout
	pinger.SetPrivileged(true)

	if err := pinger.RunWithContext(ctx); err != nil {
		// Host unreachable is an expected negative outcome, not an error
		// (§4.4). Every run error is reported as unreachable with a nil
		// error; only a NewPinger failure above propagates.
		return interfaces.PingResult{Reachable: false}, nil
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return interfaces.PingResult{Reachable: false}, nil
	}
	rtt := float64(stats.AvgRtt.Microseconds()) / 1000.0
	return interfaces.PingResult{Reachable: true, RTTMs: &rtt}, nil
}

// TCPProbeAdapter checks whether a single TCP port accepts connections.
type TCPProbeAdapter struct {
	Limiter *Limiter
}

func (t *TCPProbeAdapter) TCPProbe(ctx context.Context, ip string, port int, timeout time.Duration) (interfaces.TCPProbeResult, error) {
	if err := t.Limiter.wait(ctx); err != nil {
		return interfaces.TCPProbeResult{}, err
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip, fmt.Sprintf("%d", port)))
	if err != nil {
		return interfaces.TCPProbeResult{Open: false}, nil
	}
	_ = conn.Close()
	return interfaces.TCPProbeResult{Open: true}, nil
}

// SNMPAdapter performs a single SNMP GET using gosnmp.
type SNMPAdapter struct {
	Limiter *Limiter
}

func (s *SNMPAdapter) Get(ctx context.Context, ip, community, oid string, timeout time.Duration) (interface{}, error) {
	if err := s.Limiter.wait(ctx); err != nil {
		return nil, err
	}

	g := &gosnmp.GoSNMP{
		Target:    ip,
		Port:      161,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   1,
		Context:   ctx,
	}
	if err := g.Connect(); err != nil {
		return nil, nil
	}
	defer g.Conn.Close()

	result, err := g.Get([]string{oid})
	if err != nil {
		// Timeout/no-response is an expected negative outcome (§4.4).
		return nil, nil
	}
	if len(result.Variables) == 0 {
		return nil, nil
	}
	v := result.Variables[0]
	if v.Type == gosnmp.NoSuchObject || v.Type == gosnmp.NoSuchInstance {
		return nil, nil
	}
	return v.Value, nil
}

// SSHAdapter executes a single command over SSH using golang.org/x/crypto/ssh.
type SSHAdapter struct {
	Limiter *Limiter
}

func (s *SSHAdapter) Exec(ctx context.Context, ip string, creds interfaces.SSHCredentials, command string, timeout time.Duration) (string, error) {
	if err := s.Limiter.wait(ctx); err != nil {
		return "", err
	}

	config := &ssh.ClientConfig{
		User:            creds.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}
	if len(creds.KeyPEM) > 0 {
		signer, err := ssh.ParsePrivateKey(creds.KeyPEM)
		if err != nil {
			return "", fmt.Errorf("parse ssh key: %w", err)
		}
		config.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	} else {
		config.Auth = []ssh.AuthMethod{ssh.Password(creds.Password)}
	}

	port := creds.Port
	if port == 0 {
		port = 22
	}

	client, err := ssh.Dial("tcp", net.JoinHostPort(ip, fmt.Sprintf("%d", port)), config)
	if err != nil {
		return "", nil
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", nil
	}
	defer session.Close()

	out, err := session.CombinedOutput(command)
	if err != nil {
		return string(out), nil
	}
	return string(out), nil
}

// DNSAdapter resolves reverse DNS via net.DefaultResolver.
type DNSAdapter struct {
	Limiter *Limiter
}

func (d *DNSAdapter) ReverseDNS(ctx context.Context, ip string) (string, error) {
	if err := d.Limiter.wait(ctx); err != nil {
		return "", err
	}
	names, err := net.DefaultResolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return "", nil
	}
	return names[0], nil
}

// MACAdapter looks up an IP's MAC address from the local ARP/neighbor
// table. Go has no portable neighbor-cache API, so this shells out is
// avoided entirely: the lookup is best-effort via the OS ARP cache file on
// Linux and returns empty elsewhere, matching §4.10 Stage 3's "best
// effort, empty string on miss" contract.
type MACAdapter struct{}

func (m *MACAdapter) Lookup(ctx context.Context, ip string) (string, error) {
	return lookupARP(ip)
}

// NewProbeSet builds the default ProbeSet with a shared pacing limiter.
func NewProbeSet(probesPerSecond int) interfaces.ProbeSet {
	limiter := NewLimiter(probesPerSecond)
	return interfaces.ProbeSet{
		Ping: &PingAdapter{Limiter: limiter},
		TCP:  &TCPProbeAdapter{Limiter: limiter},
		SNMP: &SNMPAdapter{Limiter: limiter},
		SSH:  &SSHAdapter{Limiter: limiter},
		DNS:  &DNSAdapter{Limiter: limiter},
		MAC:  &MACAdapter{},
	}
}
