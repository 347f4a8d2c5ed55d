//go:build !linux

package probes

// lookupARP has no portable implementation outside Linux's /proc/net/arp;
// best-effort miss per §4.10 Stage 3.
func lookupARP(ip string) (string, error) {
	return "", nil
}
