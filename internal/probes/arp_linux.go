//go:build linux

package probes

import (
	"bufio"
	"os"
	"strings"
)

// lookupARP reads /proc/net/arp for the MAC mapped to ip, empty string on
// miss (§4.10 Stage 3).
func lookupARP(ip string) (string, error) {
	f, err := os.Open("/proc/net/arp")
	if err != nil {
		return "", nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Scan() // header line
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		if fields[0] == ip {
			return fields[3], nil
		}
	}
	return "", nil
}
