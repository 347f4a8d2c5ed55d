// Package targeting implements the Target Resolver (§4.5): it turns a
// Targeting spec into a deduplicated, order-stable list of IP strings.
package targeting

import (
	"context"
	"fmt"
	"net/netip"
	"sort"

	"github.com/ternarybob/netopscore/internal/interfaces"
	"github.com/ternarybob/netopscore/internal/models"
)

// Resolver resolves Targeting specs against the optional InventoryPort and
// the run's ExecutionContext. It is a pure function over its inputs aside
// from the Inventory/DatabaseQuery lookups.
type Resolver struct {
	Inventory interfaces.InventoryPort
}

func NewResolver(inv interfaces.InventoryPort) *Resolver {
	return &Resolver{Inventory: inv}
}

// Resolve returns the deduplicated, order-stable target list for t. It
// never returns an error for an empty or unreachable-data result — target
// resolution failures are advisory only (§5 Target Resolver, §7).
func (r *Resolver) Resolve(ctx context.Context, t models.Targeting, execCtx *models.ExecutionContext) ([]string, *string) {
	var ips []string
	var warn *string

	switch t.Kind {
	case models.TargetingStaticList:
		ips = append(ips, t.IPs...)

	case models.TargetingNetworkRange:
		expanded, err := ExpandCIDR(t.CIDR)
		if err != nil {
			msg := err.Error()
			warn = &msg
			break
		}
		ips = append(ips, applyExclusions(expanded, t.Exclude)...)

	case models.TargetingIPRange:
		expanded, err := ExpandIPRange(t.Start, t.End)
		if err != nil {
			msg := err.Error()
			warn = &msg
			break
		}
		ips = expanded

	case models.TargetingPreviousResult:
		ips = previousResultIPs(execCtx, t.Field)

	case models.TargetingGroupReference, models.TargetingDatabaseQuery:
		// Resolved by an external grouping/query service out of scope for
		// the core (§1 Non-goals); callers supply these as a pre-resolved
		// static_list in practice. Nothing to expand here.

	case models.TargetingInventoryPrefix:
		if r.Inventory == nil {
			msg := "inventory_prefix targeting requires an InventoryPort"
			warn = &msg
			break
		}
		prefix, err := r.Inventory.ResolvePrefix(ctx, t.PrefixID)
		if err != nil {
			msg := err.Error()
			warn = &msg
			break
		}
		expanded, err := ExpandCIDR(prefix.CIDR)
		if err != nil {
			msg := err.Error()
			warn = &msg
			break
		}
		ips = expanded

	case models.TargetingInventoryIPRange:
		if r.Inventory == nil {
			msg := "inventory_ip_range targeting requires an InventoryPort"
			warn = &msg
			break
		}
		rng, err := r.Inventory.ResolveIPRange(ctx, t.RangeID)
		if err != nil {
			msg := err.Error()
			warn = &msg
			break
		}
		expanded, err := ExpandIPRange(rng.Start, rng.End)
		if err != nil {
			msg := err.Error()
			warn = &msg
			break
		}
		ips = expanded
	}

	return dedupeStable(ips), warn
}

// previousResultIPs reads t.Field out of the ExecutionContext's published
// node results. A missing path returns an empty list, never an error
// (§4.5 previous_result).
func previousResultIPs(execCtx *models.ExecutionContext, field string) []string {
	if execCtx == nil || field == "" {
		return nil
	}
	v, ok := execCtx.Variable(field)
	if !ok {
		return nil
	}
	list, ok := v.List()
	if !ok {
		if s, ok := v.String(); ok {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.String(); ok {
			out = append(out, s)
			continue
		}
		if m, ok := item.Map(); ok {
			if ipVal, ok := m["ip"]; ok {
				if s, ok := ipVal.String(); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// ExpandCIDR expands a CIDR block into its usable host addresses (§4.5):
// for prefix length <= 30 the network and broadcast addresses are
// excluded; /31 yields both addresses; /32 yields the single address.
func ExpandCIDR(cidr string) ([]string, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid cidr %q: %w", cidr, err)
	}
	prefix = prefix.Masked()
	bits := prefix.Bits()
	addrBits := prefix.Addr().BitLen()

	if bits == addrBits {
		return []string{prefix.Addr().String()}, nil
	}
	if bits == addrBits-1 {
		first := prefix.Addr()
		second := nextAddr(first)
		return []string{first.String(), second.String()}, nil
	}

	first := prefix.Addr()
	last := lastAddr(prefix)

	var out []string
	for a := nextAddr(first); a.Less(last); a = nextAddr(a) {
		out = append(out, a.String())
	}
	return out, nil
}

// ExpandIPRange expands a start-end IP range inclusive of both endpoints
// (§4.5 ip_range).
func ExpandIPRange(start, end string) ([]string, error) {
	s, err := netip.ParseAddr(start)
	if err != nil {
		return nil, fmt.Errorf("invalid start address %q: %w", start, err)
	}
	e, err := netip.ParseAddr(end)
	if err != nil {
		return nil, fmt.Errorf("invalid end address %q: %w", end, err)
	}
	if e.Less(s) {
		s, e = e, s
	}

	var out []string
	for a := s; ; a = nextAddr(a) {
		out = append(out, a.String())
		if a == e {
			break
		}
	}
	return out, nil
}

func nextAddr(a netip.Addr) netip.Addr {
	return a.Next()
}

func lastAddr(prefix netip.Prefix) netip.Addr {
	addr := prefix.Addr()
	if addr.Is6() {
		b16 := addr.As16()
		bytes16 := b16
		hostBits := 128 - prefix.Bits()
		flipTrailingBits(bytes16[:], hostBits)
		a, _ := netip.AddrFromSlice(bytes16[:])
		return a
	}
	bytes := addr.As4()
	hostBits := 32 - prefix.Bits()
	flipTrailingBits(bytes[:], hostBits)
	a, _ := netip.AddrFromSlice(bytes[:])
	return a.Unmap()
}

// flipTrailingBits sets the last n bits of b to 1, treating b as a
// big-endian bit string.
func flipTrailingBits(b []byte, n int) {
	total := len(b) * 8
	for i := total - n; i < total; i++ {
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		b[byteIdx] |= 1 << uint(bitIdx)
	}
}

func applyExclusions(ips []string, exclude []string) []string {
	if len(exclude) == 0 {
		return ips
	}
	excluded := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		excluded[e] = struct{}{}
	}
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		if _, ok := excluded[ip]; ok {
			continue
		}
		out = append(out, ip)
	}
	return out
}

// dedupeStable removes duplicates while preserving first-seen order (§8
// invariant: target lists are deterministic for a given spec).
func dedupeStable(ips []string) []string {
	seen := make(map[string]struct{}, len(ips))
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		out = append(out, ip)
	}
	return out
}

// SortIPs orders a target list for deterministic display/logging; not
// used by Resolve itself, which preserves input order.
func SortIPs(ips []string) []string {
	out := append([]string(nil), ips...)
	sort.Slice(out, func(i, j int) bool {
		ai, erri := netip.ParseAddr(out[i])
		aj, errj := netip.ParseAddr(out[j])
		if erri != nil || errj != nil {
			return out[i] < out[j]
		}
		return ai.Less(aj)
	})
	return out
}
