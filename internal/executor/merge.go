package executor

import (
	"fmt"

	"github.com/ternarybob/netopscore/internal/models"
)

// mergeInterfaces folds port_status and lldp_neighbors stores into the
// interfaces store, keyed by port number, per §4.7 step 5's field
// precedence:
//   - oper_link drives `status` ("up"/"down").
//   - mode fills `speed` only if not already set.
//   - port_type fills `medium` only if not already set; electrical types
//     imply "RJ45".
//   - a live LLDP neighbor promotes the interface's status to "up".
func mergeInterfaces(tctx *models.TargetContext) {
	byPort := indexInterfacesByPort(tctx)

	if portStatus, ok := tctx.Stores["port_status"]; ok {
		for _, row := range portStatus {
			port := portKey(row)
			if port == "" {
				continue
			}
			iface := byPort[port]
			if iface == nil {
				iface = map[string]interface{}{"port": port}
				byPort[port] = iface
			}
			applyPortStatus(iface, row)
		}
	}

	if lldp, ok := tctx.Stores["lldp_neighbors"]; ok {
		for _, row := range lldp {
			port := portKey(row)
			if port == "" {
				continue
			}
			iface := byPort[port]
			if iface == nil {
				iface = map[string]interface{}{"port": port}
				byPort[port] = iface
			}
			applyLLDPNeighbor(iface, row)
		}
	}

	if len(byPort) == 0 {
		return
	}
	rows := make([]map[string]interface{}, 0, len(byPort))
	for _, iface := range byPort {
		rows = append(rows, iface)
	}
	tctx.Stores["interfaces"] = rows
}

func indexInterfacesByPort(tctx *models.TargetContext) map[string]map[string]interface{} {
	out := map[string]map[string]interface{}{}
	for _, row := range tctx.Stores["interfaces"] {
		port := portKey(row)
		if port == "" {
			continue
		}
		out[port] = row
	}
	return out
}

func portKey(row map[string]interface{}) string {
	v, ok := row["port"]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func applyPortStatus(iface, portStatus map[string]interface{}) {
	if operLink, ok := portStatus["oper_link"]; ok {
		if s := fmt.Sprintf("%v", operLink); s == "up" {
			iface["status"] = "up"
		} else {
			iface["status"] = "down"
		}
	}
	if _, set := iface["speed"]; !set {
		if mode, ok := portStatus["mode"]; ok {
			iface["speed"] = mode
		}
	}
	if _, set := iface["medium"]; !set {
		if portType, ok := portStatus["port_type"]; ok {
			iface["medium"] = portType
			if isElectrical(fmt.Sprintf("%v", portType)) {
				iface["medium"] = "RJ45"
			}
		}
	}
}

func isElectrical(portType string) bool {
	switch portType {
	case "copper", "electrical", "rj45", "RJ45":
		return true
	default:
		return false
	}
}

func applyLLDPNeighbor(iface, neighbor map[string]interface{}) {
	iface["lldp_neighbor"] = neighbor["neighbor_id"]
	iface["lldp_neighbor_port"] = neighbor["neighbor_port"]
	// A live neighbor promotes the interface to up regardless of what
	// port_status reported (§4.7 step 5).
	iface["status"] = "up"
}
