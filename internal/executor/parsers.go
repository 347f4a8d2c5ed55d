package executor

import (
	"encoding/json"
	"regexp"

	"github.com/ternarybob/netopscore/internal/models"
)

// applyParser turns raw command/probe output into a structured Value per
// the Parser's Kind (§3 Action.result_parsing). A missing parser leaves
// the parsed output empty rather than failing the action (§4.7 Edge
// cases).
func applyParser(p models.Parser, raw string) models.Value {
	if raw == "" {
		return models.Null()
	}
	switch p.Kind {
	case models.ParserKindJSON:
		var generic interface{}
		if err := json.Unmarshal([]byte(raw), &generic); err != nil {
			return models.Null()
		}
		return models.FromNative(generic)

	case models.ParserKindRegex:
		return applyRegexParser(p.Patterns, raw)

	case models.ParserKindBuiltin:
		return applyBuiltinParser(p.Name, raw)

	default:
		// No parser configured (p.Kind is zero value) — empty, not failure.
		return models.Null()
	}
}

// applyRegexParser tries each pattern in order and returns the first
// match's named capture groups as a map; no match yields null.
func applyRegexParser(patterns []string, raw string) models.Value {
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		match := re.FindStringSubmatch(raw)
		if match == nil {
			continue
		}
		out := map[string]models.Value{}
		for i, name := range re.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			out[name] = models.String(match[i])
		}
		if len(out) > 0 {
			return models.Map(out)
		}
	}
	return models.Null()
}

// applyBuiltinParser dispatches to one of a small set of named parsers for
// common network command output shapes (§4.7). Builtins beyond these are
// forward-compatible no-ops returning an empty object, mirroring the
// "missing executor" tolerance elsewhere in this package.
func applyBuiltinParser(name, raw string) models.Value {
	switch name {
	case "port_status":
		return parsePortStatusTable(raw)
	case "lldp_neighbors":
		return parseLLDPTable(raw)
	default:
		return models.Map(map[string]models.Value{})
	}
}

var portStatusLine = regexp.MustCompile(`(?m)^\s*(\d+)\s+(up|down)\s+(\S+)\s+(\S+)\s*$`)

// parsePortStatusTable parses a "port oper_link mode port_type" table into
// a list keyed implicitly by port, matching the structure mergeInterfaces
// expects (§4.7 step 5).
func parsePortStatusTable(raw string) models.Value {
	matches := portStatusLine.FindAllStringSubmatch(raw, -1)
	items := make([]models.Value, 0, len(matches))
	for _, m := range matches {
		items = append(items, models.Map(map[string]models.Value{
			"port":      models.String(m[1]),
			"oper_link": models.String(m[2]),
			"mode":      models.String(m[3]),
			"port_type": models.String(m[4]),
		}))
	}
	return models.List(items)
}

var lldpLine = regexp.MustCompile(`(?m)^\s*(\d+)\s+(\S+)\s+(.+)$`)

// parseLLDPTable parses a "local_port remote_chassis remote_port_descr"
// table (§4.7 step 5).
func parseLLDPTable(raw string) models.Value {
	matches := lldpLine.FindAllStringSubmatch(raw, -1)
	items := make([]models.Value, 0, len(matches))
	for _, m := range matches {
		items = append(items, models.Map(map[string]models.Value{
			"port":            models.String(m[1]),
			"neighbor_id":     models.String(m[2]),
			"neighbor_port":   models.String(m[3]),
		}))
	}
	return models.List(items)
}
