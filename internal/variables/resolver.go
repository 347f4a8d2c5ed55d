// Package variables implements the Variable Resolver (§4.6): it expands
// "{{path}}" template references against an ExecutionContext. A path
// resolves a dotted/indexed traversal rooted at trigger, node results,
// workflow/execution metadata, input, or environment.
package variables

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/netopscore/internal/models"
)

var refPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// WorkflowMeta carries the $workflow.* built-ins (§4.6).
type WorkflowMeta struct {
	ID   string
	Name string
}

// ExecutionMeta carries the $execution.* built-ins (§4.6).
type ExecutionMeta struct {
	ID        string
	StartedAt time.Time
}

// Resolver expands template strings against one run's ExecutionContext
// and the $now/$today/$env/$workflow/$execution/$input builtins.
type Resolver struct {
	ExecCtx   *models.ExecutionContext
	Workflow  WorkflowMeta
	Execution ExecutionMeta
	Input     models.Value
	Now       func() time.Time
}

func NewResolver(execCtx *models.ExecutionContext) *Resolver {
	return &Resolver{ExecCtx: execCtx, Now: time.Now}
}

// Resolve expands all "{{path}}" references in s. If s, once trimmed, is
// exactly one reference, the referenced Value is returned natively typed
// (§4.6). Otherwise every reference is stringified per Value.AsString and
// substituted into the surrounding text, and the whole result is returned
// as a String Value. A path that cannot be resolved yields null, never an
// error (§4.6: the resolver never raises).
func (r *Resolver) Resolve(s string) models.Value {
	matches := refPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return models.String(s)
	}

	if isWholeStringSingleReference(s, matches) {
		path := strings.TrimSpace(s[matches[0][2]:matches[0][3]])
		return r.resolvePath(path)
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		pathStart, pathEnd := m[2], m[3]
		b.WriteString(s[last:start])
		path := strings.TrimSpace(s[pathStart:pathEnd])
		b.WriteString(r.resolvePath(path).AsString())
		last = end
	}
	b.WriteString(s[last:])
	return models.String(b.String())
}

func isWholeStringSingleReference(s string, matches [][]int) bool {
	if len(matches) != 1 {
		return false
	}
	trimmed := strings.TrimSpace(s)
	full := strings.TrimSpace(s[matches[0][0]:matches[0][1]])
	return trimmed == full
}

// resolvePath dispatches a single "{{path}}" body to a builtin or a
// variable-map traversal.
func (r *Resolver) resolvePath(path string) models.Value {
	switch {
	case path == "$now":
		return models.String(r.now().Format(time.RFC3339))
	case path == "$today":
		return models.String(r.now().Format("2006-01-02"))
	case strings.HasPrefix(path, "$env."):
		name := strings.TrimPrefix(path, "$env.")
		return models.String(os.Getenv(name))
	case path == "$workflow.id":
		return models.String(r.Workflow.ID)
	case path == "$workflow.name":
		return models.String(r.Workflow.Name)
	case path == "$execution.id":
		return models.String(r.Execution.ID)
	case path == "$execution.started_at":
		if r.Execution.StartedAt.IsZero() {
			return models.Null()
		}
		return models.String(r.Execution.StartedAt.Format(time.RFC3339))
	case path == "$input":
		return r.Input
	case strings.HasPrefix(path, "$input."):
		return traverse(r.Input, strings.Split(strings.TrimPrefix(path, "$input."), "."))
	case strings.HasPrefix(path, "$node."):
		return r.resolveNodePath(path)
	default:
		return r.resolveVariablePath(path)
	}
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// resolveNodePath handles "$node.<id>.output_data[.rest]" (§4.6).
func (r *Resolver) resolveNodePath(path string) models.Value {
	rest := strings.TrimPrefix(path, "$node.")
	segs := strings.Split(rest, ".")
	if len(segs) < 2 || segs[1] != "output_data" {
		return models.Null()
	}
	nodeID := segs[0]
	if r.ExecCtx == nil {
		return models.Null()
	}
	result, ok := r.ExecCtx.NodeResultByID(nodeID)
	if !ok {
		return models.Null()
	}
	if len(segs) == 2 {
		return result.OutputData
	}
	return traverse(result.OutputData, segs[2:])
}

// resolveVariablePath traverses the ExecutionContext's flat variable map
// by the path's leading segment, then dotted/indexed accessors.
func (r *Resolver) resolveVariablePath(path string) models.Value {
	if r.ExecCtx == nil {
		return models.Null()
	}
	segs := splitPath(path)
	if len(segs) == 0 {
		return models.Null()
	}
	root, ok := r.ExecCtx.Variable(segs[0])
	if !ok {
		return models.Null()
	}
	return traverse(root, segs[1:])
}

// splitPath tokenizes a dotted/indexed path into segments: "a.b[0].c"
// becomes ["a","b","0","c"], and a quoted bracket index such as
// `a["key"]` becomes ["a","key"] with the quotes stripped rather than
// kept as part of the segment.
func splitPath(path string) []string {
	var out []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			out = append(out, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(path); i++ {
		switch ch := path[i]; ch {
		case '.':
			flush()
		case '[':
			flush()
			j := strings.IndexByte(path[i:], ']')
			if j < 0 {
				current.WriteString(path[i+1:])
				i = len(path)
				break
			}
			index := path[i+1 : i+j]
			out = append(out, strings.Trim(index, `"'`))
			i += j
		case ']':
			// skipped; handled by the '[' branch
		default:
			current.WriteByte(ch)
		}
	}
	flush()
	return out
}

// traverse walks segs (dotted field names or numeric list indices) into
// v, returning Null on any missing path or type mismatch.
func traverse(v models.Value, segs []string) models.Value {
	cur := v
	for _, seg := range segs {
		if idx, err := strconv.Atoi(seg); err == nil {
			list, ok := cur.List()
			if !ok || idx < 0 || idx >= len(list) {
				return models.Null()
			}
			cur = list[idx]
			continue
		}
		m, ok := cur.Map()
		if !ok {
			return models.Null()
		}
		next, ok := m[seg]
		if !ok {
			return models.Null()
		}
		cur = next
	}
	return cur
}

// ResolveMap applies Resolve to every string leaf of a JSON-like map,
// used to expand an action's argument template before execution.
func (r *Resolver) ResolveMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = r.resolveAny(v)
	}
	return out
}

func (r *Resolver) resolveAny(x interface{}) interface{} {
	switch t := x.(type) {
	case string:
		return r.Resolve(t).Native()
	case map[string]interface{}:
		return r.ResolveMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = r.resolveAny(e)
		}
		return out
	default:
		return t
	}
}

// ResolveString is a convenience for callers that only need the
// stringified form regardless of single-reference typing.
func (r *Resolver) ResolveString(s string) string {
	return r.Resolve(s).AsString()
}
