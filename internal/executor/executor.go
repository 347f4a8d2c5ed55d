// Package executor implements the Action Executor (§4.7): it runs one
// Action against one target, applying parsers, post-processing merges, and
// sink writes.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/netopscore/internal/common"
	"github.com/ternarybob/netopscore/internal/interfaces"
	"github.com/ternarybob/netopscore/internal/models"
	"github.com/ternarybob/netopscore/internal/variables"
)

// Executor runs Actions against targets using the injected probe set and
// inventory/sink ports (§9 DESIGN NOTES: explicit dependency injection).
type Executor struct {
	Probes    interfaces.ProbeSet
	Inventory interfaces.InventoryPort
}

func New(probes interfaces.ProbeSet, inv interfaces.InventoryPort) *Executor {
	return &Executor{Probes: probes, Inventory: inv}
}

// Run executes action against one target IP and returns its ActionResult
// (§4.7). It never panics out to the caller: a raised error inside
// command execution is converted into a failure result per §4.7 Error
// semantics.
func (e *Executor) Run(ctx context.Context, action models.Action, target string, resolver *variables.Resolver) (out models.ActionResult) {
	started := time.Now()
	out = models.ActionResult{ActionID: action.ID, Target: target, Status: "success"}

	defer func() {
		if r := recover(); r != nil {
			out.Status = "failure"
			out.Error = fmt.Sprintf("panic: %v\n%s", r, common.GetStackTrace())
		}
		out.DurationMs = time.Since(started).Milliseconds()
	}()

	params := e.resolveParameters(action, resolver)
	tctx := models.NewTargetContext(target)

	if !hasExecutor(action.Type) {
		if action.Required {
			out.Status = "failure"
			out.Error = fmt.Sprintf("no executor registered for action type %q", action.Type)
			return out
		}
		// Missing executor is a no-op success for forward compatibility
		// (§4.7 Edge cases) unless the action is marked required.
		out.OutputData = models.Map(map[string]models.Value{})
		return out
	}

	var raw string
	var err error

	if action.Execution.IsMultiCommand() {
		raw, err = e.runMultiCommand(ctx, action, target, tctx, resolver)
	} else {
		raw, err = e.runSingleCommand(ctx, action, target, params)
	}

	if err != nil {
		out.Status = "failure"
		out.Error = err.Error()
		return out
	}

	parsed := applyParser(action.ResultParsing["default"], raw)
	mergeInterfaces(tctx)

	outputData := buildOutputData(tctx, parsed)
	if failed, msg := outcomeFailed(outputData); failed {
		out.Status = "failure"
		out.Error = msg
	}
	out.OutputData = outputData

	for _, sink := range action.Database {
		if err := e.writeSink(ctx, sink, tctx); err != nil {
			out.Status = "failure"
			out.Error = err.Error()
		}
	}

	return out
}

func hasExecutor(kind models.ActionKind) bool {
	switch kind {
	case models.ActionKindPing, models.ActionKindSNMPScan, models.ActionKindSSHScan,
		models.ActionKindRDPScan, models.ActionKindAutodiscovery:
		return true
	default:
		return false
	}
}

func (e *Executor) resolveParameters(action models.Action, resolver *variables.Resolver) map[string]interface{} {
	if resolver == nil || action.Parameters == nil {
		return action.Parameters
	}
	return resolver.ResolveMap(action.Parameters)
}

// runSingleCommand handles §4.7 step 3.
func (e *Executor) runSingleCommand(ctx context.Context, action models.Action, target string, params map[string]interface{}) (string, error) {
	timeout := common.Duration(action.Execution.Timeout, 10*time.Second)

	switch action.Type {
	case models.ActionKindPing:
		result, err := e.Probes.Ping.Ping(ctx, target, 3, timeout)
		if err != nil {
			return "", &common.AdapterError{Adapter: "ping", Target: target, Err: err}
		}
		return fmt.Sprintf(`{"reachable":%v}`, result.Reachable), nil

	case models.ActionKindSNMPScan:
		community := action.LoginMethod.Community
		oid, _ := params["oid"].(string)
		val, err := e.Probes.SNMP.Get(ctx, target, community, oid, timeout)
		if err != nil {
			return "", &common.AdapterError{Adapter: "snmp", Target: target, Err: err}
		}
		return fmt.Sprintf(`{"value":%v}`, val), nil

	case models.ActionKindSSHScan, models.ActionKindRDPScan:
		creds := interfaces.SSHCredentials{
			Username: action.LoginMethod.Username,
			Password: action.LoginMethod.Password,
			Port:     action.LoginMethod.Port,
		}
		command := action.Execution.Command
		output, err := e.Probes.SSH.Exec(ctx, target, creds, command, timeout)
		if err != nil {
			return "", &common.AdapterError{Adapter: "ssh", Target: target, Err: err}
		}
		return output, nil

	default:
		return "", nil
	}
}

// runMultiCommand handles §4.7 step 4: sequential command steps with
// optional foreach/filter iteration and per-step parser application.
func (e *Executor) runMultiCommand(ctx context.Context, action models.Action, target string, tctx *models.TargetContext, resolver *variables.Resolver) (string, error) {
	timeout := common.Duration(action.Execution.Timeout, 10*time.Second)

	for _, step := range action.Execution.Commands {
		if step.Foreach == "" {
			output, err := e.execTemplate(ctx, action, target, step.Template, timeout)
			if err != nil {
				return "", err
			}
			parser := action.ResultParsing[step.ParserRef]
			parsed := applyParser(parser, output)
			if step.StoreAs != "" {
				tctx.Stores[step.StoreAs] = asRows(parsed)
			}
			continue
		}

		items := tctx.Stores[step.Foreach]
		for i, item := range items {
			if !matchesFilter(item, step.Filter) {
				continue
			}
			rendered := renderTemplateAgainstItem(step.Template, item)
			output, err := e.execTemplate(ctx, action, target, rendered, timeout)
			if err != nil {
				return "", err
			}
			parser := action.ResultParsing[step.ParserRef]
			parsed := applyParser(parser, output)
			if m, ok := parsed.Map(); ok {
				for k, v := range m {
					item[k] = v.Native()
				}
			}
			items[i] = item
		}
		tctx.Stores[step.Foreach] = items
	}

	return "", nil
}

func (e *Executor) execTemplate(ctx context.Context, action models.Action, target, template string, timeout time.Duration) (string, error) {
	switch action.Type {
	case models.ActionKindSSHScan, models.ActionKindRDPScan:
		creds := interfaces.SSHCredentials{
			Username: action.LoginMethod.Username,
			Password: action.LoginMethod.Password,
			Port:     action.LoginMethod.Port,
		}
		output, err := e.Probes.SSH.Exec(ctx, target, creds, template, timeout)
		if err != nil {
			return "", &common.AdapterError{Adapter: "ssh", Target: target, Err: err}
		}
		return output, nil
	case models.ActionKindSNMPScan:
		val, err := e.Probes.SNMP.Get(ctx, target, action.LoginMethod.Community, template, timeout)
		if err != nil {
			return "", &common.AdapterError{Adapter: "snmp", Target: target, Err: err}
		}
		return fmt.Sprintf(`{"value":%v}`, val), nil
	default:
		return "", nil
	}
}

// renderTemplateAgainstItem performs a minimal per-item substitution for
// multi-command foreach steps: "{{field}}" is replaced by the item's field.
func renderTemplateAgainstItem(template string, item map[string]interface{}) string {
	out := template
	for k, v := range item {
		token := "{{" + k + "}}"
		out = replaceAll(out, token, fmt.Sprintf("%v", v))
	}
	return out
}

func replaceAll(s, old, new string) string {
	for {
		idx := indexOf(s, old)
		if idx == -1 {
			return s
		}
		s = s[:idx] + new + s[idx+len(old):]
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// matchesFilter applies exact field equality, including the synthetic
// "has_power_reading" predicate (§4.7 step 6, reused here for foreach
// gating per step 4).
func matchesFilter(item map[string]interface{}, filter map[string]interface{}) bool {
	if len(filter) == 0 {
		return true
	}
	for k, want := range filter {
		if k == "has_power_reading" {
			if hasPowerReading(item) != (want == true) {
				return false
			}
			continue
		}
		got, ok := item[k]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

func hasPowerReading(item map[string]interface{}) bool {
	for _, field := range []string{"tx", "rx", "temperature"} {
		if v, ok := item[field]; ok && v != nil {
			return true
		}
	}
	return false
}

func asRows(v models.Value) []map[string]interface{} {
	if list, ok := v.List(); ok {
		out := make([]map[string]interface{}, 0, len(list))
		for _, item := range list {
			if m, ok := item.Map(); ok {
				native := make(map[string]interface{}, len(m))
				for k, val := range m {
					native[k] = val.Native()
				}
				out = append(out, native)
			}
		}
		return out
	}
	if m, ok := v.Map(); ok {
		native := make(map[string]interface{}, len(m))
		for k, val := range m {
			native[k] = val.Native()
		}
		return []map[string]interface{}{native}
	}
	return nil
}

// buildOutputData assembles the action's final output_data from the
// target context's stores plus the last parsed object.
func buildOutputData(tctx *models.TargetContext, parsed models.Value) models.Value {
	out := map[string]models.Value{}
	for k, rows := range tctx.Stores {
		items := make([]models.Value, len(rows))
		for i, r := range rows {
			items[i] = models.FromNative(r)
		}
		out[k] = models.List(items)
	}
	if !parsed.IsNull() {
		if m, ok := parsed.Map(); ok {
			for k, v := range m {
				out[k] = v
			}
		}
	}
	return models.Map(out)
}

// outcomeFailed implements §4.7 Error semantics: success=false or a
// non-empty error/errors field in output_data marks the action as failed.
func outcomeFailed(outputData models.Value) (bool, string) {
	m, ok := outputData.Map()
	if !ok {
		return false, ""
	}
	if success, ok := m["success"]; ok {
		if b, ok := success.Bool(); ok && !b {
			if errVal, ok := m["error"]; ok {
				return true, errVal.AsString()
			}
			return true, "action reported success=false"
		}
	}
	if errVal, ok := m["error"]; ok && !errVal.IsNull() {
		if s, ok := errVal.String(); ok && s != "" {
			return true, s
		}
	}
	if errsVal, ok := m["errors"]; ok {
		if list, ok := errsVal.List(); ok && len(list) > 0 {
			return true, list[0].AsString()
		}
	}
	return false, ""
}
