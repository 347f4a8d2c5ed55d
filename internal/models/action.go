package models

// ActionKind tags the type of an Action. ActionKindCustom carries the
// open-extension name in CustomType, per DESIGN NOTES (§9): "replace the
// string dispatch table with a tagged variant of ActionKind ... An
// ActionKind::Custom(name) arm supports open extension."
type ActionKind string

const (
	ActionKindPing          ActionKind = "ping"
	ActionKindSNMPScan      ActionKind = "snmp_scan"
	ActionKindSSHScan       ActionKind = "ssh_scan"
	ActionKindRDPScan       ActionKind = "rdp_scan"
	ActionKindAutodiscovery ActionKind = "autodiscovery"
	ActionKindCustom        ActionKind = "custom"
)

// LoginMethodKind tags the login/transport variant an Action uses.
type LoginMethodKind string

const (
	LoginMethodPing    LoginMethodKind = "ping"
	LoginMethodSNMP    LoginMethodKind = "snmp"
	LoginMethodSSHPort LoginMethodKind = "ssh_port"
	LoginMethodSSHCLI  LoginMethodKind = "ssh_cli"
	LoginMethodRDPPort LoginMethodKind = "rdp_port"
)

// LoginMethod is a tagged variant of protocol-specific login parameters.
type LoginMethod struct {
	Kind LoginMethodKind `json:"kind"`

	// SNMP
	Community string `json:"community,omitempty"`

	// SSH / RDP
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	KeyPath  string `json:"key_path,omitempty"`
	Port     int    `json:"port,omitempty"`
}

// ParserKind tags the parser variant for a result_parsing entry.
type ParserKind string

const (
	ParserKindBuiltin ParserKind = "builtin"
	ParserKindRegex   ParserKind = "regex"
	ParserKindJSON    ParserKind = "json"
)

// Parser is a tagged variant describing how to turn raw command/probe
// output into structured data (§3 Action.result_parsing).
type Parser struct {
	Kind ParserKind `json:"kind"`

	// Builtin
	Name string `json:"name,omitempty"`

	// Regex: ordered list of named-capture patterns; the named groups of
	// the first pattern that matches are used, later patterns are not tried.
	Patterns []string `json:"patterns,omitempty"`
}

// CommandStep is one element of Action.Execution.Commands (multi-command
// mode, §4.7 step 4).
type CommandStep struct {
	ID       string `json:"id"`
	Template string `json:"template"`
	// ParserRef names an entry in Action.ResultParsing applied to this
	// step's output.
	ParserRef string `json:"parser_ref,omitempty"`
	// Foreach names a store key in the target context; when set the
	// command is run once per stored item (template rendered against the
	// item), rather than once.
	Foreach string `json:"foreach,omitempty"`
	// Filter gates foreach iteration items by exact field equality.
	// "has_power_reading" is a synthetic predicate (true iff any of
	// tx/rx/temperature are non-null) that the executor package's
	// matchesFilter evaluates specially, for foreach items and sink rows.
	Filter map[string]interface{} `json:"filter,omitempty"`
	// StoreAs names a target-context store key that receives this step's
	// parsed output, when not iterating foreach.
	StoreAs string `json:"store_as,omitempty"`
}

// ActionExecution describes the single-command or multi-command execution
// mode of an Action (§3 Action.execution).
type ActionExecution struct {
	// Single-command mode.
	Command string `json:"command,omitempty"`
	Timeout string `json:"timeout,omitempty"` // e.g. "10s"

	// Multi-command mode.
	Commands []CommandStep `json:"commands,omitempty"`
}

// IsMultiCommand reports whether Commands is populated (multi-command
// mode, §4.7 step 4) rather than a single Command (§4.7 step 3).
func (e ActionExecution) IsMultiCommand() bool {
	return len(e.Commands) > 0
}

// SinkOperation tags how a DatabaseSink writes its rows.
type SinkOperation string

const (
	SinkOpInsert     SinkOperation = "insert"
	SinkOpUpsert     SinkOperation = "upsert"
	SinkOpUpdateLLDP SinkOperation = "update_lldp"
)

// DatabaseSink is one destination table descriptor (§3 Action.database).
type DatabaseSink struct {
	Table     string                 `json:"table"`
	SourceKey string                 `json:"source_key"`
	Operation SinkOperation          `json:"operation"`
	Filter    map[string]interface{} `json:"filter,omitempty"`
}

// Notifications describes per-action notification behavior (§3, §4.8
// step 7).
type Notifications struct {
	Enabled   bool     `json:"enabled"`
	OnSuccess bool     `json:"on_success"`
	OnFailure bool     `json:"on_failure"`
	Targets   []string `json:"targets,omitempty"`
}

// EdgeLabel tags an outbound DAG edge from an action (§4.8 step 3).
type EdgeLabel string

const (
	EdgeSuccess  EdgeLabel = "success"
	EdgeFailure  EdgeLabel = "failure"
	EdgeTrue     EdgeLabel = "true"
	EdgeFalse    EdgeLabel = "false"
	EdgeEach     EdgeLabel = "each"
	EdgeComplete EdgeLabel = "complete"
	EdgeDefault  EdgeLabel = "default"
)

// Edge is one outbound, labeled transition from an action to a successor
// in the job's DAG (§4.8 step 2/3). When a job definition has no explicit
// edges the engine falls back to definition order.
type Edge struct {
	From  string    `json:"from"`
	To    string    `json:"to"`
	Label EdgeLabel `json:"label"`
}

// Action is a single step within a JobDefinition (§3 Action).
type Action struct {
	ID          string     `json:"id" validate:"required"`
	Label       string     `json:"label,omitempty"`
	Type        ActionKind `json:"type" validate:"required"`
	CustomType  string     `json:"custom_type,omitempty"`
	Enabled     bool       `json:"enabled"`
	Required    bool       `json:"required,omitempty"` // if true, missing executor is a hard failure, not a no-op

	LoginMethod LoginMethod `json:"login_method"`
	Targeting   Targeting   `json:"targeting"`
	Execution   ActionExecution `json:"execution"`

	ResultParsing map[string]Parser `json:"result_parsing,omitempty"`
	Database      []DatabaseSink    `json:"database,omitempty"`
	Notifications Notifications     `json:"notifications"`

	// Parameters holds free-form action parameters resolved by the
	// Variable Resolver (§4.6) before execution.
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// JobDefinition is the immutable contract of what to execute (§3
// JobDefinition). Created/updated by an external API; consumed only by
// the Job Engine.
type JobDefinition struct {
	ID          string                 `json:"id" validate:"required"`
	Name        string                 `json:"name" validate:"required"`
	Description string                 `json:"description,omitempty"`
	Enabled     bool                   `json:"enabled"`
	Actions     []Action               `json:"actions" validate:"required,min=1,dive"`
	Edges       []Edge                 `json:"edges,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
	ErrorHandling string               `json:"error_handling,omitempty"` // "continue" (default) or "abort", §7
	CreatedAt   string                 `json:"created_at,omitempty"`
	UpdatedAt   string                 `json:"updated_at,omitempty"`
}

// ActionByID returns the action with the given id, or false if absent.
func (j *JobDefinition) ActionByID(id string) (Action, bool) {
	for _, a := range j.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}
