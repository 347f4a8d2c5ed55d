package common

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ServerConfig controls the optional HTTP control surface (the /healthz
// health check and the /ws websocket endpoint).
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// LoggingConfig controls arbor writer selection and level (SetupLogger in
// logger.go consumes this directly).
type LoggingConfig struct {
	Level      string   `toml:"level"`       // debug|info|warn|error
	Format     string   `toml:"format"`      // text|json
	Output     []string `toml:"output"`      // stdout, file
	FilePath   string   `toml:"file_path"`
	TimeFormat string   `toml:"time_format"`
}

// StorageConfig points at the badger-backed persistence and queue default
// implementations (§9 DESIGN NOTES: swappable ports, badger is the default).
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

type BadgerConfig struct {
	Path string `toml:"path"`
}

// QueueConfig controls the default badger-backed BrokerPort.
type QueueConfig struct {
	PollInterval      string `toml:"poll_interval"`
	Concurrency       int    `toml:"concurrency"`
	VisibilityTimeout string `toml:"visibility_timeout"`
	MaxReceive        int    `toml:"max_receive"`
	QueueName         string `toml:"queue_name"`
}

// SchedulerConfig controls the Scheduler Tick Loop (§4.9).
type SchedulerConfig struct {
	TickInterval        string `toml:"tick_interval"`         // how often GetDueJobs is polled
	StaleExecutionAfter string `toml:"stale_execution_after"` // ReapStaleExecutions threshold
	ReapInterval        string `toml:"reap_interval"`
}

// ProbesConfig parameterizes the probe adapters (§4.4), including the
// pacing rate golang.org/x/time/rate enforces across concurrent probes.
type ProbesConfig struct {
	PingCount        int    `toml:"ping_count"`
	PingTimeout      string `toml:"ping_timeout"`
	TCPTimeout       string `toml:"tcp_timeout"`
	SNMPTimeout      string `toml:"snmp_timeout"`
	SNMPCommunities  []string `toml:"snmp_communities"`
	SSHTimeout       string `toml:"ssh_timeout"`
	ProbesPerSecond  int    `toml:"probes_per_second"`
}

// DiscoveryConfig controls the five-stage Autodiscovery Pipeline (§4.10).
type DiscoveryConfig struct {
	PortScanPorts     []int  `toml:"port_scan_ports"`
	HostEnrichTimeout string `toml:"host_enrich_timeout"`
	ReconcileSyncMode string `toml:"reconcile_sync_mode"`
	ReconcileMatchBy  string `toml:"reconcile_match_by"`
	DeviceNaming      string `toml:"device_naming"`
}

// EngineConfig controls the Job Engine's chord wait behavior (§4.8).
type EngineConfig struct {
	ChordTimeout    string `toml:"chord_timeout"`
	ChordPollEvery  string `toml:"chord_poll_every"`
}

// InventoryConfig points the InventoryPort HTTP client at the external
// inventory system (§6 External Interfaces).
type InventoryConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
	Timeout string `toml:"timeout"`
}

// Config is the root configuration object, loaded default -> files
// (LoadFromFiles) -> CLI flags (ApplyFlagOverrides), mirroring the teacher's
// layered precedence; environment variables are not read.
type Config struct {
	Environment string           `toml:"environment"`
	Server      ServerConfig     `toml:"server"`
	Logging     LoggingConfig    `toml:"logging"`
	Storage     StorageConfig    `toml:"storage"`
	Queue       QueueConfig      `toml:"queue"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	Probes      ProbesConfig     `toml:"probes"`
	Discovery   DiscoveryConfig  `toml:"discovery"`
	Engine      EngineConfig     `toml:"engine"`
	Inventory   InventoryConfig  `toml:"inventory"`
}

// NewDefaultConfig returns a Config with production-safe defaults. Only
// user-facing settings are meant to be overridden via netopscore.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			FilePath:   "./data/netopscore.log",
			TimeFormat: "15:04:05.000",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data/badger"},
		},
		Queue: QueueConfig{
			PollInterval:      "1s",
			Concurrency:       50,
			VisibilityTimeout: "5m",
			MaxReceive:        3,
			QueueName:         "netopscore_jobs",
		},
		Scheduler: SchedulerConfig{
			TickInterval:        "30s",
			StaleExecutionAfter: "600s",
			ReapInterval:        "1m",
		},
		Probes: ProbesConfig{
			PingCount:       3,
			PingTimeout:     "2s",
			TCPTimeout:      "2s",
			SNMPTimeout:     "2s",
			SNMPCommunities: []string{"public"},
			SSHTimeout:      "10s",
			ProbesPerSecond: 200,
		},
		Discovery: DiscoveryConfig{
			PortScanPorts:     []int{22, 23, 80, 161, 443, 3389},
			HostEnrichTimeout: "5s",
			ReconcileSyncMode: "create_update",
			ReconcileMatchBy:  "primary_ip",
			DeviceNaming:      "sysname_or_ip",
		},
		Engine: EngineConfig{
			ChordTimeout:   "600s",
			ChordPollEvery: "2s",
		},
		Inventory: InventoryConfig{
			Timeout: "10s",
		},
	}
}

// LoadFromFile loads configuration from a single optional file; empty path
// returns defaults only.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return NewDefaultConfig(), nil
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration with priority default -> file1 -> ... ->
// fileN, later files overriding earlier ones, mirroring the teacher's
// layered LoadFromFiles (internal/common/config.go).
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	return config, nil
}

// ApplyFlagOverrides applies CLI flag values over whatever was loaded from
// files/defaults, the final and highest-priority layer.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Duration parses a config duration string, falling back to def on a blank
// or malformed value rather than erroring — config parsing never aborts
// startup over a single bad duration string.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
