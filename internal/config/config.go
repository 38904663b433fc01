// Package config loads the bridge's YAML configuration document: the
// synthetic bridge identity, the configured z2m/WLED back-ends, the
// entertainment listener, and the ambient logging/ledger/automation
// settings (spec.md §6).
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Bridge        BridgeConfig        `yaml:"bridge"`
	BackEnds      BackEndsConfig      `yaml:"back_ends"`
	Entertainment EntertainmentConfig `yaml:"entertainment"`
	State         StateConfig         `yaml:"state"`
	Database      DatabaseConfig      `yaml:"database"`
	Log           LogConfig           `yaml:"log"`
	Ledger        LedgerConfig        `yaml:"ledger"`
	Automation    AutomationConfig    `yaml:"automation"`
}

// BridgeConfig carries the synthetic bridge's own identity (spec.md §6
// "bridge: {mac, ip, netmask, gateway, tz, http_port, https_port,
// entertainment_port}"); the HTTP/TLS fields are recorded here because the
// entertainment port is this package's responsibility even though the
// HTTP/TLS servers themselves are named external collaborators (§1).
type BridgeConfig struct {
	MAC               string `yaml:"mac"`
	IP                string `yaml:"ip"`
	Netmask           string `yaml:"netmask"`
	Gateway           string `yaml:"gateway"`
	Timezone          string `yaml:"tz"`
	HTTPPort          int    `yaml:"http_port"`
	HTTPSPort         int    `yaml:"https_port"`
	EntertainmentPort int    `yaml:"entertainment_port"`
}

// Default bridge values.
const (
	DefaultHTTPPort          = 80
	DefaultHTTPSPort         = 443
	DefaultEntertainmentPort = 2100
	DefaultTimezone          = "UTC"
)

// GetHTTPPort returns the configured HTTP port with default.
func (c *BridgeConfig) GetHTTPPort() int {
	if c.HTTPPort == 0 {
		return DefaultHTTPPort
	}
	return c.HTTPPort
}

// GetHTTPSPort returns the configured HTTPS port with default.
func (c *BridgeConfig) GetHTTPSPort() int {
	if c.HTTPSPort == 0 {
		return DefaultHTTPSPort
	}
	return c.HTTPSPort
}

// GetEntertainmentPort returns the configured entertainment UDP port with
// default.
func (c *BridgeConfig) GetEntertainmentPort() int {
	if c.EntertainmentPort == 0 {
		return DefaultEntertainmentPort
	}
	return c.EntertainmentPort
}

// GetTimezone returns the configured timezone with default.
func (c *BridgeConfig) GetTimezone() string {
	if c.Timezone == "" {
		return DefaultTimezone
	}
	return c.Timezone
}

// BackEndsConfig groups every configured back-end by kind and name
// (spec.md §6 "back_ends: {z2m: {name -> {...}}, wled: {name -> {...}}}").
type BackEndsConfig struct {
	Z2M  map[string]Z2MServerConfig  `yaml:"z2m"`
	WLED map[string]WLEDServerConfig `yaml:"wled"`
}

// Z2MServerConfig is one configured Zigbee2MQTT gateway.
type Z2MServerConfig struct {
	URL              string `yaml:"url"`
	GroupPrefix      string `yaml:"group_prefix"`
	DisableTLSVerify bool   `yaml:"disable_tls_verify"`
	StreamingFPS     int    `yaml:"streaming_fps"`
}

// GetStreamingFPS returns the configured frame rate with default.
func (c *Z2MServerConfig) GetStreamingFPS() int {
	if c.StreamingFPS <= 0 {
		return DefaultStreamingFPS
	}
	return c.StreamingFPS
}

// WLEDServerConfig is one configured WLED controller.
type WLEDServerConfig struct {
	URL          string `yaml:"url"`
	StreamingFPS int    `yaml:"streaming_fps"`
}

// GetStreamingFPS returns the configured frame rate with default.
func (c *WLEDServerConfig) GetStreamingFPS() int {
	if c.StreamingFPS <= 0 {
		return DefaultStreamingFPS
	}
	return c.StreamingFPS
}

// DefaultStreamingFPS is the entertainment pipeline's default target frame
// rate (spec.md §4.7 "default 20").
const DefaultStreamingFPS = 20

// EntertainmentConfig controls the DTLS-terminated UDP entertainment
// listener.
type EntertainmentConfig struct {
	Enabled         *bool    `yaml:"enabled"`
	Listen          string   `yaml:"listen"`
	PSKIdentity     string   `yaml:"psk_identity"`
	PSKKey          string   `yaml:"psk_key"`
	SmoothingTime   Duration `yaml:"smoothing_time_ms"`
}

// IsEnabled reports whether the entertainment listener should run
// (defaults to true if not set).
func (c *EntertainmentConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// GetListen returns the UDP listen address with default.
func (c *EntertainmentConfig) GetListen() string {
	if c.Listen == "" {
		return ":2100"
	}
	return c.Listen
}

// DefaultSmoothingTime is the smoothing duration GetSmoothingTime reports
// when none is configured.
const DefaultSmoothingTime = 200 * time.Millisecond

// GetSmoothingTime returns the configured smoothing duration with default.
// The z2m adapter does not read it: the Zigbee entertainment frames it
// sends carry a smoothing value of 0.
func (c *EntertainmentConfig) GetSmoothingTime() time.Duration {
	if c.SmoothingTime == 0 {
		return DefaultSmoothingTime
	}
	return c.SmoothingTime.Duration()
}

// StateConfig controls the persisted YAML state document (spec.md §6).
type StateConfig struct {
	Path string `yaml:"path"`
}

// DefaultStatePath is the persisted state document path.
const DefaultStatePath = "./state.yaml"

// GetPath returns the configured state path with default.
func (c *StateConfig) GetPath() string {
	if c.Path == "" {
		return DefaultStatePath
	}
	return c.Path
}

// DatabaseConfig contains the audit-ledger SQLite database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DefaultDatabasePath is the audit-ledger database path.
const DefaultDatabasePath = "./huebridge.sqlite"

// GetPath returns the database path with default.
func (c *DatabaseConfig) GetPath() string {
	if c.Path == "" {
		return DefaultDatabasePath
	}
	return c.Path
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"use_json"`
	Colors  bool   `yaml:"colors"`
}

// DefaultLogLevel is the default zerolog level.
const DefaultLogLevel = "info"

// GetLevel returns the log level with default.
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return DefaultLogLevel
	}
	return c.Level
}

// LedgerConfig contains audit-ledger retention settings.
type LedgerConfig struct {
	Enabled           *bool    `yaml:"enabled"`
	RetentionPeriod   Duration `yaml:"retention_period"`
	RetentionInterval Duration `yaml:"retention_interval"`
}

// Default ledger values.
const (
	DefaultLedgerRetentionPeriod   = 30 * 24 * time.Hour
	DefaultLedgerRetentionInterval = 24 * time.Hour
)

// IsEnabled reports whether the ledger is enabled (defaults to true).
func (c *LedgerConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// GetRetentionPeriod returns the retention period with default.
func (c *LedgerConfig) GetRetentionPeriod() time.Duration {
	if c.RetentionPeriod == 0 {
		return DefaultLedgerRetentionPeriod
	}
	return c.RetentionPeriod.Duration()
}

// GetRetentionInterval returns the retention cleanup interval with default.
func (c *LedgerConfig) GetRetentionInterval() time.Duration {
	if c.RetentionInterval == 0 {
		return DefaultLedgerRetentionInterval
	}
	return c.RetentionInterval.Duration()
}

// AutomationConfig controls the optional Lua hook script (SPEC_FULL.md
// DOMAIN STACK: "internal/automation" trimmed gopher-lua hook surface).
type AutomationConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Script  string `yaml:"script"`
}

// IsEnabled reports whether the automation hook VM should start (defaults
// to false: it only starts when a script path is actually configured).
func (c *AutomationConfig) IsEnabled() bool {
	if c.Enabled != nil {
		return *c.Enabled
	}
	return c.Script != ""
}

// Duration is a YAML-string-to-time.Duration wrapper, same convention the
// teacher's config package uses.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file at path. Defaults are
// handled by accessor methods, not here.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &cfg, nil
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or
// ${VAR:default}.
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// ExpandEnvString expands a single string with environment variables.
func ExpandEnvString(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return expandEnvVars(s)
	}
	return s
}
