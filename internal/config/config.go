// Package config handles global configuration loading using viper, the
// same root-keyed YAML + env-override pattern the teacher's capture-agent
// configuration uses.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GlobalConfig is the top-level static configuration, mapped from the
// `netprobe:` root key in YAML.
type GlobalConfig struct {
	Capture CaptureConfig `mapstructure:"capture"`
	Server  ServerConfig  `mapstructure:"server"`
	Geo     GeoConfig     `mapstructure:"geo"`
	Report  ReportConfig  `mapstructure:"report"`
	Log     LogConfig     `mapstructure:"log"`
}

// CaptureConfig configures the child capture-tool process and window
// cadence, per spec.md §4.1/§4.3/§5.
type CaptureConfig struct {
	ToolPath        string        `mapstructure:"tool_path"`
	DefaultIface    string        `mapstructure:"default_interface"`
	WindowDuration  time.Duration `mapstructure:"window_duration"`
	StartupProbe    time.Duration `mapstructure:"startup_probe"`
	ReadDeadline    time.Duration `mapstructure:"read_deadline"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	FieldSeparator  string        `mapstructure:"field_separator"`
}

// ServerConfig configures the dashboard websocket listener, spec.md §6.5.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Path       string `mapstructure:"path"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// GeoConfig configures the enrichment worker, spec.md §4.7.
type GeoConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	APIBaseURL    string        `mapstructure:"api_base_url"`
	MinCallSpacing time.Duration `mapstructure:"min_call_spacing"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	RDNSTimeout   time.Duration `mapstructure:"rdns_timeout"`
	ScanInterval  time.Duration `mapstructure:"scan_interval"`
}

// ReportConfig configures the end-of-session report generator, spec.md §6.5.
type ReportConfig struct {
	GeminiAPIKeyEnv string        `mapstructure:"gemini_api_key_env"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// LogConfig contains logging settings, mirroring the teacher's
// slog-based logger configuration.
type LogConfig struct {
	Level  string         `mapstructure:"level"`  // debug / info / warn / error
	Format string         `mapstructure:"format"` // json / text
	File   FileLogConfig  `mapstructure:"file"`
}

// FileLogConfig configures the optional rotating file log sink.
type FileLogConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// configRoot is the top-level wrapper matching the YAML structure
// `netprobe: ...`.
type configRoot struct {
	Netprobe GlobalConfig `mapstructure:"netprobe"`
}

// Load loads configuration from file. Env vars use the NETPROBE_ prefix
// applied to the full key path, root included (e.g.
// NETPROBE_NETPROBE_LOG_LEVEL overrides netprobe.log.level).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v.SetEnvPrefix("netprobe")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg := root.Netprobe

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration that would result from loading an
// empty file: every field set from setDefaults.
func Default() *GlobalConfig {
	v := viper.New()
	setDefaults(v)
	var root configRoot
	_ = v.Unmarshal(&root)
	cfg := root.Netprobe
	_ = cfg.ValidateAndApplyDefaults()
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("netprobe.capture.tool_path", "tshark")
	v.SetDefault("netprobe.capture.default_interface", "eth0")
	v.SetDefault("netprobe.capture.window_duration", "1.5s")
	v.SetDefault("netprobe.capture.startup_probe", "500ms")
	v.SetDefault("netprobe.capture.read_deadline", "1s")
	v.SetDefault("netprobe.capture.graceful_timeout", "3s")
	v.SetDefault("netprobe.capture.field_separator", "|")

	v.SetDefault("netprobe.server.listen_addr", ":8765")
	v.SetDefault("netprobe.server.path", "/ws")
	v.SetDefault("netprobe.server.metrics_addr", ":9765")

	v.SetDefault("netprobe.geo.enabled", true)
	v.SetDefault("netprobe.geo.api_base_url", "http://ip-api.com")
	v.SetDefault("netprobe.geo.min_call_spacing", "23ms")
	v.SetDefault("netprobe.geo.http_timeout", "5s")
	v.SetDefault("netprobe.geo.rdns_timeout", "1.5s")
	v.SetDefault("netprobe.geo.scan_interval", "2s")

	v.SetDefault("netprobe.report.gemini_api_key_env", "GEMINI_API_KEY")
	v.SetDefault("netprobe.report.request_timeout", "15s")

	v.SetDefault("netprobe.log.level", "info")
	v.SetDefault("netprobe.log.format", "json")
	v.SetDefault("netprobe.log.file.enabled", false)
	v.SetDefault("netprobe.log.file.path", "/var/log/netprobe/netprobe.log")
	v.SetDefault("netprobe.log.file.max_size_mb", 100)
	v.SetDefault("netprobe.log.file.max_age_days", 30)
	v.SetDefault("netprobe.log.file.max_backups", 5)
	v.SetDefault("netprobe.log.file.compress", true)
}

// ValidateAndApplyDefaults validates configuration and fills in derived
// defaults, mirroring the teacher's ValidateAndApplyDefaults pattern.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}
	if cfg.Capture.WindowDuration <= 0 {
		return fmt.Errorf("capture.window_duration must be positive")
	}
	if cfg.Capture.ToolPath == "" {
		return fmt.Errorf("capture.tool_path must not be empty")
	}
	if cfg.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	return nil
}
