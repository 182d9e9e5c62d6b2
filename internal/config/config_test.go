package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTmpConfig writes a tmp YAML file and returns its path.
func writeTmpConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write tmp config: %v", err)
	}
	return p
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeTmpConfig(t, `
netprobe:
  capture:
    tool_path: "/usr/bin/tshark"
    default_interface: "eth1"
    window_duration: "2s"
    field_separator: ";"
  server:
    listen_addr: ":9000"
    path: "/stream"
  geo:
    enabled: false
    api_base_url: "http://example.invalid"
  report:
    gemini_api_key_env: "MY_KEY"
  log:
    level: "debug"
    format: "text"
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Capture.ToolPath != "/usr/bin/tshark" {
		t.Errorf("Capture.ToolPath = %q, want /usr/bin/tshark", cfg.Capture.ToolPath)
	}
	if cfg.Capture.WindowDuration != 2*time.Second {
		t.Errorf("Capture.WindowDuration = %v, want 2s", cfg.Capture.WindowDuration)
	}
	if cfg.Capture.FieldSeparator != ";" {
		t.Errorf("Capture.FieldSeparator = %q, want ;", cfg.Capture.FieldSeparator)
	}
	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("Server.ListenAddr = %q, want :9000", cfg.Server.ListenAddr)
	}
	if cfg.Geo.Enabled {
		t.Error("Geo.Enabled = true, want false (explicitly overridden)")
	}
	if cfg.Report.GeminiAPIKeyEnv != "MY_KEY" {
		t.Errorf("Report.GeminiAPIKeyEnv = %q, want MY_KEY", cfg.Report.GeminiAPIKeyEnv)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want Level=debug Format=text", cfg.Log)
	}
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	cfg, err := Load(writeTmpConfig(t, "netprobe:\n  capture:\n    tool_path: \"tshark\"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Capture.WindowDuration != 1500*time.Millisecond {
		t.Errorf("Capture.WindowDuration = %v, want the 1.5s default", cfg.Capture.WindowDuration)
	}
	if cfg.Server.ListenAddr != ":8765" {
		t.Errorf("Server.ListenAddr = %q, want the :8765 default", cfg.Server.ListenAddr)
	}
	if !cfg.Geo.Enabled {
		t.Error("Geo.Enabled = false, want the true default")
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	_, err := Load(writeTmpConfig(t, "netprobe:\n  log:\n    level: \"verbose\"\n"))
	if err == nil {
		t.Fatal("expected Load to reject an invalid log level")
	}
}

func TestLoadRejectsZeroWindowDuration(t *testing.T) {
	_, err := Load(writeTmpConfig(t, "netprobe:\n  capture:\n    window_duration: \"0s\"\n"))
	if err == nil {
		t.Fatal("expected Load to reject a zero window_duration")
	}
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err == nil {
		t.Fatal("expected Load to fail for a missing config file")
	}
}

func TestDefaultReturnsValidConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		t.Errorf("Default() config failed validation: %v", err)
	}
	if cfg.Capture.ToolPath != "tshark" {
		t.Errorf("Capture.ToolPath = %q, want tshark", cfg.Capture.ToolPath)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want Level=info Format=json", cfg.Log)
	}
}

func TestValidateAndApplyDefaultsRejectsEmptyToolPath(t *testing.T) {
	cfg := Default()
	cfg.Capture.ToolPath = ""
	if err := cfg.ValidateAndApplyDefaults(); err == nil {
		t.Fatal("expected validation to reject an empty capture.tool_path")
	}
}

func TestValidateAndApplyDefaultsRejectsEmptyListenAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.ListenAddr = ""
	if err := cfg.ValidateAndApplyDefaults(); err == nil {
		t.Fatal("expected validation to reject an empty server.listen_addr")
	}
}
