package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"firestige.xyz/netprobe/internal/config"
)

func TestParseLevelValid(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			if err != nil {
				t.Errorf("parseLevel(%q) returned error: %v", tt.input, err)
			}
			if level != tt.expected {
				t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestParseLevelInvalid(t *testing.T) {
	if _, err := parseLevel("trace"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestInitStdoutOnly(t *testing.T) {
	cfg := config.LogConfig{Level: "info", Format: "json"}
	if err := Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if slog.Default() == nil {
		t.Fatal("expected a default logger to be set")
	}
}

func TestInitWithFileOutputCreatesLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "netprobe.log")
	cfg := config.LogConfig{
		Level:  "debug",
		Format: "text",
		File: config.FileLogConfig{
			Enabled:    true,
			Path:       logPath,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
	if err := Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	slog.Info("test message")

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Errorf("expected a log file at %s", logPath)
	}
}

func TestInitRejectsInvalidLevel(t *testing.T) {
	err := Init(config.LogConfig{Level: "verbose", Format: "json"})
	if err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("Init error = %v, want an invalid log level error", err)
	}
}

func TestInitRejectsUnsupportedFormat(t *testing.T) {
	err := Init(config.LogConfig{Level: "info", Format: "xml"})
	if err == nil || !strings.Contains(err.Error(), "unsupported log format") {
		t.Errorf("Init error = %v, want an unsupported format error", err)
	}
}

func TestInitRejectsMissingFilePathWhenFileEnabled(t *testing.T) {
	err := Init(config.LogConfig{
		Level:  "info",
		Format: "json",
		File:   config.FileLogConfig{Enabled: true},
	})
	if err == nil || !strings.Contains(err.Error(), "path") {
		t.Errorf("Init error = %v, want a missing path error", err)
	}
}
