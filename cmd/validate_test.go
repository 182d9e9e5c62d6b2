package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunValidateAcceptsAWellFormedConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("netprobe:\n  capture:\n    tool_path: \"tshark\"\n"), 0644); err != nil {
		t.Fatalf("write tmp config: %v", err)
	}

	orig := configFile
	configFile = path
	defer func() { configFile = orig }()

	if err := runValidate(validateCmd, nil); err != nil {
		t.Errorf("runValidate returned an error for a valid config: %v", err)
	}
}
