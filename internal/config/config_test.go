package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesExpectedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trackstream.yaml")
	contents := `
connection:
  string: "192.168.0.1:5000"
timeouts:
  data_ms: 1000
  command_ms: 10000
buffer_size_bytes: 32768
log_level: "info"
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Connection.String != "192.168.0.1:5000" {
		t.Errorf("Connection.String = %q, want %q", cfg.Connection.String, "192.168.0.1:5000")
	}
	if cfg.Timeouts.DataMs != 1000 || cfg.Timeouts.CommandMs != 10000 {
		t.Errorf("Timeouts = %+v, want {1000 10000}", cfg.Timeouts)
	}
	if cfg.BufferSizeBytes != 32768 {
		t.Errorf("BufferSizeBytes = %d, want 32768", cfg.BufferSizeBytes)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load succeeded, want error")
	}
}
