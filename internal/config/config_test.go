package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ClientName != "pulsectl" {
		t.Errorf("ClientName = %q, want pulsectl", cfg.ClientName)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("Log defaults = %q/%q, want info/console", cfg.Log.Level, cfg.Log.Format)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulsectl.yaml")
	content := []byte(`
server: /run/pulse/native
client_name: jukebox
no_autospawn: true
request_timeout: 3s
log:
  level: debug
  format: json
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server != "/run/pulse/native" {
		t.Errorf("Server = %q", cfg.Server)
	}
	if cfg.ClientName != "jukebox" {
		t.Errorf("ClientName = %q", cfg.ClientName)
	}
	if !cfg.NoAutospawn {
		t.Error("NoAutospawn = false")
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %q/%q", cfg.Log.Level, cfg.Log.Format)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PULSECTL_CLIENT_NAME", "from-env")
	t.Setenv("PULSECTL_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ClientName != "from-env" {
		t.Errorf("ClientName = %q, want from-env", cfg.ClientName)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pulsectl.yaml")

	cfg := Default()
	cfg.Server = "audio-host:4713"
	cfg.DefaultSink = "hdmi"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Server != cfg.Server {
		t.Errorf("Server = %q, want %q", loaded.Server, cfg.Server)
	}
	if loaded.DefaultSink != cfg.DefaultSink {
		t.Errorf("DefaultSink = %q, want %q", loaded.DefaultSink, cfg.DefaultSink)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulsectl.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted an invalid log level")
	}
}
