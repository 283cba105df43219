package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paylens/paylens/internal/config"
	"github.com/paylens/paylens/internal/model"
)

// Not parallel: viper keeps package-level state across Load calls.

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("default listen addr: %q", cfg.Server.ListenAddr)
	}
	if cfg.App.LogLevel != "info" {
		t.Errorf("default log level: %q", cfg.App.LogLevel)
	}
	if cfg.Storage.Path != "paylens.db" {
		t.Errorf("default storage path: %q", cfg.Storage.Path)
	}

	scan := cfg.ScanConfig()
	if scan != model.DefaultScanConfig() {
		t.Errorf("empty scan section must yield production defaults, got %+v", scan)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  name: paylens
  log_level: debug
server:
  listen_addr: ":9090"
storage:
  path: /tmp/paylens-test.db
scan:
  probe_timeout: 3s
  global_timeout: 10s
  user_agent: custom-agent/2.0
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen addr not loaded: %q", cfg.Server.ListenAddr)
	}
	if cfg.App.LogLevel != "debug" {
		t.Errorf("log level not loaded: %q", cfg.App.LogLevel)
	}

	scan := cfg.ScanConfig()
	if scan.ProbeTimeout != 3*time.Second || scan.GlobalTimeout != 10*time.Second {
		t.Errorf("scan timeouts not loaded: %+v", scan)
	}
	if scan.UserAgent != "custom-agent/2.0" {
		t.Errorf("user agent not loaded: %q", scan.UserAgent)
	}
	// Unset fields fall back to defaults.
	if scan.RequestTimeout != model.DefaultScanConfig().RequestTimeout {
		t.Errorf("unset request timeout should default, got %s", scan.RequestTimeout)
	}
	if scan.RegistryURL != model.DefaultScanConfig().RegistryURL {
		t.Errorf("unset registry url should default, got %q", scan.RegistryURL)
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file must error")
	}
}
