package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/moneypot/moneypot/pkg/config"
	"github.com/moneypot/moneypot/pkg/types"
)

func TestLoadConfig_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "moneypot.config.json")

	testConfig := map[string]interface{}{
		"version":    "1.0",
		"ledger_dir": "data/pots",
		"user":       "user-1",
		"log_level":  "debug",
		"recalc":     map[string]interface{}{"parallelism": 8},
	}

	data, _ := json.Marshal(testConfig)
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	manager := config.NewManager()
	cfg, err := manager.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.LedgerDir != "data/pots" {
		t.Errorf("expected ledger dir data/pots, got %s", cfg.LedgerDir)
	}
	if cfg.LogLevel != types.LogLevelDebug {
		t.Errorf("expected debug level, got %s", cfg.LogLevel)
	}
	if cfg.Recalc.Parallelism != 8 {
		t.Errorf("expected parallelism 8, got %d", cfg.Recalc.Parallelism)
	}
	if cfg.Server == nil || cfg.Server.Addr == "" {
		t.Error("expected server defaults to be applied")
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "moneypot.config.yaml")

	testConfig := map[string]interface{}{
		"version": "1.0",
		"user":    "user-2",
		"notifications": map[string]interface{}{
			"enabled": true,
		},
		"watch": map[string]interface{}{"debounce_ms": 50},
	}

	data, _ := yaml.Marshal(testConfig)
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	manager := config.NewManager()
	cfg, err := manager.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load YAML config: %v", err)
	}

	if cfg.User != "user-2" {
		t.Errorf("expected user-2, got %s", cfg.User)
	}
	if !cfg.NotificationsEnabled() {
		t.Error("expected notifications to be enabled")
	}
	if cfg.Watch.DebounceMs != 50 {
		t.Errorf("expected debounce 50, got %d", cfg.Watch.DebounceMs)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()
	manager := config.NewManager()

	if _, err := manager.LoadConfig(filepath.Join(tmpDir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	garbage := filepath.Join(tmpDir, "garbage.yaml")
	os.WriteFile(garbage, []byte("version: [1.0"), 0o644)
	if _, err := manager.LoadConfig(garbage); err == nil {
		t.Error("expected parse error")
	}

	wrongVersion := filepath.Join(tmpDir, "v2.yaml")
	os.WriteFile(wrongVersion, []byte("version: \"2.0\"\n"), 0o644)
	_, err := manager.LoadConfig(wrongVersion)
	if err == nil || !strings.Contains(err.Error(), "unsupported config version") {
		t.Errorf("expected version error, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	manager := config.NewManager()

	tests := []struct {
		name    string
		mutate  func(cfg *types.MoneypotConfig)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *types.MoneypotConfig) {},
		},
		{
			name:    "invalid log level",
			mutate:  func(cfg *types.MoneypotConfig) { cfg.LogLevel = "loud" },
			wantErr: "invalid log level",
		},
		{
			name:    "empty server address",
			mutate:  func(cfg *types.MoneypotConfig) { cfg.Server.Addr = "" },
			wantErr: "server address",
		},
		{
			name:    "zero request timeout",
			mutate:  func(cfg *types.MoneypotConfig) { cfg.Server.RequestTimeoutMs = 0 },
			wantErr: "request timeout",
		},
		{
			name:    "negative debounce",
			mutate:  func(cfg *types.MoneypotConfig) { cfg.Watch.DebounceMs = -1 },
			wantErr: "debounce",
		},
		{
			name:    "zero parallelism",
			mutate:  func(cfg *types.MoneypotConfig) { cfg.Recalc.Parallelism = 0 },
			wantErr: "parallelism",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := manager.GetDefaultConfig()
			tt.mutate(cfg)

			err := manager.ValidateConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	manager := config.NewManager()

	for _, name := range []string{"moneypot.config.yaml", "moneypot.config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(tmpDir, name)
			cfg := manager.GetDefaultConfig()
			cfg.User = "round-trip"

			if err := manager.SaveConfig(path, cfg); err != nil {
				t.Fatalf("failed to save config: %v", err)
			}

			loaded, err := manager.LoadConfig(path)
			if err != nil {
				t.Fatalf("failed to load saved config: %v", err)
			}
			if loaded.User != "round-trip" {
				t.Errorf("expected user round-trip, got %s", loaded.User)
			}
			if loaded.NotificationsEnabled() {
				t.Error("expected notifications disabled by default")
			}
		})
	}
}
