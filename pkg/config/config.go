// Package config handles configuration loading and management
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moneypot/moneypot/pkg/types"
)

// DefaultFileName is the config file looked up in the project root
const DefaultFileName = "moneypot.config.yaml"

// Manager handles configuration operations
type Manager struct{}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// LoadConfig loads configuration from a JSON or YAML file and fills in
// defaults for anything left unset
func (m *Manager) LoadConfig(path string) (*types.MoneypotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := m.parse(path, data)
	if err != nil {
		return nil, err
	}

	m.ApplyDefaults(cfg)
	return m.validateConfig(cfg)
}

func (m *Manager) parse(path string, data []byte) (*types.MoneypotConfig, error) {
	var cfg types.MoneypotConfig

	// Try JSON first
	if strings.EqualFold(filepath.Ext(path), ".json") || json.Valid(data) {
		if err := json.Unmarshal(data, &cfg); err == nil {
			return &cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, &cfg); err == nil {
		return &cfg, nil
	}

	return nil, fmt.Errorf("failed to parse config as JSON or YAML")
}

// ValidateConfig validates a configuration
func (m *Manager) ValidateConfig(config *types.MoneypotConfig) error {
	if config.Version != types.ConfigVersion {
		return fmt.Errorf("unsupported config version: %s", config.Version)
	}

	switch config.LogLevel {
	case "", types.LogLevelDebug, types.LogLevelInfo, types.LogLevelWarn, types.LogLevelError:
	default:
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	if config.Server != nil {
		if config.Server.Addr == "" {
			return fmt.Errorf("server address must not be empty")
		}
		if config.Server.RequestTimeoutMs <= 0 {
			return fmt.Errorf("server request timeout must be positive")
		}
	}

	if config.Watch != nil && config.Watch.DebounceMs < 0 {
		return fmt.Errorf("watch debounce must not be negative")
	}

	if config.Recalc != nil && config.Recalc.Parallelism <= 0 {
		return fmt.Errorf("recalc parallelism must be positive")
	}

	return nil
}

// GetDefaultConfig returns the configuration used when no file exists
func (m *Manager) GetDefaultConfig() *types.MoneypotConfig {
	cfg := &types.MoneypotConfig{Version: types.ConfigVersion}
	m.ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset sections with their defaults
func (m *Manager) ApplyDefaults(cfg *types.MoneypotConfig) {
	if cfg.LedgerDir == "" {
		cfg.LedgerDir = filepath.Join(".moneypot", "pots")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = types.LogLevelInfo
	}
	if cfg.Notifications == nil {
		enabled := false
		cfg.Notifications = &types.NotificationConfig{Enabled: &enabled}
	}
	if cfg.Server == nil {
		cfg.Server = &types.ServerConfig{
			Addr:             "127.0.0.1:8080",
			RequestTimeoutMs: 5000,
		}
	}
	if cfg.Watch == nil {
		cfg.Watch = &types.WatchConfig{DebounceMs: 500}
	}
	if cfg.Recalc == nil {
		cfg.Recalc = &types.RecalcConfig{Parallelism: 4}
	}
}

// SaveConfig writes the configuration as YAML, or JSON when path ends in .json
func (m *Manager) SaveConfig(path string, cfg *types.MoneypotConfig) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (m *Manager) validateConfig(cfg *types.MoneypotConfig) (*types.MoneypotConfig, error) {
	if err := m.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
