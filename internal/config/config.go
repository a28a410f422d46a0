package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvBackendURL overrides Backend.URL when set.
const EnvBackendURL = "NETCONSOLE_BACKEND"

// Config represents the console configuration
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Logs    LogsConfig    `yaml:"logs"`
	UI      UIConfig      `yaml:"ui"`

	// ConfigPath is the path to the config file (not serialized)
	ConfigPath string `yaml:"-"`
}

// BackendConfig describes how to reach the NetManager backend
type BackendConfig struct {
	// URL is the origin the backend is served from, e.g. http://192.168.1.1:8080
	URL         string        `yaml:"url"`
	Timeout     time.Duration `yaml:"timeout"`
	LiveLogPath string        `yaml:"live_log_path"`
}

// LogsConfig sizes the in-memory buffers
type LogsConfig struct {
	Capacity       int `yaml:"capacity"`        // live log lines kept
	NoticeCapacity int `yaml:"notice_capacity"` // console notifications kept
	HistorySize    int `yaml:"history_size"`    // login trigger attempts kept
}

// UIConfig represents terminal console settings
type UIConfig struct {
	PrefsPath string `yaml:"prefs_path,omitempty"`
	BackupDir string `yaml:"backup_dir"`
	Mouse     bool   `yaml:"mouse"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:         "http://127.0.0.1:8080",
			Timeout:     15 * time.Second,
			LiveLogPath: "/ws",
		},
		Logs: LogsConfig{
			Capacity:       200,
			NoticeCapacity: 100,
			HistorySize:    50,
		},
		UI: UIConfig{
			BackupDir: ".",
			Mouse:     true,
		},
	}
}

// Load loads configuration from the first config file found
func Load() (*Config, error) {
	// Try to find config file in common locations
	configPaths := []string{
		"netconsole.yaml",
		"configs/netconsole.yaml",
		"/etc/netconsole/netconsole.yaml",
	}

	var err error
	for _, path := range configPaths {
		var cfg *Config
		cfg, err = LoadFile(path)
		if err == nil {
			return cfg, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	return nil, err
}

// LoadFile loads configuration from a specific file, filling unset
// fields from Default.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.ConfigPath = path
	return cfg, nil
}

// ApplyEnv applies environment overrides
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		c.Backend.URL = v
	}
}

// Validate checks the fields the console cannot run without
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend url is required")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive, got %v", c.Backend.Timeout)
	}
	if !strings.HasPrefix(c.Backend.LiveLogPath, "/") {
		return fmt.Errorf("live log path must start with '/', got %q", c.Backend.LiveLogPath)
	}
	if c.Logs.Capacity <= 0 {
		return fmt.Errorf("logs capacity must be positive, got %d", c.Logs.Capacity)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
