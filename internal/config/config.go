package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the default config location
const EnvConfigPath = "BILLHOURS_CONFIG"

type Config struct {
	// Database settings
	Database DatabaseConfig `yaml:"database"`

	// How time entries are attributed to contracts
	Allocation AllocationConfig `yaml:"allocation"`

	Log LogConfig `yaml:"log"`

	Display DisplayConfig `yaml:"display"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to SQLite database
}

type AllocationConfig struct {
	SmartTimeEntries       bool `yaml:"smart_time_entries"`        // Claim unassigned entries by date range
	LegacySingleEntryRange bool `yaml:"legacy_single_entry_range"` // Old start-date-only range for single entry lookups
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // human or json
}

type DisplayConfig struct {
	ShowLockedContracts bool `yaml:"show_locked_contracts"`
	PageSize            int  `yaml:"page_size"`
}

func configDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir unavailable
		return filepath.Join(".", ".config", "billhours")
	}
	return filepath.Join(homeDir, ".config", "billhours")
}

// DefaultConfigPath returns $BILLHOURS_CONFIG or ~/.config/billhours/config.yaml
func DefaultConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(configDir(), "billhours.db"),
		},
		Allocation: AllocationConfig{
			SmartTimeEntries: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "human",
		},
		Display: DisplayConfig{
			PageSize: 25,
		},
	}
}

// Load loads config from the given path, or returns defaults if file doesn't exist
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadDefault loads from the default config path
func LoadDefault() (*Config, error) {
	return Load(DefaultConfigPath())
}

// Validate checks the enumerated settings
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "human", "json":
	default:
		return fmt.Errorf("log.format %q is not one of human, json", c.Log.Format)
	}
	if c.Display.PageSize <= 0 {
		return fmt.Errorf("display.page_size must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

// Save writes the config to the given path
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// EnsureDirectories creates the database directory
func (c *Config) EnsureDirectories() error {
	return os.MkdirAll(filepath.Dir(c.Database.Path), 0700)
}
