// Package config holds the toolchain's persisted settings: execution
// limits, API server options, and the CLI's display defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config is the xenon-toolchain configuration.
type Config struct {
	Execution struct {
		MaxSteps         uint64 `toml:"max_steps"`
		AllowFileInclude bool   `toml:"allow_file_include"`
		LibraryDir       string `toml:"library_dir"`
		EnableTrace      bool   `toml:"enable_trace"`
		EnableStats      bool   `toml:"enable_stats"`
	} `toml:"execution"`

	Display struct {
		ColorOutput  bool   `toml:"color_output"`
		NumberFormat string `toml:"number_format"` // hex, dec
		ShowScreen   bool   `toml:"show_screen"`
	} `toml:"display"`

	API struct {
		Port           int    `toml:"port"`
		AllowedOrigin  string `toml:"allowed_origin"`
		StepIntervalMS int    `toml:"step_interval_ms"`
	} `toml:"api"`

	Trace struct {
		OutputFile string `toml:"output_file"`
		MaxEntries int    `toml:"max_entries"`
	} `toml:"trace"`
}

// DefaultConfig returns the toolchain's built-in defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Execution.MaxSteps = 1_000_000
	cfg.Execution.AllowFileInclude = true
	cfg.Execution.LibraryDir = "."
	cfg.Execution.EnableTrace = false
	cfg.Execution.EnableStats = false

	cfg.Display.ColorOutput = true
	cfg.Display.NumberFormat = "dec"
	cfg.Display.ShowScreen = true

	cfg.API.Port = 8787
	cfg.API.AllowedOrigin = "localhost"
	cfg.API.StepIntervalMS = 50

	cfg.Trace.OutputFile = "xenon-trace.log"
	cfg.Trace.MaxEntries = 100000

	return cfg
}

// GetConfigPath returns the platform-specific config file path,
// creating its containing directory if needed.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "xenon-toolchain")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "xenon-toolchain")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the given path, returning the
// defaults unmodified when the file does not exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the given path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user-supplied config path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
