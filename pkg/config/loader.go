package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader reads the YAML configuration and applies the environment overlay
type Loader struct {
	configPath string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load returns defaults, overridden by the config file (if any), overridden
// by ERA_* environment variables, and validated.
func (l *Loader) Load() (*Config, error) {
	if l.configPath == "" {
		l.configPath = os.Getenv("ERA_CONFIG")
	}

	cfg := Default()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// a missing file means defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configPath, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Path returns the file the loader read, if any
func (l *Loader) Path() string {
	return l.configPath
}

// LoadFromBytes parses YAML on top of the defaults without the environment
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
