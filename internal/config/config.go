package config

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/BurntSushi/toml"
	"github.com/lydakis/shelld/internal/paths"
)

// Load reads the config file and returns the parsed Config with defaults
// filled in. If the config file does not exist, it returns the defaults
// (no error).
func Load() (*Config, error) {
	return LoadFrom(paths.ConfigFile())
}

// LoadFrom reads and parses a config file at the given path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Shell == "" {
		cfg.Shell = DefaultShell
		if _, err := exec.LookPath(cfg.Shell); err != nil {
			cfg.Shell = "sh"
		}
		if cfg.ShellArgs == nil && cfg.Shell == DefaultShell {
			cfg.ShellArgs = DefaultShellArgs()
		}
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = DefaultMaxLineBytes
	}
}

// ExampleConfigPath returns the default config file path (for help messages).
func ExampleConfigPath() string {
	return paths.ConfigFile()
}
