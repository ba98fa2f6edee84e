package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	ShellPowerShell = "powershell"
	ShellPOSIX      = "sh"

	PolicyFailFast        = "fail-fast"
	PolicyContinueOnError = "continue"
)

// EnvPrefix prefixes every environment override, e.g. SCOOPBOX_TOOL.
const EnvPrefix = "SCOOPBOX"

// Environment keys derive from field names, e.g. SCOOPBOX_CACHE_DIR. No
// envconfig tags: a tagged key is also looked up without the prefix.
type Config struct {
	Tool           string   `yaml:"tool" split_words:"true"`
	Shell          string   `yaml:"shell" split_words:"true"`
	CacheDir       string   `yaml:"cache_dir" split_words:"true"`
	DefaultBuckets []string `yaml:"default_buckets" split_words:"true"`
	BatchPolicy    string   `yaml:"batch_policy" split_words:"true"`
	LogLevel       string   `yaml:"log_level" split_words:"true"`
	LogFile        string   `yaml:"log_file" split_words:"true"`

	// Selected holds packages picked in the UI, kept across searches and runs.
	Selected []string `yaml:"selected" ignored:"true"`

	path string
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "scoopbox", "config.yaml"), nil
}

// DefaultCacheDir is the per-user directory holding the cache records.
func DefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".app_manager_cache"), nil
}

// Default returns the settings used when no file or environment says otherwise.
func Default() *Config {
	shell := ShellPOSIX
	if runtime.GOOS == "windows" {
		shell = ShellPowerShell
	}
	return &Config{
		Tool:           "scoop",
		Shell:          shell,
		DefaultBuckets: []string{"extras", "versions", "java", "games"},
		BatchPolicy:    PolicyFailFast,
		LogLevel:       "info",
		Selected:       []string{},
	}
}

func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the YAML file at path over the defaults and then applies
// SCOOPBOX_* environment overrides. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if cfg.Selected == nil {
		cfg.Selected = []string{}
	}
	if err := cfg.fillPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) fillPaths() error {
	if c.CacheDir == "" {
		dir, err := DefaultCacheDir()
		if err != nil {
			return err
		}
		c.CacheDir = dir
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.CacheDir, "scoopbox.log")
	}
	return nil
}

// Validate rejects settings the rest of the program cannot act on.
func (c *Config) Validate() error {
	if c.Tool == "" {
		return fmt.Errorf("tool must not be empty")
	}
	switch c.Shell {
	case ShellPowerShell, ShellPOSIX:
	default:
		return fmt.Errorf("unknown shell %q (want %q or %q)", c.Shell, ShellPowerShell, ShellPOSIX)
	}
	switch c.BatchPolicy {
	case PolicyFailFast, PolicyContinueOnError:
	default:
		return fmt.Errorf("unknown batch_policy %q (want %q or %q)", c.BatchPolicy, PolicyFailFast, PolicyContinueOnError)
	}
	return nil
}

func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

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

func (c *Config) IsSelected(pkg string) bool {
	for _, p := range c.Selected {
		if p == pkg {
			return true
		}
	}
	return false
}

func (c *Config) Select(pkg string) {
	if !c.IsSelected(pkg) {
		c.Selected = append(c.Selected, pkg)
	}
}

func (c *Config) Deselect(pkg string) {
	for i, p := range c.Selected {
		if p == pkg {
			c.Selected = append(c.Selected[:i], c.Selected[i+1:]...)
			return
		}
	}
}

func (c *Config) ToggleSelected(pkg string) bool {
	if c.IsSelected(pkg) {
		c.Deselect(pkg)
		return false
	}
	c.Select(pkg)
	return true
}

// ClearSelected drops every selection.
func (c *Config) ClearSelected() {
	c.Selected = []string{}
}
