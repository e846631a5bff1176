package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// config holds the settings that can come from the YAML config file.
// Flags parse into the same struct; file values only fill in what the
// command line left unset.
type config struct {
	Key      string         `yaml:"key"`
	Provider string         `yaml:"provider"`
	BaseURL  string         `yaml:"base_url"`
	CacheDir string         `yaml:"cache_dir"`
	Log      string         `yaml:"log"`
	Comment  string         `yaml:"comment"`
	Resolver resolverConfig `yaml:"resolver"`
}

// resolverConfig selects how the current IP is determined. Each source
// that is configured becomes a fallback, tried in order: the routing
// probe, then the DNS echo lookup, then the web services.
type resolverConfig struct {
	Probe string   `yaml:"probe"`
	DNS   string   `yaml:"dns"`
	URLs  []string `yaml:"urls"`
}

// loadConfig reads path and expands ${ENV_VAR} references in the key
// field, so config files do not need to hold the key itself.
func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	cfg := &config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	cfg.Key = os.ExpandEnv(cfg.Key)
	return cfg, nil
}

// merge fills c's empty fields from file, keeping whatever flags already
// set.
func (c *config) merge(file *config) {
	if c.Key == "" {
		c.Key = file.Key
	}
	if c.Provider == "" {
		c.Provider = file.Provider
	}
	if c.BaseURL == "" {
		c.BaseURL = file.BaseURL
	}
	if c.CacheDir == "" {
		c.CacheDir = file.CacheDir
	}
	if c.Log == "" {
		c.Log = file.Log
	}
	if c.Comment == "" {
		c.Comment = file.Comment
	}
	if c.Resolver.Probe == "" {
		c.Resolver.Probe = file.Resolver.Probe
	}
	if c.Resolver.DNS == "" {
		c.Resolver.DNS = file.Resolver.DNS
	}
	if len(c.Resolver.URLs) == 0 {
		c.Resolver.URLs = file.Resolver.URLs
	}
}
