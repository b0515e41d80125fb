// Package config loads xenctl's YAML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds xenctl's configuration: the defaults a serve/connect
// invocation falls back to when a flag is not given explicitly.
// ConnectTimeout is loaded from the file, but no xenctl command applies it:
// connect dials without a timeout.
type Config struct {
	ListenAddress  string        `yaml:"listen_address"`
	ListenPort     int           `yaml:"listen_port"`
	MaxClients     int           `yaml:"max_clients"`
	Encoding       string        `yaml:"encoding"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DefaultPath returns the default config file path: ~/.xen/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".xen", "config.yaml")
	}
	return filepath.Join(home, ".xen", "config.yaml")
}

// Load reads the configuration from the given YAML file path. If the file
// does not exist, it returns a default Config with no error.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:  "127.0.0.1",
		ListenPort:     0,
		MaxClients:     -1,
		Encoding:       "iso8859-1",
		ConnectTimeout: 10 * time.Second,
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("xen: config: stat %s: %w", path, err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		fmt.Fprintf(os.Stderr,
			"warning: config file %s has permissions %04o — expected 0600\n",
			path, perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("xen: config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("xen: config: parse %s: %w", path, err)
	}
	return cfg, nil
}
