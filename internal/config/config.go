// Package config provides configuration management for gatebook.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultListenAddr = "127.0.0.1:7410"
	DefaultDriver     = "sqlite"
	DefaultMaxConns   = 4
	DefaultLogLevel   = "info"
	dataDirName       = ".gatebook"
	dbFileName        = "gatebook.db"
	configFileName    = "config.yaml"
)

// Config is the daemon configuration, loaded from YAML.
type Config struct {
	DataDir    string `yaml:"data_dir"`
	Driver     string `yaml:"driver"` // sqlite, postgres, or memory
	DBPath     string `yaml:"db_path"`
	DSN        string `yaml:"dsn"` // postgres only
	MaxConns   int    `yaml:"max_conns"`
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
}

// Default returns the default configuration rooted at ~/.gatebook.
func Default() *Config {
	cfg := &Config{}
	cfg.normalize()
	return cfg
}

// DataDir returns the default data directory path.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dataDirName
	}
	return filepath.Join(home, dataDirName)
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(DataDir(), configFileName)
}

// Load reads the YAML file at path. A missing file is not an error: defaults
// are returned. Fields absent from the file get their default values, with
// db_path derived from data_dir when only the latter is set.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.normalize()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.DataDir == "" {
		c.DataDir = DataDir()
	}
	if c.Driver == "" {
		c.Driver = DefaultDriver
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, dbFileName)
	}
	if c.MaxConns <= 0 {
		c.MaxConns = DefaultMaxConns
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// EnsureDataDir creates the data directory if it does not exist.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}
