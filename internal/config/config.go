// Package config provides configuration management for the key-value store.
// It loads settings from YAML files and environment variables, with
// thread-safe singleton access.
package config

import (
	"log/slog"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config holds all application configuration values.
type Config struct {
	DATA_DIR          string `yaml:"DATA_DIR"`          // Directory where log files are stored
	COMPACT_THRESHOLD uint64 `yaml:"COMPACT_THRESHOLD"` // Dead-byte threshold (bytes) that triggers compaction
	WRITE_BUFFER_SIZE uint32 `yaml:"WRITE_BUFFER_SIZE"` // bufio buffer size for readers/writers
	SYNC_INTERVAL     uint32 `yaml:"SYNC_INTERVAL"`     // Parsed but unused: the engine runs no background fsync
}

// Defaults mirror the invariants spec.md §4.5 names explicitly
// (1 MiB compaction threshold); the rest are sane ambient tunables.
const (
	defaultDataDir          = "."
	defaultCompactThreshold = 1024 * 1024
	defaultWriteBufferSize  = 4096
	defaultSyncInterval     = 0
)

var (
	appConfig *Config
	once      sync.Once
	initErr   error
)

// ConfigPath is the relative/absolute path to the optional YAML config file.
// It may be overridden before the first call to LoadConfig (e.g. by a CLI flag).
var ConfigPath = "config.yml"

// LoadConfig builds the configuration from built-in defaults, optionally
// overlaid by config.yml (if present) and a .env file (if present). It uses
// a sync.Once to ensure configuration is loaded only once, even with
// concurrent calls. Environment variables in the YAML file are expanded
// using os.ExpandEnv. A missing config.yml is not an error: the defaults
// stand alone, so the server/client binaries run with zero setup.
func LoadConfig() (*Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			slog.Debug("config: no .env file found or error loading it", "error", err)
		} else {
			slog.Debug("config: .env file loaded successfully")
		}

		cfg := Config{
			DATA_DIR:          defaultDataDir,
			COMPACT_THRESHOLD: defaultCompactThreshold,
			WRITE_BUFFER_SIZE: defaultWriteBufferSize,
			SYNC_INTERVAL:     defaultSyncInterval,
		}

		file, err := os.ReadFile(ConfigPath)
		if err != nil {
			if !os.IsNotExist(err) {
				initErr = err
				return
			}
			slog.Debug("config: no config.yml found, using defaults", "path", ConfigPath)
		} else {
			if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(file))), &cfg); err != nil {
				initErr = err
				return
			}
		}

		appConfig = &cfg
	})
	if initErr != nil {
		return nil, initErr
	}
	return appConfig, nil
}

// GetConfig returns the singleton configuration instance.
// Panics if configuration has not been loaded yet. This function should
// only be called after LoadConfig has been successfully called.
func GetConfig() *Config {
	if appConfig == nil {
		panic("config not loaded - call LoadConfig() first")
	}
	return appConfig
}
