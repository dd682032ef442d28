// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultIPCPath is the default unix socket path for daemon IPC.
const DefaultIPCPath = "/tmp/keywarden.sock"

// ServerConfig represents the kwardend configuration file
type ServerConfig struct {
	StoreDir      string `yaml:"store" description:"Key store directory (defaults to the data directory)"`
	IPCPath       string `yaml:"ipc_path" description:"Unix socket path for admin IPC" default:"/tmp/keywarden.sock"`
	AuditLogPath  string `yaml:"audit_log" description:"Audit log file path" default:"audit.log"`
	PurgeInterval string `yaml:"purge_interval" description:"How often expired deactivated keys are swept (0=never)" default:"1h"`
	WatchStore    *bool  `yaml:"watch_store" description:"Reload and notify clients when the registry changes on disk" default:"true"`
}

// ResolvePath resolves a path relative to baseDir if not absolute.
// Returns path unchanged if empty or already absolute.
func ResolvePath(path, baseDir string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// DefaultServerConfig returns the default server configuration
// Relative paths in config are resolved relative to the data directory ($KEYWARDEN_DATA)
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		StoreDir:      "", // empty = data directory itself
		IPCPath:       DefaultIPCPath,
		AuditLogPath:  "audit.log",
		PurgeInterval: "1h",
	}
}

// GetDataDir returns the data directory for kwardend.
// It checks -d flag value first (passed as parameter), then KEYWARDEN_DATA env var.
// Returns empty string if neither is set.
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("KEYWARDEN_DATA")
}

// RequireDataDir resolves the daemon data directory from the flag value
// or KEYWARDEN_DATA environment variable. Exits if neither is set.
func RequireDataDir(flagValue string) string {
	dir := GetDataDir(flagValue)
	if dir == "" {
		fmt.Fprintln(os.Stderr, "Error: Data directory not specified")
		fmt.Fprintln(os.Stderr, "Use -d <path> or set KEYWARDEN_DATA environment variable")
		os.Exit(1)
	}
	return dir
}

// LoadServerConfig loads configuration from a YAML file in the data directory.
// The dataDir parameter is required - use GetDataDir() to resolve it.
// Config file is expected at <dataDir>/config.yaml.
// Returns default config if file doesn't exist or can't be read.
func LoadServerConfig(dataDir string) ServerConfig {
	defaults := DefaultServerConfig()

	if dataDir == "" {
		return defaults
	}

	path := filepath.Join(dataDir, "config.yaml")

	// Try to read config file
	data, err := os.ReadFile(path)
	if err != nil {
		// File doesn't exist or can't be read - use defaults
		return defaults
	}

	// Parse YAML
	var config ServerConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: Failed to parse config file %s: %v\n", path, err)
		return defaults
	}

	// Fill in missing fields with defaults
	if config.IPCPath == "" {
		config.IPCPath = defaults.IPCPath
	}
	if config.AuditLogPath == "" {
		config.AuditLogPath = defaults.AuditLogPath
	}
	if config.PurgeInterval == "" {
		config.PurgeInterval = defaults.PurgeInterval
	}

	// Resolve relative paths to absolute paths based on dataDir
	config.StoreDir = ResolvePath(config.StoreDir, dataDir)
	config.AuditLogPath = ResolvePath(config.AuditLogPath, dataDir)

	return config
}

// EffectiveStoreDir returns the directory holding the key registry.
// Defaults to the data directory when no store is configured.
func (c *ServerConfig) EffectiveStoreDir(dataDir string) string {
	if c.StoreDir != "" {
		return c.StoreDir
	}
	return dataDir
}

// ShouldWatchStore returns whether the daemon watches the registry file
// for external changes. Defaults to true if not explicitly set.
func (c *ServerConfig) ShouldWatchStore() bool {
	if c.WatchStore == nil {
		return true
	}
	return *c.WatchStore
}

// ParsePurgeInterval parses the purge interval string into a time.Duration.
// Accepts formats like: "0" (never sweep), "30m", "1h".
// Negative durations are rejected.
func ParsePurgeInterval(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil // Never sweep
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format: %w", err)
	}

	if duration < 0 {
		return 0, fmt.Errorf("negative duration %q not supported (use \"0\" to disable)", s)
	}

	return duration, nil
}
