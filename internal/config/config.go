// Package config loads Grove configuration and resolves the sync feature
// flag.
//
// Configuration comes from {dataDir}/config.yaml plus GROVE_* environment
// variables (GROVE_REMOTE_DATABASE, GROVE_SYNC_DISABLED, ...). The result
// is an immutable Config value: the sync flag is computed once at load
// time and never re-evaluated for the process lifetime.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DirName is the data directory Grove looks for.
const DirName = ".grove"

// Config holds resolved configuration. Treat as read-only after Load.
type Config struct {
	// DataDir is the .grove directory holding all local state.
	DataDir string

	// RemoteDatabase is the path of the embedded remote document store.
	// Empty means sync is not configured.
	RemoteDatabase string

	// SyncEnabled is the one-shot feature flag: remote configuration is
	// present and valid, and sync has not been explicitly disabled.
	SyncEnabled bool

	// DashboardPort is the websocket dashboard listen port.
	DashboardPort int

	// DebounceInterval batches rapid local changes in the auto-sync daemon.
	DebounceInterval time.Duration

	// DaemonLogFile is the rotating log file for the auto-sync daemon.
	// Empty means log to stderr.
	DaemonLogFile string
}

// Load reads configuration for the given data directory.
//
// dataDir may be empty, in which case FindDataDir is used. A missing
// config file is not an error; defaults and environment apply.
func Load(dataDir string) (*Config, error) {
	if dataDir == "" {
		dataDir = FindDataDir()
	}
	if dataDir == "" {
		return nil, fmt.Errorf("no %s directory found (run 'grove init' or set GROVE_DIR)", DirName)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)

	v.SetEnvPrefix("GROVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("remote.database", "")
	v.SetDefault("sync.disabled", false)
	v.SetDefault("dashboard.port", 8337)
	v.SetDefault("daemon.debounce", "500ms")
	v.SetDefault("daemon.logfile", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	debounce, err := time.ParseDuration(v.GetString("daemon.debounce"))
	if err != nil {
		return nil, fmt.Errorf("invalid daemon.debounce: %w", err)
	}

	remoteDB := v.GetString("remote.database")

	cfg := &Config{
		DataDir:          dataDir,
		RemoteDatabase:   remoteDB,
		SyncEnabled:      remoteConfigured(remoteDB) && !v.GetBool("sync.disabled"),
		DashboardPort:    v.GetInt("dashboard.port"),
		DebounceInterval: debounce,
		DaemonLogFile:    v.GetString("daemon.logfile"),
	}

	return cfg, nil
}

// remoteConfigured reports whether the remote database setting is present
// and not an obvious template placeholder.
func remoteConfigured(path string) bool {
	if path == "" {
		return false
	}
	lower := strings.ToLower(path)
	for _, marker := range []string{"replace-me", "changeme", "your-", "<", ">"} {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

// FindDataDir locates the .grove directory.
//
// GROVE_DIR takes precedence; otherwise the current directory and its
// ancestors are searched. Returns "" if none is found.
func FindDataDir() string {
	if dir := os.Getenv("GROVE_DIR"); dir != "" {
		return dir
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		if dir == filepath.Dir(dir) {
			return ""
		}
	}
}

// IdentityPath returns the persisted identity file location.
func (c *Config) IdentityPath() string {
	return filepath.Join(c.DataDir, "identity.json")
}

// PrefsPath returns the sync preferences file location.
func (c *Config) PrefsPath() string {
	return filepath.Join(c.DataDir, "syncprefs.json")
}

// ProfilePath returns the user profile blob location.
func (c *Config) ProfilePath() string {
	return filepath.Join(c.DataDir, "profile.json")
}
