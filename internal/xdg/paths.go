// Package xdg provides centralized path management following XDG Base
// Directory conventions. All global/user-level paths strata touches on disk
// are defined here. Project-local paths (.strata/config.toml,
// .strata/plugins) remain with their owners.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "strata"

// ConfigHome returns $XDG_CONFIG_HOME or ~/.config.
func ConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("~", ".config")
	}

	return filepath.Join(home, ".config")
}

// DataHome returns $XDG_DATA_HOME or ~/.local/share.
func DataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("~", ".local", "share")
	}

	return filepath.Join(home, ".local", "share")
}

// StateHome returns $XDG_STATE_HOME or ~/.local/state.
func StateHome() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return v
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("~", ".local", "state")
	}

	return filepath.Join(home, ".local", "state")
}

// ConfigDir returns the strata configuration directory.
func ConfigDir() string {
	return filepath.Join(ConfigHome(), appName)
}

// ConfigFile returns the global configuration file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// PluginDir returns the user plugin directory scanned during discovery.
func PluginDir() string {
	return filepath.Join(DataHome(), appName, "plugins")
}

// ProfileDir returns the user profile directory.
func ProfileDir() string {
	return filepath.Join(DataHome(), appName, "profiles")
}

// LogDir returns the log directory.
func LogDir() string {
	return filepath.Join(StateHome(), appName)
}

// LogFile returns the default log file path.
func LogFile() string {
	return filepath.Join(LogDir(), "strata.log")
}
