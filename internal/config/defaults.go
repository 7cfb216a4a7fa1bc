package config

import (
	"time"

	"github.com/strata-install/strata/pkg/config"
)

const (
	// DefaultPluginTimeout bounds a single plugin hook call.
	DefaultPluginTimeout = 5 * time.Second

	// DefaultTarget is the default installation mount point.
	DefaultTarget = "/mnt/archinstall"
)

// DefaultConfig returns a Config with all default values populated.
func DefaultConfig() *config.Config {
	return &config.Config{
		Version: config.CurrentConfigVersion,
		Install: DefaultInstallConfig(),
		Plugins: DefaultPluginConfig(),
	}
}

// DefaultInstallConfig returns the default installation settings.
func DefaultInstallConfig() *config.InstallConfig {
	dryRun := false

	return &config.InstallConfig{
		Target: DefaultTarget,
		DryRun: &dryRun,
	}
}

// DefaultPluginConfig returns the default plugin settings. Plugins and
// discovery are on by default; explicit paths come from flags or files.
func DefaultPluginConfig() *config.PluginConfig {
	enabled := true
	discovery := true

	return &config.PluginConfig{
		Enabled:        &enabled,
		Discovery:      &discovery,
		DefaultTimeout: config.Duration(DefaultPluginTimeout),
	}
}

// defaultsToMap flattens the defaults for koanf's confmap provider.
func defaultsToMap() map[string]any {
	return map[string]any{
		"version":                 config.CurrentConfigVersion,
		"install.target":          DefaultTarget,
		"install.dry_run":         false,
		"plugins.enabled":         true,
		"plugins.discovery":       true,
		"plugins.default_timeout": DefaultPluginTimeout.String(),
	}
}
