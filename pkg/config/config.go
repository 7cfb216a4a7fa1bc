// Package config provides configuration schema types for the strata installer.
package config

// CurrentConfigVersion is the latest config schema version.
const CurrentConfigVersion = 1

// Config represents the root configuration for strata.
type Config struct {
	// Version is the config schema version. Defaults to 1 when omitted.
	Version int `json:"version,omitempty" koanf:"version" toml:"version,omitempty"`

	// Install groups the installation engine settings.
	Install *InstallConfig `json:"install,omitempty" koanf:"install" toml:"install,omitempty"`

	// Plugins contains configuration for external plugins.
	Plugins *PluginConfig `json:"plugins,omitempty" koanf:"plugins" toml:"plugins,omitempty"`
}

// GetInstall returns the install config, never nil.
func (c *Config) GetInstall() *InstallConfig {
	if c == nil || c.Install == nil {
		return &InstallConfig{}
	}

	return c.Install
}

// GetPlugins returns the plugin config (may be nil when unset).
func (c *Config) GetPlugins() *PluginConfig {
	if c == nil {
		return nil
	}

	return c.Plugins
}
