package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// defaultPluginTimeout is the default timeout for plugin operations.
	defaultPluginTimeout = 5 * time.Second
)

// PluginConfig contains configuration for the plugin system.
type PluginConfig struct {
	// Enabled controls whether plugin support is enabled.
	// Default: true
	Enabled *bool `json:"enabled,omitempty" koanf:"enabled" toml:"enabled"`

	// Plugin is an explicit plugin path or URL, normally fed by the
	// --plugin flag. It is retained in the saved run configuration so a
	// re-invocation reloads the same plugin. Explicit loads happen before
	// discovery.
	Plugin string `json:"plugin,omitempty" koanf:"plugin" toml:"plugin,omitempty"`

	// Directory is an additional directory scanned during discovery.
	Directory string `json:"directory,omitempty" koanf:"directory" toml:"directory,omitempty"`

	// Discovery controls whether the plugin directories are scanned.
	// Default: true
	Discovery *bool `json:"discovery,omitempty" koanf:"discovery" toml:"discovery"`

	// Disabled lists plugin names excluded from discovery.
	Disabled []string `json:"disabled,omitempty" koanf:"disabled" toml:"disabled,omitempty"`

	// Plugins is the list of explicitly configured plugin instances.
	Plugins []*PluginInstanceConfig `json:"plugins,omitempty" koanf:"plugins" toml:"plugins,omitempty"`

	// DefaultTimeout is the default timeout for plugin operations.
	// Default: "5s"
	DefaultTimeout Duration `json:"default_timeout,omitempty" koanf:"default_timeout" toml:"default_timeout,omitempty"`
}

// PluginInstanceConfig configures a single plugin instance.
type PluginInstanceConfig struct {
	// Name is the unique identifier for this plugin instance. When empty,
	// the identifier is derived from the path.
	Name string `json:"name,omitempty" koanf:"name" toml:"name,omitempty"`

	// Type specifies the plugin type ("lua", "go", or "exec"). When empty,
	// the type is inferred from the path.
	Type PluginType `json:"type,omitempty" koanf:"type" toml:"type,omitempty"`

	// Enabled controls whether this plugin is enabled.
	// Default: true
	Enabled *bool `json:"enabled,omitempty" koanf:"enabled" toml:"enabled"`

	// Path is the file path or URL of the plugin.
	Path string `json:"path" koanf:"path" toml:"path"`

	// Args are command-line arguments for exec plugins.
	Args []string `json:"args,omitempty" koanf:"args" toml:"args,omitempty"`

	// Timeout is the maximum time to wait for plugin operations.
	// Default: inherited from PluginConfig.DefaultTimeout
	Timeout Duration `json:"timeout,omitempty" koanf:"timeout" toml:"timeout,omitempty"`

	// Hooks restricts which hooks dispatch reaches this plugin, as glob
	// patterns over hook names (e.g. ["on_pac*"]). Empty means all hooks.
	Hooks []string `json:"hooks,omitempty" koanf:"hooks" toml:"hooks,omitempty"`

	// Config contains plugin-specific configuration passed to the plugin.
	Config map[string]any `json:"config,omitempty" koanf:"config" toml:"config,omitempty"`
}

// PluginType represents the type of plugin loader to use.
type PluginType string

const (
	// PluginTypeLua loads Lua scripts into the embedded sandbox.
	PluginTypeLua PluginType = "lua"

	// PluginTypeGo loads native Go plugins (.so files).
	PluginTypeGo PluginType = "go"

	// PluginTypeExec executes plugins as subprocesses with JSON I/O.
	PluginTypeExec PluginType = "exec"
)

// IsEnabled returns whether the plugin system is enabled.
func (p *PluginConfig) IsEnabled() bool {
	if p == nil {
		return false
	}

	if p.Enabled == nil {
		return true
	}

	return *p.Enabled
}

// DiscoveryEnabled returns whether directory discovery is enabled.
func (p *PluginConfig) DiscoveryEnabled() bool {
	if p == nil || p.Discovery == nil {
		return true
	}

	return *p.Discovery
}

// IsDisabled returns whether the named plugin is excluded from discovery.
func (p *PluginConfig) IsDisabled(name string) bool {
	if p == nil {
		return false
	}

	for _, d := range p.Disabled {
		if d == name {
			return true
		}
	}

	return false
}

// GetDefaultTimeout returns the default timeout for plugin operations.
func (p *PluginConfig) GetDefaultTimeout() time.Duration {
	if p == nil || p.DefaultTimeout == 0 {
		return defaultPluginTimeout
	}

	return time.Duration(p.DefaultTimeout)
}

// GetDirectory returns the extra discovery directory with ~ expanded,
// or empty when unset.
func (p *PluginConfig) GetDirectory() string {
	if p == nil || p.Directory == "" {
		return ""
	}

	return expandHome(p.Directory)
}

// IsInstanceEnabled returns whether this plugin instance is enabled.
func (c *PluginInstanceConfig) IsInstanceEnabled() bool {
	if c.Enabled == nil {
		return true
	}

	return *c.Enabled
}

// GetTimeout returns the timeout for this plugin, falling back to the provided default.
func (c *PluginInstanceConfig) GetTimeout(defaultTimeout time.Duration) time.Duration {
	if c.Timeout == 0 {
		return defaultTimeout
	}

	return time.Duration(c.Timeout)
}

// AllowsHook returns whether dispatch for the named hook reaches this
// plugin. An empty Hooks list allows everything; invalid patterns are
// treated as non-matching.
func (c *PluginInstanceConfig) AllowsHook(name string) bool {
	if c == nil || len(c.Hooks) == 0 {
		return true
	}

	for _, pattern := range c.Hooks {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}

	return false
}

// expandHome expands a leading ~ to the user home directory.
func expandHome(dir string) string {
	if len(dir) == 0 || dir[0] != '~' {
		return dir
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to unexpanded path if home dir cannot be determined
		return dir
	}

	if len(dir) == 1 {
		return homeDir
	}

	if dir[1] == '/' || dir[1] == filepath.Separator {
		return filepath.Join(homeDir, dir[2:])
	}

	return dir
}
