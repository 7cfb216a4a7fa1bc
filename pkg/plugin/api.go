// Package plugin provides the public API for strata plugin authors.
//
// Plugins extend the installer at named hooks (see pkg/hook) and can be
// written in any language that supports one of the plugin interfaces:
//   - Lua scripts (.lua files) run in an embedded sandbox
//   - Go plugins (.so files) for native performance
//   - Exec plugins (JSON over stdin/stdout) for maximum compatibility
//
// Example Go plugin:
//
//	package main
//
//	import (
//		"context"
//
//		"github.com/strata-install/strata/pkg/hook"
//		"github.com/strata-install/strata/pkg/plugin"
//	)
//
//	type MyPlugin struct{}
//
//	func (p *MyPlugin) Info() plugin.Info {
//		return plugin.Info{
//			Name:    "my-plugin",
//			Version: "1.0.0",
//		}
//	}
//
//	func (p *MyPlugin) Hooks() map[hook.Name]plugin.HookFunc {
//		return map[hook.Name]plugin.HookFunc{
//			hook.OnPacstrap: func(_ context.Context, call *hook.Call) (any, error) {
//				pkgs := hook.Strings(call.Value)
//				return append(pkgs, "nano"), nil
//			},
//		}
//	}
//
//	var Plugin MyPlugin // exported symbol "Plugin" required for Go plugins
package plugin

import (
	"context"

	"github.com/go-viper/mapstructure/v2"

	"github.com/strata-install/strata/pkg/hook"
)

// HookFunc is a hook implementation supplied by a plugin.
//
// A non-nil return value replaces the call's value for the rest of the
// dispatch chain; a nil return leaves it unchanged. A returned error is
// logged by the dispatcher and treated as a nil return; it never aborts
// the host operation.
type HookFunc func(ctx context.Context, call *hook.Call) (any, error)

// Plugin is the interface that all plugins must implement.
//
// Hooks returns the plugin's capability table: an explicit mapping from hook
// name to implementation, built once at load time. The table must not change
// after load.
type Plugin interface {
	// Info returns metadata about the plugin.
	Info() Info

	// Hooks returns the capability table mapping hook names to handlers.
	Hooks() map[hook.Name]HookFunc
}

// Info contains plugin metadata.
type Info struct {
	// Name is the unique plugin identifier. Empty names are replaced by an
	// identifier derived from the plugin's source path.
	Name string `json:"name"`

	// Version is the plugin version (semver recommended).
	Version string `json:"version,omitempty"`

	// Description is a human-readable description of what the plugin does.
	Description string `json:"description,omitempty"`

	// Author is the plugin author or organization.
	Author string `json:"author,omitempty"`

	// URL is a link to the plugin's homepage or documentation.
	URL string `json:"url,omitempty"`

	// Requires is a semver constraint on the host version, e.g. ">= 1.2".
	// A violated constraint logs a warning; the plugin still loads.
	Requires string `json:"requires,omitempty"`

	// Hooks lists hook names for plugin kinds that cannot be probed
	// in-process (exec plugins report their hooks via --info).
	Hooks []string `json:"hooks,omitempty"`
}

// HookRequest is the wire form of a hook call for exec plugins.
// It is written to the plugin's stdin as JSON.
type HookRequest struct {
	// Hook is the extension point being dispatched.
	Hook string `json:"hook"`

	// Value is the value being transformed.
	Value any `json:"value"`

	// Args carry supporting call-site context.
	Args map[string]any `json:"args,omitempty"`

	// Config contains plugin-specific configuration from the config file.
	Config map[string]any `json:"config,omitempty"`
}

// HookResponse is the wire form of a hook result for exec plugins,
// read from the plugin's stdout as JSON. A null Value means "no change".
type HookResponse struct {
	Value any `json:"value"`
}

// DecodeArgs decodes a call's Args map into a typed struct. Field names are
// matched by the "mapstructure" tag, falling back to case-insensitive field
// name matching.
func DecodeArgs(call *hook.Call, out any) error {
	return mapstructure.Decode(call.Args, out)
}
