// Package plugin provides internal plugin loading and registry infrastructure.
package plugin

//go:generate mockgen -source=plugin.go -destination=plugin_mock.go -package=plugin

import (
	"context"

	"github.com/strata-install/strata/pkg/hook"
	"github.com/strata-install/strata/pkg/plugin"
)

// Plugin represents a loaded plugin instance that can be invoked.
// This is the internal interface used by the dispatcher, separate from the
// public API in pkg/plugin. The capability table reported by Hooks is frozen
// at load time and never changes afterwards.
type Plugin interface {
	// Info returns metadata about the plugin.
	Info() plugin.Info

	// Hooks returns the hook names this plugin implements.
	Hooks() []hook.Name

	// Invoke calls the plugin's implementation of the given hook. A nil
	// result means the call's value is left unchanged. Context is used for
	// timeouts and cancellation.
	Invoke(ctx context.Context, call *hook.Call) (any, error)

	// Close releases any resources held by the plugin. For Go plugins this
	// is a no-op, for Lua plugins it tears down the interpreter state, and
	// for exec plugins there is nothing to release.
	Close() error
}

// hasHook reports whether names contains the given hook.
func hasHook(names []hook.Name, name hook.Name) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}

	return false
}
