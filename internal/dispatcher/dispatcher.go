// Package dispatcher chains hook invocations across registered plugins.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/strata-install/strata/internal/plugin"
	"github.com/strata-install/strata/pkg/hook"
	"github.com/strata-install/strata/pkg/logger"
)

// Dispatcher runs a hook through every plugin that exposes it, threading the
// value from one plugin to the next.
//
// Dispatch never fails: a plugin error is logged and treated as "no change",
// so the installation proceeds with the value the failing plugin received.
// Host call sites therefore do not branch on plugin behavior.
type Dispatcher struct {
	registry *plugin.Registry
	logger   logger.Logger
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *plugin.Registry, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   log,
	}
}

// Dispatch invokes the named hook on each exposing plugin in registry order.
// A non-nil return from a plugin replaces the value for the next plugin; a
// nil return leaves it unchanged. With no matching plugins the initial value
// is returned as-is.
func (d *Dispatcher) Dispatch(ctx context.Context, name hook.Name, value any, args map[string]any) any {
	entries := d.registry.PluginsWithHook(name)
	if len(entries) == 0 {
		return value
	}

	d.logger.Debug("dispatching hook",
		"hook", name,
		"plugins", len(entries),
	)

	for _, entry := range entries {
		value = d.invoke(ctx, entry, name, value, args)
	}

	return value
}

// DispatchStrings dispatches a string-slice hook and coerces the result back
// to []string, since script plugins return generic slices.
func (d *Dispatcher) DispatchStrings(ctx context.Context, name hook.Name, value []string, args map[string]any) []string {
	out := d.Dispatch(ctx, name, value, args)

	return hook.Strings(out)
}

// invoke runs one plugin in the chain. Any error, including a recovered
// panic, downgrades to "no change" for this plugin.
func (d *Dispatcher) invoke(ctx context.Context, entry *plugin.Entry, name hook.Name, value any, args map[string]any) (out any) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("plugin panicked during hook, skipping",
				"plugin", entry.Name(),
				"hook", name,
				"panic", plugin.SanitizePanicMessage(fmt.Sprintf("%v", r)),
			)

			out = value
		}
	}()

	start := time.Now()

	ret, err := entry.Plugin.Invoke(ctx, &hook.Call{
		Hook:  name,
		Value: value,
		Args:  args,
	})
	if err != nil {
		d.logger.Error("plugin hook failed, skipping",
			"plugin", entry.Name(),
			"hook", name,
			"error", err,
		)

		return value
	}

	d.logger.Debug("plugin hook completed",
		"plugin", entry.Name(),
		"hook", name,
		"changed", ret != nil,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)

	if ret == nil {
		return value
	}

	return ret
}
