package plugin

import (
	"context"
	"fmt"
	goplugin "plugin"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/strata-install/strata/pkg/config"
	"github.com/strata-install/strata/pkg/hook"
	"github.com/strata-install/strata/pkg/plugin"
)

// ErrNoPluginSymbol is returned when a Go plugin does not export "Plugin".
var ErrNoPluginSymbol = errors.New("plugin does not export 'Plugin' symbol")

// GoLoader loads native Go plugins (.so files).
type GoLoader struct{}

// NewGoLoader creates a new Go plugin loader.
func NewGoLoader() *GoLoader {
	return &GoLoader{}
}

// Load loads a Go plugin from the specified path. The shared object must
// export a "Plugin" symbol implementing the public plugin.Plugin interface;
// its capability table is read once here and frozen.
//
//nolint:ireturn // interface return is required by Loader interface
func (*GoLoader) Load(cfg *config.PluginInstanceConfig) (Plugin, error) {
	if err := ValidatePath(cfg.Path); err != nil {
		return nil, err
	}

	if err := ValidateExtension(cfg.Path, []string{".so"}); err != nil {
		return nil, errors.Wrap(err, "invalid Go plugin extension")
	}

	p, err := goplugin.Open(cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Go plugin")
	}

	sym, err := p.Lookup("Plugin")
	if err != nil {
		return nil, errors.Wrap(ErrNoPluginSymbol, err.Error())
	}

	impl, ok := sym.(plugin.Plugin)
	if !ok {
		return nil, errors.New("Plugin symbol does not implement plugin.Plugin interface")
	}

	return newGoPluginAdapter(impl, cfg.Config), nil
}

// Close releases any resources held by the loader.
func (*GoLoader) Close() error {
	// Go plugins cannot be unloaded, so this is a no-op
	return nil
}

// goPluginAdapter adapts a public plugin.Plugin to the internal Plugin
// interface with a table frozen at load time.
type goPluginAdapter struct {
	impl   plugin.Plugin
	table  map[hook.Name]plugin.HookFunc
	config map[string]any
}

func newGoPluginAdapter(impl plugin.Plugin, cfg map[string]any) *goPluginAdapter {
	table := make(map[hook.Name]plugin.HookFunc)

	for name, fn := range impl.Hooks() {
		if !name.Valid() || fn == nil {
			continue
		}

		table[name] = fn
	}

	return &goPluginAdapter{
		impl:   impl,
		table:  table,
		config: cfg,
	}
}

// Info returns metadata about the plugin.
func (a *goPluginAdapter) Info() plugin.Info {
	return a.impl.Info()
}

// Hooks returns the frozen capability table, sorted for stable output.
func (a *goPluginAdapter) Hooks() []hook.Name {
	names := make([]hook.Name, 0, len(a.table))
	for name := range a.table {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}

// Invoke calls the plugin's hook function with panic recovery. Go plugins
// run in-process, so a panicking hook is converted into an error instead of
// taking the installer down.
func (a *goPluginAdapter) Invoke(ctx context.Context, call *hook.Call) (out any, err error) {
	fn, ok := a.table[call.Hook]
	if !ok {
		return nil, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errors.Newf("plugin panicked: %s",
				SanitizePanicMessage(fmt.Sprintf("%v", r)))
		}
	}()

	return fn(ctx, call)
}

// Close releases any resources held by the plugin.
func (*goPluginAdapter) Close() error {
	// Go plugins cannot be unloaded, so this is a no-op
	return nil
}

// NewGoPluginAdapterForTesting wraps a public plugin.Plugin for tests so
// they can exercise the adapter without building .so fixtures.
//
//nolint:ireturn // interface return mirrors the loader
func NewGoPluginAdapterForTesting(impl plugin.Plugin, cfg map[string]any) Plugin {
	return newGoPluginAdapter(impl, cfg)
}
