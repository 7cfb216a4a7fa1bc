package plugin

import (
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	lua "github.com/yuin/gopher-lua"

	"github.com/strata-install/strata/internal/plugin/luavm"
	"github.com/strata-install/strata/pkg/config"
	"github.com/strata-install/strata/pkg/hook"
	"github.com/strata-install/strata/pkg/plugin"
)

// infoGlobal is the Lua global table a script fills with its metadata.
const infoGlobal = "strata"

// LuaLoader loads Lua script plugins into a sandboxed interpreter.
//
// A script declares metadata in a global `strata` table and exposes hooks as
// global functions named after the hook:
//
//	strata = {
//	    name = "pkglist",
//	    version = "1.0.0",
//	}
//
//	function on_pacstrap(value, args)
//	    table.insert(value, "htop")
//	    return value
//	end
//
// Only globals with a valid hook name enter the capability table; everything
// else is ignored.
type LuaLoader struct{}

// NewLuaLoader creates a new Lua script loader.
func NewLuaLoader() *LuaLoader {
	return &LuaLoader{}
}

// Load executes the script once in a fresh sandboxed state and freezes its
// capability table from the resulting globals.
//
//nolint:ireturn // interface return is required by Loader interface
func (*LuaLoader) Load(cfg *config.PluginInstanceConfig) (Plugin, error) {
	if err := ValidatePath(cfg.Path); err != nil {
		return nil, err
	}

	if err := ValidateExtension(cfg.Path, []string{".lua"}); err != nil {
		return nil, errors.Wrap(err, "invalid Lua plugin extension")
	}

	state := luavm.NewState()

	if err := state.LoadFile(cfg.Path); err != nil {
		_ = state.Close()

		return nil, errors.Wrap(err, "failed to load Lua plugin")
	}

	table := make(map[hook.Name]*lua.LFunction)

	for name, fn := range state.GlobalFuncs(func(name string) bool {
		return strings.HasPrefix(name, hook.Prefix) && hook.Name(name).Valid()
	}) {
		table[hook.Name(name)] = fn
	}

	return &luaPlugin{
		state:  state,
		info:   luaInfo(state, cfg, table),
		table:  table,
		config: cfg.Config,
	}, nil
}

// Close releases any resources held by the loader.
func (*LuaLoader) Close() error {
	// Each plugin owns its own state; nothing is shared at the loader level.
	return nil
}

// luaInfo builds plugin metadata from the script's info global, falling back
// to the instance config where the script declares nothing.
func luaInfo(state *luavm.State, cfg *config.PluginInstanceConfig, table map[hook.Name]*lua.LFunction) plugin.Info {
	info := plugin.Info{
		Name: cfg.Name,
	}

	meta := state.GlobalTable(infoGlobal)

	str := func(key string) string {
		s, _ := meta[key].(string)

		return s
	}

	if name := str("name"); name != "" {
		info.Name = name
	}

	info.Version = str("version")
	info.Description = str("description")
	info.Author = str("author")
	info.URL = str("url")
	info.Requires = str("requires")

	for name := range table {
		info.Hooks = append(info.Hooks, string(name))
	}

	sort.Strings(info.Hooks)

	return info
}

// luaPlugin adapts a loaded Lua script to the internal Plugin interface.
type luaPlugin struct {
	state  *luavm.State
	info   plugin.Info
	table  map[hook.Name]*lua.LFunction
	config map[string]any
}

// Info returns metadata about the plugin.
func (p *luaPlugin) Info() plugin.Info {
	return p.info
}

// Hooks returns the frozen capability table, sorted for stable output.
func (p *luaPlugin) Hooks() []hook.Name {
	names := make([]hook.Name, 0, len(p.table))
	for name := range p.table {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}

// Invoke calls the script's hook function with (value, args). A Lua nil
// return means the value is unchanged; a Lua error surfaces as a Go error.
func (p *luaPlugin) Invoke(ctx context.Context, call *hook.Call) (any, error) {
	fn, ok := p.table[call.Hook]
	if !ok {
		return nil, nil
	}

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}

	out, err := p.state.CallFunc(ctx, fn, call.Value, args)
	if err != nil {
		return nil, errors.Wrapf(err, "lua hook %s", call.Hook)
	}

	return out, nil
}

// Close tears down the plugin's Lua state.
func (p *luaPlugin) Close() error {
	return p.state.Close()
}
