package plugin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/strata-install/strata/internal/exec"
	"github.com/strata-install/strata/internal/fetch"
	"github.com/strata-install/strata/internal/version"
	"github.com/strata-install/strata/pkg/config"
	"github.com/strata-install/strata/pkg/hook"
	"github.com/strata-install/strata/pkg/logger"
)

const (
	// defaultRegistryTimeout is the default timeout for plugin operations.
	defaultRegistryTimeout = 10 * time.Second
)

var (
	// ErrDuplicatePlugin is returned when a plugin identifier is already registered.
	ErrDuplicatePlugin = errors.New("duplicate plugin identifier")

	// ErrUnsupportedType is returned for plugin types without a loader.
	ErrUnsupportedType = errors.New("unsupported plugin type")

	// ErrUnknownType is returned when the plugin type cannot be inferred
	// from the path.
	ErrUnknownType = errors.New("cannot determine plugin type")
)

// Registry maintains the authoritative, ordered list of active plugins.
//
// The registry is written only during the load phase (LoadFromPath, LoadAll,
// Discover) and read-only thereafter; the host must finish loading before the
// first dispatch.
type Registry struct {
	loaders   map[config.PluginType]Loader
	localizer *fetch.Localizer
	entries   []*Entry
	seen      map[string]bool
	logger    logger.Logger
}

// Entry is a loaded plugin with its configuration.
type Entry struct {
	Plugin Plugin
	Config *config.PluginInstanceConfig

	hooks []hook.Name
}

// Name returns the plugin's unique identifier.
func (e *Entry) Name() string {
	if info := e.Plugin.Info(); info.Name != "" {
		return info.Name
	}

	return e.Config.Name
}

// Exposes reports whether dispatch for the given hook reaches this plugin,
// combining the capability table with the instance's hook filters.
func (e *Entry) Exposes(name hook.Name) bool {
	return hasHook(e.hooks, name) && e.Config.AllowsHook(name.String())
}

// NewRegistry creates a plugin registry with the standard loaders.
func NewRegistry(log logger.Logger) *Registry {
	runner := exec.NewCommandRunner(defaultRegistryTimeout)

	return &Registry{
		loaders: map[config.PluginType]Loader{
			config.PluginTypeLua:  NewLuaLoader(),
			config.PluginTypeGo:   NewGoLoader(),
			config.PluginTypeExec: NewExecLoader(runner),
		},
		localizer: fetch.NewLocalizer(log),
		seen:      make(map[string]bool),
		logger:    log,
	}
}

// LoadFromPath loads a single plugin from a local path or http(s) URL and
// appends it to the registry. Remote plugins are localized to a temp file
// first. The error reports unreachable paths, malformed plugins, and naming
// collisions (ErrDuplicatePlugin).
func (r *Registry) LoadFromPath(ctx context.Context, path string) error {
	return r.LoadInstance(ctx, &config.PluginInstanceConfig{Path: path})
}

// LoadAll loads every explicitly configured plugin instance, in order.
// The first failure aborts and is returned so the host can report it.
func (r *Registry) LoadAll(ctx context.Context, cfg *config.PluginConfig) error {
	if cfg == nil || !cfg.IsEnabled() {
		return nil
	}

	if cfg.Plugin != "" {
		if err := r.LoadFromPath(ctx, cfg.Plugin); err != nil {
			return errors.Wrapf(err, "failed to load plugin %s", cfg.Plugin)
		}
	}

	for _, pluginCfg := range cfg.Plugins {
		if !pluginCfg.IsInstanceEnabled() {
			r.logger.Debug("skipping disabled plugin", "name", pluginCfg.Name)

			continue
		}

		if err := r.LoadInstance(ctx, pluginCfg); err != nil {
			return errors.Wrapf(err, "failed to load plugin %s", pluginCfg.Path)
		}
	}

	return nil
}

// LoadInstance loads a single plugin instance and appends it to the registry.
func (r *Registry) LoadInstance(ctx context.Context, cfg *config.PluginInstanceConfig) error {
	path := cfg.Path

	if fetch.IsRemote(path) {
		local, err := r.localizer.Localize(ctx, path)
		if err != nil {
			return err
		}

		path = local
	}

	typ := cfg.Type
	if typ == "" {
		inferred, err := InferType(path)
		if err != nil {
			return err
		}

		typ = inferred
	}

	loader, ok := r.loaders[typ]
	if !ok {
		return errors.Wrapf(ErrUnsupportedType, "%q", typ)
	}

	resolved := *cfg
	resolved.Path = path
	resolved.Type = typ

	if resolved.Name == "" {
		resolved.Name = DeriveName(cfg.Path)
	}

	p, err := loader.Load(&resolved)
	if err != nil {
		return err
	}

	return r.register(p, &resolved)
}

// register appends a loaded plugin, enforcing identifier uniqueness and
// logging a warning for host-version incompatibility.
func (r *Registry) register(p Plugin, cfg *config.PluginInstanceConfig) error {
	entry := &Entry{
		Plugin: p,
		Config: cfg,
		hooks:  p.Hooks(),
	}

	name := entry.Name()

	if r.seen[name] {
		_ = p.Close()

		r.logger.Warn("duplicate plugin identifier, rejecting later load",
			"name", name,
			"path", cfg.Path,
		)

		return errors.Wrapf(ErrDuplicatePlugin, "%q", name)
	}

	info := p.Info()

	if ok, err := version.Compatible(info.Requires); err != nil {
		r.logger.Warn("unparseable plugin version requirement",
			"name", name,
			"requires", info.Requires,
			"error", err,
		)
	} else if !ok {
		r.logger.Warn("plugin does not support the current strata version",
			"name", name,
			"requires", info.Requires,
			"host", version.Version,
		)
	}

	r.seen[name] = true
	r.entries = append(r.entries, entry)

	r.logger.Info("loaded plugin",
		"name", name,
		"type", cfg.Type,
		"version", info.Version,
		"hooks", len(entry.hooks),
	)

	return nil
}

// Discover loads every plugin the catalog knows about, in the catalog's
// (name-ascending) order. Discovery is best-effort: a broken entry is logged
// and skipped, and must not prevent other entries from loading.
func (r *Registry) Discover(ctx context.Context, cat Catalog, cfg *config.PluginConfig) error {
	catalogEntries, err := cat.Entries()
	if err != nil {
		return errors.Wrap(err, "plugin discovery failed")
	}

	for _, ce := range catalogEntries {
		if ce.Disabled || cfg.IsDisabled(ce.Name) {
			r.logger.Debug("skipping disabled plugin", "name", ce.Name)

			continue
		}

		instance := &config.PluginInstanceConfig{
			Name:   ce.Name,
			Type:   ce.Type,
			Path:   ce.Path,
			Args:   ce.Args,
			Config: ce.Config,
		}

		if err := r.LoadInstance(ctx, instance); err != nil {
			if errors.Is(err, ErrDuplicatePlugin) {
				// Already warned during registration.
				continue
			}

			r.logger.Error("skipping broken plugin",
				"name", ce.Name,
				"path", ce.Path,
				"error", err,
			)
		}
	}

	return nil
}

// PluginsWithHook returns, in registry order, every plugin exposing the
// given hook. The slice is empty (never nil-checked by callers as an error)
// when none match.
func (r *Registry) PluginsWithHook(name hook.Name) []*Entry {
	matched := make([]*Entry, 0, len(r.entries))

	for _, entry := range r.entries {
		if entry.Exposes(name) {
			matched = append(matched, entry)
		}
	}

	return matched
}

// Plugins returns all registered plugins in load order.
func (r *Registry) Plugins() []*Entry {
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)

	return out
}

// Close releases all plugin and loader resources.
func (r *Registry) Close() error {
	var firstErr error

	for _, entry := range r.entries {
		if err := entry.Plugin.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, loader := range r.loaders {
		if err := loader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// RegisterForTesting appends a plugin directly, bypassing the loaders.
// This allows tests to inject fake plugins without fixture files.
func (r *Registry) RegisterForTesting(p Plugin, cfg *config.PluginInstanceConfig) error {
	if cfg == nil {
		cfg = &config.PluginInstanceConfig{}
	}

	return r.register(p, cfg)
}

// InferType maps a plugin path to a loader type: .lua scripts, .so Go
// plugins, and executable files as exec plugins.
func InferType(path string) (config.PluginType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua":
		return config.PluginTypeLua, nil
	case ".so":
		return config.PluginTypeGo, nil
	}

	st, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrapf(err, "plugin path %q is unreachable", path)
	}

	if st.Mode().IsRegular() && st.Mode().Perm()&0o111 != 0 {
		return config.PluginTypeExec, nil
	}

	return "", errors.Wrapf(ErrUnknownType, "%q", path)
}

// DeriveName produces a plugin identifier from its source path or URL:
// the base name without extension.
func DeriveName(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}
