package plugin

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/strata-install/strata/pkg/config"
)

// manifestFile is the per-plugin manifest name inside a plugin directory.
const manifestFile = "plugin.toml"

// ErrNoEntryPoint is returned for plugin directories without a recognizable
// entry point.
var ErrNoEntryPoint = errors.New("plugin has no entry point")

// CatalogEntry is one installed plugin known to a catalog.
type CatalogEntry struct {
	// Name is the discovery-provided identifier.
	Name string

	// Path is the loadable reference (script, shared object, or executable).
	Path string

	// Type selects the loader. Empty means "infer from path".
	Type config.PluginType

	// Disabled is set when the plugin's manifest disables it.
	Disabled bool

	// Args are command-line arguments for exec plugins.
	Args []string

	// Config is plugin-specific configuration from the manifest.
	Config map[string]any
}

// Catalog enumerates installed plugins. The registry treats it as a black
// box returning (name, loadable-reference) pairs in a stable order.
type Catalog interface {
	Entries() ([]CatalogEntry, error)
}

// Manifest is the on-disk plugin.toml schema.
type Manifest struct {
	// Name is the unique plugin identifier. Defaults to the directory name.
	Name string `toml:"name"`

	// Type selects the loader ("lua", "go", "exec").
	Type config.PluginType `toml:"type,omitempty"`

	// Main is the entry point relative to the plugin directory.
	// Default: "init.lua"
	Main string `toml:"main,omitempty"`

	// Enabled controls whether discovery loads this plugin. Default: true.
	Enabled *bool `toml:"enabled"`

	// Args are command-line arguments for exec plugins.
	Args []string `toml:"args,omitempty"`

	// Config is plugin-specific configuration passed through on load.
	Config map[string]any `toml:"config,omitempty"`
}

// DirCatalog discovers plugins by scanning a fixed list of directories for
// plugin.toml manifests and bare plugin files. Earlier directories win on
// name clashes; entries are returned in name-ascending order so discovery
// stays deterministic and testable.
type DirCatalog struct {
	dirs []string
}

// NewDirCatalog creates a catalog over the given directories. Missing
// directories are silently skipped at scan time.
func NewDirCatalog(dirs ...string) *DirCatalog {
	return &DirCatalog{dirs: dirs}
}

// Dirs returns the scanned directories.
func (c *DirCatalog) Dirs() []string {
	return c.dirs
}

// Entries scans the directories and returns all discovered plugins sorted by
// name. A malformed manifest yields an entry-level error later at load time
// only when it would have been loaded; unreadable directories are skipped.
func (c *DirCatalog) Entries() ([]CatalogEntry, error) {
	found := make(map[string]CatalogEntry)

	for _, dir := range c.dirs {
		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			// Missing or unreadable search paths are not errors.
			continue
		}

		for _, de := range dirEntries {
			entry, ok := c.inspect(dir, de)
			if !ok {
				continue
			}

			// First directory wins on duplicate names.
			if _, exists := found[entry.Name]; !exists {
				found[entry.Name] = entry
			}
		}
	}

	out := make([]CatalogEntry, 0, len(found))
	for _, entry := range found {
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out, nil
}

// inspect classifies a single directory entry as a plugin, or reports false.
func (c *DirCatalog) inspect(dir string, de os.DirEntry) (CatalogEntry, bool) {
	path := filepath.Join(dir, de.Name())

	if de.IsDir() {
		return c.inspectDir(de.Name(), path)
	}

	name := strings.TrimSuffix(de.Name(), filepath.Ext(de.Name()))

	switch strings.ToLower(filepath.Ext(de.Name())) {
	case ".lua":
		return CatalogEntry{Name: name, Path: path, Type: config.PluginTypeLua}, true
	case ".so":
		return CatalogEntry{Name: name, Path: path, Type: config.PluginTypeGo}, true
	}

	if info, err := de.Info(); err == nil &&
		info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
		return CatalogEntry{Name: de.Name(), Path: path, Type: config.PluginTypeExec}, true
	}

	return CatalogEntry{}, false
}

// inspectDir handles directory-based plugins: a plugin.toml manifest, or a
// bare init.lua entry point.
func (c *DirCatalog) inspectDir(name, path string) (CatalogEntry, bool) {
	manifestPath := filepath.Join(path, manifestFile)

	if _, err := os.Stat(manifestPath); err == nil {
		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			// A broken manifest still names a plugin slot so the failure
			// is visible at load time rather than silently vanishing.
			return CatalogEntry{Name: name, Path: manifestPath, Disabled: false}, true
		}

		entry := CatalogEntry{
			Name:   manifest.Name,
			Path:   filepath.Join(path, manifest.Main),
			Type:   manifest.Type,
			Args:   manifest.Args,
			Config: manifest.Config,
		}

		if entry.Name == "" {
			entry.Name = name
		}

		if manifest.Enabled != nil && !*manifest.Enabled {
			entry.Disabled = true
		}

		return entry, true
	}

	initPath := filepath.Join(path, "init.lua")
	if _, err := os.Stat(initPath); err == nil {
		return CatalogEntry{Name: name, Path: initPath, Type: config.PluginTypeLua}, true
	}

	return CatalogEntry{}, false
}

// LoadManifest reads and validates a plugin.toml manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from directory scan
	if err != nil {
		return nil, errors.Wrap(err, "reading plugin manifest")
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "parsing plugin manifest")
	}

	if m.Main == "" {
		m.Main = "init.lua"
	}

	return &m, nil
}
