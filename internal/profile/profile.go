// Package profile resolves named package-set profiles.
package profile

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/strata-install/strata/internal/xdg"
)

// ErrProfileNotFound is returned when no builtin or user profile matches.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is a named package set with the services it expects enabled.
type Profile struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Packages    []string `yaml:"packages"`
	Services    []string `yaml:"services,omitempty"`
}

// builtins are always available; a user profile with the same name wins.
var builtins = map[string]*Profile{
	"minimal": {
		Name:        "minimal",
		Description: "Bare bootable system",
		Packages:    []string{"base", "linux", "linux-firmware"},
	},
	"server": {
		Name:        "server",
		Description: "Headless server with SSH",
		Packages:    []string{"base", "linux", "linux-firmware", "openssh", "vim"},
		Services:    []string{"sshd"},
	},
	"desktop": {
		Name:        "desktop",
		Description: "Graphical desktop base",
		Packages: []string{
			"base", "linux", "linux-firmware",
			"xorg-server", "networkmanager", "pipewire",
		},
		Services: []string{"NetworkManager"},
	},
}

// Resolver loads profiles from the user profile directory, falling back to
// the builtin set.
type Resolver struct {
	dir string
}

// NewResolver creates a Resolver over the XDG profile directory.
func NewResolver() *Resolver {
	return NewResolverWithDir(xdg.ProfileDir())
}

// NewResolverWithDir creates a Resolver over a custom directory (for testing).
func NewResolverWithDir(dir string) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve returns the named profile. User profiles (<dir>/<name>.yaml)
// shadow builtins of the same name.
func (r *Resolver) Resolve(name string) (*Profile, error) {
	path := filepath.Join(r.dir, name+".yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "reading profile %s", path)
		}

		if p, ok := builtins[name]; ok {
			return p, nil
		}

		return nil, errors.Wrapf(ErrProfileNotFound, "%q", name)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "parsing profile %s", path)
	}

	if p.Name == "" {
		p.Name = name
	}

	return &p, nil
}

// Names lists all available profile names, builtins and user profiles
// combined, sorted ascending.
func (r *Resolver) Names() []string {
	seen := make(map[string]bool, len(builtins))
	for name := range builtins {
		seen[name] = true
	}

	if entries, err := os.ReadDir(r.dir); err == nil {
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
				continue
			}

			seen[e.Name()[:len(e.Name())-len(".yaml")]] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
