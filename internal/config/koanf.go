// Package config provides configuration loading and persistence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	tomlparser "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/strata-install/strata/internal/xdg"
	"github.com/strata-install/strata/pkg/config"
)

var (
	// ErrConfigNotFound is returned when an explicitly requested
	// configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidPermissions is returned when a config file is world-writable.
	ErrInvalidPermissions = errors.New("config file has insecure permissions")
)

const (
	// ProjectConfigDir is the directory name for project configuration.
	ProjectConfigDir = ".strata"

	// ProjectConfigFile is the project configuration file name.
	ProjectConfigFile = "config.toml"

	// envPrefix namespaces strata environment variables.
	envPrefix = "STRATA_"
)

// KoanfLoader loads configuration from multiple sources using koanf.
// Precedence order (highest to lowest):
// 1. CLI flags
// 2. Environment variables (STRATA_*)
// 3. Explicit --config file, or the project config (.strata/config.toml)
// 4. Global config (~/.config/strata/config.toml)
// 5. Defaults
type KoanfLoader struct {
	k          *koanf.Koanf
	globalPath string
	workDir    string
	tomlOpts   koanf.UnmarshalConf
}

// NewKoanfLoader creates a KoanfLoader using the XDG config location.
func NewKoanfLoader() (*KoanfLoader, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get working directory")
	}

	return NewKoanfLoaderWithDirs(xdg.ConfigFile(), workDir), nil
}

// NewKoanfLoaderWithDirs creates a KoanfLoader with custom locations (for testing).
func NewKoanfLoaderWithDirs(globalPath, workDir string) *KoanfLoader {
	return &KoanfLoader{
		k:          koanf.New("."),
		globalPath: globalPath,
		workDir:    workDir,
		tomlOpts: koanf.UnmarshalConf{
			Tag:       "koanf",
			FlatPaths: false,
		},
	}
}

// Load merges all configuration sources with precedence. explicitPath, when
// non-empty, replaces the project config lookup and must exist.
func (l *KoanfLoader) Load(explicitPath string, flags map[string]any) (*config.Config, error) {
	// Reset koanf instance for fresh load
	l.k = koanf.New(".")

	if err := l.k.Load(confmap.Provider(defaultsToMap(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if err := l.loadTOMLFile(l.globalPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load global config")
	}

	if explicitPath != "" {
		if err := l.loadTOMLFile(explicitPath); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrapf(ErrConfigNotFound, "%s", explicitPath)
			}

			return nil, errors.Wrap(err, "failed to load config")
		}
	} else if projectPath := l.findProjectConfig(); projectPath != "" {
		if err := l.loadTOMLFile(projectPath); err != nil {
			return nil, errors.Wrap(err, "failed to load project config")
		}
	}

	envOpt := env.Opt{
		Prefix:        envPrefix,
		TransformFunc: envTransform,
	}

	if err := l.k.Load(env.Provider(".", envOpt), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	if len(flags) > 0 {
		if err := l.k.Load(confmap.Provider(flags, "."), nil); err != nil {
			return nil, errors.Wrap(err, "failed to load flags")
		}
	}

	var cfg config.Config
	if err := l.k.UnmarshalWithConf("", &cfg, l.tomlOpts); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	return &cfg, nil
}

// loadTOMLFile loads a TOML configuration file with a permission check.
func (l *KoanfLoader) loadTOMLFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	// Reject world-writable files
	if info.Mode().Perm()&0o002 != 0 {
		return errors.Wrapf(
			ErrInvalidPermissions,
			"%s is world-writable (mode: %s)",
			path,
			info.Mode().Perm(),
		)
	}

	return l.k.Load(file.Provider(path), tomlparser.Parser())
}

// envTransform maps environment variable names to config paths. Double
// underscore separates levels so keys like default_timeout stay addressable:
// STRATA_INSTALL__TARGET becomes install.target.
func envTransform(key, value string) (string, any) {
	key = strings.TrimPrefix(key, envPrefix)
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "__", ".")

	return key, value
}

// GlobalConfigPath returns the path of the global configuration file.
func (l *KoanfLoader) GlobalConfigPath() string {
	return l.globalPath
}

// ProjectConfigPath returns the project configuration file location under
// the working directory, whether or not it exists.
func (l *KoanfLoader) ProjectConfigPath() string {
	return filepath.Join(l.workDir, ProjectConfigDir, ProjectConfigFile)
}

// findProjectConfig returns the project config path if one exists.
func (l *KoanfLoader) findProjectConfig() string {
	path := l.ProjectConfigPath()
	if fileExists(path) {
		return path
	}

	return ""
}

// HasGlobalConfig reports whether a global configuration file exists.
func (l *KoanfLoader) HasGlobalConfig() bool {
	return fileExists(l.globalPath)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}
