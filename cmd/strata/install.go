package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	internalconfig "github.com/strata-install/strata/internal/config"
	"github.com/strata-install/strata/internal/dispatcher"
	"github.com/strata-install/strata/internal/github"
	"github.com/strata-install/strata/internal/installer"
	"github.com/strata-install/strata/internal/plugin"
	"github.com/strata-install/strata/internal/updater"
	"github.com/strata-install/strata/internal/version"
	"github.com/strata-install/strata/internal/xdg"
	"github.com/strata-install/strata/pkg/config"
	"github.com/strata-install/strata/pkg/logger"
)

// versionCheckTimeout bounds the pre-install release lookup.
const versionCheckTimeout = 3 * time.Second

var (
	pluginPath       string
	profileName      string
	targetPath       string
	dryRun           bool
	saveConfigPath   string
	skipVersionCheck bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the system described by the configuration",
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().StringVarP(
		&pluginPath,
		"plugin",
		"p",
		"",
		"Path or URL of a plugin to load before discovery",
	)
	installCmd.Flags().StringVar(&profileName, "profile", "", "Profile to install")
	installCmd.Flags().StringVar(&targetPath, "target", "", "Target mount point")
	installCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log commands instead of running them")
	installCmd.Flags().StringVar(
		&saveConfigPath,
		"save-config",
		"",
		"Write the effective configuration to this file after a successful run",
	)
	installCmd.Flags().BoolVar(
		&skipVersionCheck,
		"skip-version-check",
		false,
		"Skip the new-release check",
	)
}

func runInstall(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !skipVersionCheck {
		checkForUpdate(ctx, log)
	}

	registry := plugin.NewRegistry(log)
	defer func() {
		if closeErr := registry.Close(); closeErr != nil {
			log.Warn("failed to close plugin registry", "error", closeErr)
		}
	}()

	if err := loadPlugins(ctx, registry, cfg, log); err != nil {
		return err
	}

	engine := installer.NewEngine(
		cfg.GetInstall(),
		dispatcher.NewDispatcher(registry, log),
		log,
	)

	if err := engine.Run(ctx); err != nil {
		return err
	}

	if saveConfigPath != "" {
		if err := internalconfig.NewWriter().WriteFile(saveConfigPath, cfg); err != nil {
			return err
		}

		log.Info("saved run configuration", "path", saveConfigPath)
	}

	return nil
}

// loadConfig merges file, env, and flag sources into the effective config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loader, err := internalconfig.NewKoanfLoader()
	if err != nil {
		return nil, err
	}

	flags := map[string]any{}

	if cmd.Flags().Changed("dry-run") {
		flags["install.dry_run"] = dryRun
	}

	if profileName != "" {
		flags["install.profile"] = profileName
	}

	if targetPath != "" {
		flags["install.target"] = targetPath
	}

	if pluginPath != "" {
		flags["plugins.plugin"] = pluginPath
	}

	cfg, err := loader.Load(configPath, flags)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	return cfg, nil
}

// loadPlugins runs the full load phase: explicit plugins first, then
// directory discovery. Discovery covers the user plugin dir, the project's
// .strata/plugins, and any configured extra directory.
func loadPlugins(
	ctx context.Context,
	registry *plugin.Registry,
	cfg *config.Config,
	log logger.Logger,
) error {
	pluginCfg := cfg.GetPlugins()

	if !pluginCfg.IsEnabled() {
		log.Debug("plugin support disabled")

		return nil
	}

	if err := registry.LoadAll(ctx, pluginCfg); err != nil {
		return err
	}

	if !pluginCfg.DiscoveryEnabled() {
		return nil
	}

	dirs := []string{xdg.PluginDir()}

	if workDir, err := os.Getwd(); err == nil {
		dirs = append(dirs, filepath.Join(workDir, internalconfig.ProjectConfigDir, "plugins"))
	}

	if extra := pluginCfg.GetDirectory(); extra != "" {
		dirs = append(dirs, extra)
	}

	return registry.Discover(ctx, plugin.NewDirCatalog(dirs...), pluginCfg)
}

// checkForUpdate prints a notice when a newer release exists. Network
// failures only surface at debug level, the install never blocks on them.
func checkForUpdate(ctx context.Context, log logger.Logger) {
	checkCtx, cancel := context.WithTimeout(ctx, versionCheckTimeout)
	defer cancel()

	checker := updater.NewChecker(version.Version, github.NewClient())

	tag, err := checker.CheckLatest(checkCtx)
	if err != nil {
		if !errors.Is(err, updater.ErrAlreadyLatest) {
			log.Debug("release check failed", "error", err)
		}

		return
	}

	fmt.Fprintf(os.Stderr, "A newer strata release is available: %s (running %s)\n",
		tag, version.Version)
}
