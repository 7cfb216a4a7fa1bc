package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/strata-install/strata/internal/plugin"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Inspect configured and discovered plugins",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all plugins the installer would load",
	RunE:  runPluginsList,
}

var pluginsCheckCmd = &cobra.Command{
	Use:   "check <path-or-url>",
	Short: "Load a single plugin and print its metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runPluginsCheck,
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsCheckCmd)
}

func runPluginsList(cmd *cobra.Command, _ []string) error {
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

	registry := plugin.NewRegistry(log)
	defer func() { _ = registry.Close() }()

	if err := loadPlugins(ctx, registry, cfg, log); err != nil {
		return err
	}

	entries := registry.Plugins()
	if len(entries) == 0 {
		fmt.Println("No plugins loaded.")

		return nil
	}

	t := tablewriter.NewTable(os.Stdout,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleRounded),
		})),
		tablewriter.WithPadding(tw.Padding{Left: " ", Right: " "}),
	)

	t.Header([]string{"Name", "Type", "Version", "Hooks", "Path"})

	for _, entry := range entries {
		info := entry.Plugin.Info()

		hooks := make([]string, 0, len(entry.Plugin.Hooks()))
		for _, h := range entry.Plugin.Hooks() {
			hooks = append(hooks, h.String())
		}

		if err := t.Append([]string{
			entry.Name(),
			string(entry.Config.Type),
			info.Version,
			strings.Join(hooks, "\n"),
			entry.Config.Path,
		}); err != nil {
			return err
		}
	}

	return t.Render()
}

func runPluginsCheck(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	registry := plugin.NewRegistry(log)
	defer func() { _ = registry.Close() }()

	if err := registry.LoadFromPath(ctx, args[0]); err != nil {
		return err
	}

	entry := registry.Plugins()[0]
	info := entry.Plugin.Info()

	fmt.Printf("Name:        %s\n", entry.Name())
	fmt.Printf("Type:        %s\n", entry.Config.Type)
	fmt.Printf("Version:     %s\n", orDash(info.Version))
	fmt.Printf("Author:      %s\n", orDash(info.Author))
	fmt.Printf("Requires:    %s\n", orDash(info.Requires))
	fmt.Printf("Description: %s\n", orDash(info.Description))

	fmt.Println("Hooks:")

	for _, h := range entry.Plugin.Hooks() {
		fmt.Printf("  - %s\n", h)
	}

	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
