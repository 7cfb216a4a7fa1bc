package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strata-install/strata/internal/version"
)

// Build information set by ldflags at build time.
var (
	commit = "unknown"
	date   = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

func runVersion(_ *cobra.Command, _ []string) {
	fmt.Print(versionString())
}

func versionString() string {
	var b strings.Builder

	fmt.Fprintf(&b, "strata %s\n", version.Version)
	fmt.Fprintf(&b, "  commit: %s\n", commit)
	fmt.Fprintf(&b, "  built:  %s\n", date)
	fmt.Fprintf(&b, "  go:     %s\n", runtime.Version())
	fmt.Fprintf(&b, "  os:     %s/%s\n", runtime.GOOS, runtime.GOARCH)

	return b.String()
}
