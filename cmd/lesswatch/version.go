package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/lesswatch
var version = "dev"

// resolvedVersion falls back to the module version recorded by
// "go install ...@version" when no version was linked in.
func resolvedVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return version
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of lesswatch",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lesswatch %s\n", resolvedVersion())
	},
}

func init() {
	rootCmd.Version = resolvedVersion()
	rootCmd.SetVersionTemplate("lesswatch {{.Version}}\n")
}
