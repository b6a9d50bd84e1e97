package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default .lesswatch.yaml config file",
	Long:  `Create a .lesswatch.yaml configuration file in the current directory with the default settings.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(".lesswatch.yaml"); err == nil && !force {
			return fmt.Errorf(".lesswatch.yaml already exists (use --force to overwrite)")
		}

		if err := os.WriteFile(".lesswatch.yaml", []byte(defaultConfig), 0644); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Created .lesswatch.yaml")
		return nil
	},
}

const defaultConfig = `# lesswatch configuration
# Docs: https://github.com/yacobolo/lesswatch

dir: miniprogram
watch: true
init: false            # also write outputs for files found by the initial scan

output:
  ext: wxss

include: "**/*.less"
ignore:
  - node_modules/
  - .git/
gitignore: true

verbose: false
quiet: false
color: false

log:
  file: ""             # rotating diagnostics log, empty logs to stderr
  maxsize: 10          # megabytes (LESSWATCH_LOG_MAXSIZE)
  maxbackups: 3
  maxage: 28           # days
`

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing config file")
}
