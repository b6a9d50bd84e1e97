package main

import (
	"github.com/spf13/cobra"
	"github.com/yacobolo/lesswatch"
)

var rootCmd = &cobra.Command{
	Use:   "lesswatch [dir]",
	Short: "Compile LESS sources in place and keep them up to date",
	Long: `Scan a directory for .less files, then watch it. Every added or changed
file is compiled to a sibling file with the output extension, and a change to
an imported file recompiles every file that imports it.

By default the initial scan only learns the import graph; pass --init to
also write outputs for every existing file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		return runWatch(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	registerFlags(rootCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)
}

func registerFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("dir", "d", "", "Directory to watch (or pass it as the first argument)")
	cmd.Flags().BoolP("watch", "w", true, "Keep watching after the initial scan")
	cmd.Flags().BoolP("init", "i", false, "Write outputs for every file found by the initial scan")
	cmd.Flags().StringP("ext", "e", "wxss", "Extension of generated files")
	cmd.Flags().String("include", "**/*.less", "Pattern of sources to compile, relative to dir")
	cmd.Flags().StringSlice("ignore", []string{"node_modules/", ".git/"}, "Gitignore-style patterns to skip")
	cmd.Flags().Bool("gitignore", true, "Also skip paths matched by dir/.gitignore")

	// Global persistent flags (inherited by all subcommands)
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("quiet", false, "Only print failures")
	cmd.PersistentFlags().Bool("color", false, "Force color output")
	cmd.PersistentFlags().String("log-file", "", "Write diagnostics to a rotating log file")
	cmd.PersistentFlags().String("config", ".lesswatch.yaml", "Config file path")

	registerCompletions(cmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	if len(args) == 1 {
		cfg.Dir = args[0]
	}

	logger, closeLog := newLogger(cmd.ErrOrStderr())
	defer closeLog()

	_, err := lesswatch.Run(cmd.Context(), cfg,
		lesswatch.WithLogger(logger),
		lesswatch.WithOutput(cmd.OutOrStdout()),
	)
	return err
}
