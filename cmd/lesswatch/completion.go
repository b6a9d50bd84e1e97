package main

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for lesswatch commands and flags.

The positional directory and --dir complete to directories only, and --ext
offers the stylesheet extensions of the common mini-program platforms.`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(out, true)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

// outputExtensions are offered when completing --ext.
var outputExtensions = []string{
	"wxss\tWeChat",
	"acss\tAlipay",
	"ttss\tDouyin",
	"qss\tQQ",
	"css\tplain CSS",
}

// registerCompletions wires dynamic completion for the watch flags.
func registerCompletions(cmd *cobra.Command) {
	cmd.ValidArgsFunction = completeDir
	_ = cmd.RegisterFlagCompletionFunc("dir", completeDir)
	_ = cmd.RegisterFlagCompletionFunc("ext", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return outputExtensions, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.MarkPersistentFlagFilename("config", "yaml", "yml")
}

func completeDir(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveFilterDirs
}
