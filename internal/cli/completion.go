package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command. Only the shells livegraph
// is packaged for are offered.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for bash, zsh or fish to stdout.

  source <(livegraph completion bash)
  livegraph completion zsh > "${fpath[1]}/_livegraph"
  livegraph completion fish > ~/.config/fish/completions/livegraph.fish`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenBashCompletionV2(out, true)
			}
		},
	}
}
