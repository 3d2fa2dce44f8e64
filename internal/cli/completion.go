package cli

import (
	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for coinfund.

To load completions:

Bash:
  $ source <(coinfund completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ coinfund completion bash > /etc/bash_completion.d/coinfund
  # macOS:
  $ coinfund completion bash > $(brew --prefix)/etc/bash_completion.d/coinfund

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ coinfund completion zsh > "${fpath[1]}/_coinfund"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ coinfund completion fish | source

  # To load completions for each session, execute once:
  $ coinfund completion fish > ~/.config/fish/completions/coinfund.fish

PowerShell:
  PS> coinfund completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> coinfund completion powershell > coinfund.ps1
  # and source this file from your PowerShell profile.
`,
	Example: `  coinfund completion bash > /etc/bash_completion.d/coinfund
  coinfund completion zsh > "${fpath[1]}/_coinfund"`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		}
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	completionCmd.GroupID = groupConfig
	rootCmd.AddCommand(completionCmd)
}
