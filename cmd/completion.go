package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// completionGenerators maps each supported shell to its script generator.
var completionGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash": func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":  func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish": func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletionWithDesc(w)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion <bash|zsh|fish|powershell>",
	Short: "Print a shell completion script",
	Long: `Print a completion script for the given shell. Movie ids are not
completed; strategy names, output formats, genres, store buckets and
config keys are.

Load for the current session:

  source <(marquee completion bash)
  source <(marquee completion zsh)
  marquee completion fish | source

Or write the script straight to the shell's completion directory:

  marquee completion fish --out ~/.config/fish/completions/marquee.fish`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		gen, ok := completionGenerators[args[0]]
		if !ok {
			return fmt.Errorf("unsupported shell %q", args[0])
		}
		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if err := gen(cmd.Root(), w); err != nil {
			_ = closeFn()
			return fmt.Errorf("generating %s completion: %w", args[0], err)
		}
		return closeFn()
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
