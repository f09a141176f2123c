package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for htmldepth.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "htmldepth",
		Short: "Find the deepest text in simple HTML documents",
		Long: `htmldepth fetches HTML documents and prints the text line nested deepest
in the element tree.

Documents must follow a simple line-oriented form: every non-blank line is
an opening tag, a closing tag, or a line of text. Tags carry no attributes
and must be properly nested. Anything else is reported as "malformed HTML".
A document that cannot be retrieved is reported as "URL connection error".

Every analysis is recorded in a local history database unless --no-history
is given.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
