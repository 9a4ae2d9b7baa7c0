// Package cmd defines and implements the CLI commands for the referer executable.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "referer",
		Short: "Classify HTTP referers by medium and extract search terms.",
		Long: `referer classifies the URL found in an HTTP Referer header against a
database of known referers: search engines, social networks, email and news
sites. For search engines it also extracts the search term.

It runs one-off classifications from the command line or serves them over HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (YAML, JSON or TOML)")

	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newValidateCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
