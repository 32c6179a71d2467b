package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the portal admin CLI. Subcommands
// (bootstrap, accounts, auth) are attached here.
var rootCmd = &cobra.Command{
	Use:           "portal",
	Short:         "Registration portal admin CLI",
	Long:          "Administrative utilities for the registration portal (schema bootstrap, admin accounts, dev tokens).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
