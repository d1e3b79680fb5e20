package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the FreightDesk admin CLI. Subcommands (auth, bootstrap, tenant, features) are attached here.
var rootCmd = &cobra.Command{
	Use:           "freightdesk",
	Short:         "FreightDesk admin CLI",
	Long:          "Administrative utilities for FreightDesk (dev tokens, schema bootstrap, tenant and plan management).",
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
