// Package commands implements the gohost CLI.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. Each call returns fresh commands so
// tests can execute them independently.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gohost",
		Short: "gohost - application host",
		Long: `gohost runs an application through a deterministic lifecycle: it selects
the registered Startup, builds its services, composes the application pipeline,
runs until SIGINT or SIGTERM and tears everything down exactly once.

Use "gohost [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newRunCmd())
	root.AddCommand(newStartupsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}
