package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/gohost/hosting"
)

func newStartupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "startups",
		Short: "List the registered Startups",
		Long: `List the Startups compiled into this binary. "gohost run" selects the only
registered Startup automatically; with several, pass --startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := hosting.Startups()
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No startups registered")
				return nil
			}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name})
			}
			printTable(cmd.OutOrStdout(), []string{"Name"}, rows)
			return nil
		},
	}
}
