package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd wires the subcommands. Subcommands are built fresh per call so
// tests can execute them in isolation.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searchgate",
		Short: "Search front door: query parsing, access governing and search sessions",
		Long: `searchgate sits in front of a retrieval and ranking backend. It parses
raw queries and their directives, throttles clients per feature tier and
shares one search session between everyone asking the same question.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newParseCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}
