// Package cli provides the taskboard command line: serve and ensure-indexes.
package cli

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile string
}

// NewRootCommand builds the command tree. Running it without a subcommand serves HTTP.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Collaborative task board service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path of the .env file to load")

	root.AddCommand(newServeCommand(opts), newEnsureIndexesCommand(opts))
	return root
}
