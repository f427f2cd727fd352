// Package cli implements the coupler command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	LogLevel string
}

// NewRootCommand creates the root command for the coupler CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "coupler",
		Short: "Timeslice coupling runtime",
		Long: `Coupler runs coupling models: source, accumulator, limit-check, and
sink actors exchanging timeslices over named ports.`,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info",
		"log level (debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewTimesCommand(opts))

	return cmd
}
