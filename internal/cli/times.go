package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/plasmakit/coupler/internal/adapters/storage"
)

// NewTimesCommand creates the times command.
func NewTimesCommand(rootOpts *RootOptions) *cobra.Command {
	var occurrence int

	cmd := &cobra.Command{
		Use:           "times <db> <stream>",
		Short:         "List the stored times of a stream",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(args[0], storage.WithReadOnly())
			if err != nil {
				return err
			}
			defer db.Close()

			times, err := db.Times(cmd.Context(), args[1], occurrence)
			if err != nil {
				return err
			}
			for _, t := range times {
				fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(t, 'g', -1, 64))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&occurrence, "occurrence", 0, "occurrence index of the stream")
	return cmd
}
