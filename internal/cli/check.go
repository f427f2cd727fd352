package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plasmakit/coupler/internal/domain/ports"
	"github.com/plasmakit/coupler/internal/topology"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <model.yaml>",
		Short: "Validate a model document without running it",
		Long: `Check validates the model document statically: component kinds,
conduit wiring, and the port-binding rules of every accumulator.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := topology.Load(args[0])
			if err != nil {
				return err
			}
			for _, name := range model.ComponentNames() {
				comp := model.Components[name]
				if comp.Kind != topology.KindAccumulator {
					continue
				}
				if _, err := ports.Derive(comp.In, comp.Out); err != nil {
					return fmt.Errorf("component %s: %w", name, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model %s: %d components, %d conduits, ok\n",
				model.Name, len(model.Components), len(model.Conduits))
			return nil
		},
	}
}
