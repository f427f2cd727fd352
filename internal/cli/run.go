package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	simulation "github.com/plasmakit/coupler/internal/app"
	"github.com/plasmakit/coupler/internal/config"
	"github.com/plasmakit/coupler/internal/topology"
	"github.com/plasmakit/coupler/pkg/logger"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run <model.yaml>",
		Short: "Run a coupling model to completion",
		Long: `Run loads a model document, wires its components, and runs every
actor until the coupling finishes or a component fails.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModel(cmd.Context(), rootOpts, args[0], metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"address to expose Prometheus metrics on (empty disables)")
	return cmd
}

func runModel(ctx context.Context, rootOpts *RootOptions, modelPath, metricsAddr string) error {
	if err := logger.SetLevelString(rootOpts.LogLevel); err != nil {
		return err
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	model, err := topology.Load(modelPath)
	if err != nil {
		return err
	}

	sim, err := simulation.New(model, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.MetricsAddr != "" {
		log := logger.Named("metrics")
		go func() {
			if err := simulation.ServeMetrics(ctx, cfg.MetricsAddr); err != nil {
				log.Error(ctx, "metrics listener failed", logger.Error(err))
			}
		}()
	}

	if err := sim.Run(ctx); err != nil {
		return fmt.Errorf("model %s: %w", model.Name, err)
	}
	return nil
}
