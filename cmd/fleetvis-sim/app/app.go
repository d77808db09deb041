package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetvis-io/fleetvis/cmd/fleetvis-sim/app/options"
	"github.com/fleetvis-io/fleetvis/pkg/log"
)

const commandDesc = `The FleetVis simulator runs a fleet of virtual VDA5050 AGVs against an
MQTT broker. Each vehicle announces itself with a retained connection
message, drives randomly generated orders and publishes state and
visualization streams, which makes it a drop-in data source for the
monitor.`

func NewSimCommand(ctx context.Context) *cobra.Command {
	opts := options.NewSimOptions()

	cmd := &cobra.Command{
		Use:          "fleetvis-sim",
		Short:        "Launch a fleet of simulated VDA5050 vehicles",
		Long:         commandDesc,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Complete(); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			log.Init(opts.Log)

			cfg, err := opts.Config()
			if err != nil {
				return err
			}

			sim, err := cfg.NewSimulator()
			if err != nil {
				log.Error(err, "failed to create simulator")
				return err
			}

			return sim.Run(ctx)
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}
