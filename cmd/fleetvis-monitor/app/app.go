package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetvis-io/fleetvis/cmd/fleetvis-monitor/app/options"
	"github.com/fleetvis-io/fleetvis/pkg/log"
)

const commandDesc = `The FleetVis monitor connects to an MQTT broker, folds the VDA5050
message streams of every vehicle into per-vehicle sessions and serves the
aggregated fleet state over a JSON API.`

func NewMonitorCommand(ctx context.Context) *cobra.Command {
	opts := options.NewMonitorOptions()

	cmd := &cobra.Command{
		Use:          "fleetvis-monitor",
		Short:        "Launch the FleetVis fleet monitor",
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

			m, err := cfg.NewMonitor()
			if err != nil {
				log.Error(err, "failed to create monitor")
				return err
			}

			return m.Run(ctx)
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}
