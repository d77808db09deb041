package app

import (
	"fmt"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/fleetvis-io/fleetvis/internal/monitor"
)

const defaultServer = "http://localhost:8080"

// NewCtlCommand builds the fleetvisctl command tree.
func NewCtlCommand() *cobra.Command {
	var server string

	root := &cobra.Command{
		Use:          "fleetvisctl",
		Short:        "Inspect a running FleetVis monitor",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&server, "server", "s", defaultServer, "Base URL of the fleetvis-monitor API.")

	client := func() *apiClient {
		return newAPIClient(strings.TrimRight(server, "/"))
	}

	root.AddCommand(
		newVehiclesCommand(client),
		newVehicleCommand(client),
		newStatusCommand(client),
		newMessagesCommand(client),
	)
	return root
}

func newVehiclesCommand(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "vehicles",
		Short: "List all vehicle sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var vehicles []monitor.VehicleSummary
			if err := client().get("/api/v1/vehicles", &vehicles); err != nil {
				return err
			}

			table := uitable.New()
			table.AddRow("MANUFACTURER", "SERIAL", "CONNECTION", "POSITION")
			for _, v := range vehicles {
				pos := "-"
				if v.Position != nil {
					pos = fmt.Sprintf("(%.2f, %.2f)", v.Position.X, v.Position.Y)
				}
				state := string(v.ConnectionState)
				if state == "" {
					state = "-"
				}
				table.AddRow(v.Identity.Manufacturer, v.Identity.SerialNumber, state, pos)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newVehicleCommand(client func() *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicle",
		Short: "Manage a single vehicle session",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <manufacturer> <serialNumber>",
		Short: "Show the full session state of one vehicle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap monitor.Snapshot
			if err := client().get("/api/v1/vehicles/"+args[0]+"/"+args[1], &snap); err != nil {
				return err
			}

			table := uitable.New()
			table.AddRow("Vehicle:", snap.Identity.Key())
			if snap.ConnectionInfo != nil {
				table.AddRow("Connection:", string(snap.ConnectionInfo.ConnectionState))
			}
			if snap.OrderInfo != nil {
				table.AddRow("Order:", snap.OrderInfo.OrderId)
				table.AddRow("Order nodes:", len(snap.OrderInfo.Nodes))
			}
			if snap.Position != nil {
				table.AddRow("Position:", fmt.Sprintf("(%.2f, %.2f)", snap.Position.X, snap.Position.Y))
			}
			table.AddRow("Graph nodes:", len(snap.Graph.Nodes))
			table.AddRow("Graph edges:", len(snap.Graph.Edges))
			table.AddRow("Instant actions:", len(snap.InstantActionsInfo))
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <manufacturer> <serialNumber>",
		Short: "Register a vehicle session ahead of its first message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"manufacturer": args[0], "serialNumber": args[1]}
			if err := client().post("/api/v1/vehicles", body, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vehicle %s/%s added\n", args[0], args[1])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <manufacturer> <serialNumber>",
		Short: "Drop a vehicle session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().delete("/api/v1/vehicles/" + args[0] + "/" + args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vehicle %s/%s removed\n", args[0], args[1])
			return nil
		},
	})

	return cmd
}

func newStatusCommand(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the monitor's broker connection status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status monitor.TransportStatus
			if err := client().get("/api/v1/status", &status); err != nil {
				return err
			}

			table := uitable.New()
			table.AddRow("State:", string(status.State))
			table.AddRow("Reconnect attempts:", status.ReconnectAttempts)
			table.AddRow("Subscriptions:", strings.Join(status.SubscribedTopics, ", "))
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newMessagesCommand(client func() *apiClient) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Show the most recent inbound messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []monitor.LoggedMessage
			if err := client().get("/api/v1/messages", &entries); err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			table := uitable.New()
			table.MaxColWidth = 80
			table.AddRow("RECEIVED", "CATEGORY", "TOPIC")
			for _, e := range entries {
				table.AddRow(e.ReceivedAt.Format("15:04:05.000"), string(e.Category), e.Topic)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show only the last N messages; 0 shows all.")
	return cmd
}
