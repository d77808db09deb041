package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/fleetvis-io/fleetvis/cmd/fleetvis-monitor/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.NewMonitorCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
