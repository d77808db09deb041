package main

import (
	"os"

	"github.com/fleetvis-io/fleetvis/cmd/fleetvisctl/app"
)

func main() {
	if err := app.NewCtlCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
