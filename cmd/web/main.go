// Command web runs the deployed gateguard instance: it validates the license
// against the authority (or the offline grant cache), then serves the gated
// HTTP API including the self-update endpoints.
package main

import (
	"flag"
	"fmt"
	"os"

	"gateguard/internal/app"
	"gateguard/pkg/contracts"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetVersionInfo().String())
		return
	}

	application, err := app.NewApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "application exited with error: %v\n", err)
		os.Exit(1)
	}
}
