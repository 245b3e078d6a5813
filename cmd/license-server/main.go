// Command license-server runs the license authority. It loads the operator
// maintained license record store and the RSA signing key, and answers
// validation requests from deployed instances with signed grants.
package main

import (
	"fmt"
	"os"

	"gateguard/internal/app"
)

func main() {
	authority, err := app.NewAuthority()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize authority: %v\n", err)
		os.Exit(1)
	}

	if err := authority.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "authority exited with error: %v\n", err)
		os.Exit(1)
	}
}
