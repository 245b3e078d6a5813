// Command license-keygen generates the RSA key pair used for license
// signing. The private key stays with the authority; the public key is
// shipped with deployed instances.
package main

import (
	"flag"
	"fmt"
	"os"

	"gateguard/internal/security"
)

func main() {
	privateOut := flag.String("private", "license.key", "output path for the PEM private key")
	publicOut := flag.String("public", "license.pub", "output path for the PEM public key")
	force := flag.Bool("force", false, "overwrite existing key files")
	flag.Parse()

	if !*force {
		for _, path := range []string{*privateOut, *publicOut} {
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(os.Stderr, "%s already exists, use -force to overwrite\n", path)
				os.Exit(1)
			}
		}
	}

	publicKey, privateKey, err := security.GenerateKeyPair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "key generation failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*privateOut, security.MarshalPrivateKeyPEM(privateKey), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", *privateOut, err)
		os.Exit(1)
	}

	publicPEM, err := security.MarshalPublicKeyPEM(publicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode public key: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*publicOut, publicPEM, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", *publicOut, err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s and %s\n", *privateOut, *publicOut)
}
