// Command tiktok-direct-link runs the resolver endpoint locally, either as an
// HTTP server or for a single URL.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
