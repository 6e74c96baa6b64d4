// Package main provides the guardian operator CLI. It runs the
// verification engine against a corpus file without starting the server.
package main

import (
	"fmt"
	"os"
)

const appName = "guardian"

// Version is set at build time
var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
