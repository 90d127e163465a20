// Command busbridge polls NetworkManager from a tick loop and serves the
// org.mechanix.services.Add demo service.
package main

import (
	"os"

	"github.com/roach88/busbridge/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
