// Command kbase answers questions over a local document collection.
package main

import (
	"os"

	"github.com/custodia-labs/kbase/internal/adapters/driving/cli"
)

// version is set at build time.
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
