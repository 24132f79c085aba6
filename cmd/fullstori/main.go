// Command fullstori is the operator and scripting CLI for a fullstori server.
package main

import (
	"os"

	"github.com/Tatenda/fullstori/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
