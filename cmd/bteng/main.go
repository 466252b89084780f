// Command bteng runs a demo behavior tree: a patrol robot that drives laps,
// recharges when its battery runs low, and reports when done.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
