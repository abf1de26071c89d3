// Command trader runs the equity trade decision engine.
package main

import (
	"fmt"
	"os"

	"equity-trader/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
