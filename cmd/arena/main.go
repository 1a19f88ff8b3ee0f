// Command arena runs battles between event-driven agents.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/arena/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
