// Command dailies plays the daily word puzzles and runs the result service.
package main

import (
	"context"
	"fmt"
	"os"

	_ "time/tzdata"

	"github.com/roach88/dailies/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
