// Command liftlog reads and edits a workout log kept as a CSV file.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/roach88/liftlog/internal/cli"
)

func main() {
	// A missing .env is normal; a malformed one is worth reporting.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "liftlog:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
