package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/taskflow/internal/cli"
)

var version = "dev"

func main() {
	cmd := cli.NewRootCommand()
	cmd.Version = version
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
