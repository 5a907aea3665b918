package main

import (
	"fmt"
	"os"

	"token-ledger/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.DefaultLoader).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
