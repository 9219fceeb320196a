package main

import (
	"context"
	"fmt"
	"os"

	"github.com/streetcredrx/credauth/internal/client/cli"
)

func main() {
	cmd := cli.NewRootCmd(cli.NewApp)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
