package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/useradmin/internal/client/cli"
)

func main() {
	ctx := context.Background()

	if err := cli.NewRootCommand(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}
