package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/clinicsync/internal/client/cli"
)

func main() {
	if err := cli.Execute(context.Background(), os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
