package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stockscan/cli/cmd"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, version, commit); err != nil {
		stop()
		os.Exit(1)
	}
}
