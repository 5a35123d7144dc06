package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/betbot/clobauth/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit}); err != nil {
		os.Exit(1)
	}
}
