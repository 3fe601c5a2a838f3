package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/overlod-admin/internal/cli"
	"github.com/samvad-hq/overlod-admin/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer logger.Close()

	return cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}
