package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/markdave123-py/bostadsdata/internal/cli"
	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/logger"
)

func main() {
	// SIGINT/SIGTERM cancel the run at the next I/O or pacing step.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg := config.LoadConfig()
	log, err := logger.New(cfg.LogMode, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		stop()
		os.Exit(cli.ExitFailure)
	}

	code := cli.Execute(ctx, cfg, log, cli.AppFactory(log), os.Args[1:])
	log.Sync()
	stop()
	os.Exit(code)
}
