// Package main runs the storefront catalog API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-storefront/internal/app"
	"github.com/goliatone/go-storefront/internal/config"
)

func main() {
	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cfg.NewLogger(os.Stdout)
	if err := app.Run(ctx, cfg, logger); err != nil {
		config.Exitf("Error: %v", err)
	}
}
