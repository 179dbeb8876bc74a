package main

import (
	"context"
	"log"
	"os"

	"github.com/awnumar/memguard"

	"github.com/dmitrijs2005/gophvault/internal/cli"
	"github.com/dmitrijs2005/gophvault/internal/config"
	"github.com/dmitrijs2005/gophvault/internal/logging"
)

func main() {
	// Wipe key buffers on Ctrl-C and on every normal exit path.
	memguard.CatchInterrupt()

	if err := run(); err != nil {
		memguard.Purge()
		log.Fatalf("%v", err)
	}
	memguard.Purge()
}

func run() error {
	ctx := context.Background()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return app.Run(ctx)
}
