package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dexops/internal/api"
	"dexops/internal/dex"

	"github.com/urfave/cli/v2"
)

var serveCmd = &cli.Command{
	Name:   "serve",
	Usage:  "serve the HTTP API (pair queries, deployment history, metrics)",
	Action: runServe,
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newNodeClient(cfg)
	if err != nil {
		return err
	}

	// Pair queries need a factory; the server runs without one, serving
	// only health, metrics and deployment history.
	var dexService *dex.Service
	if cfg.FactoryPackage != "" {
		dexService, err = newDexService(cfg, client)
		if err != nil {
			return err
		}
	} else {
		slog.Warn("FACTORY_PACKAGE_HASH not set, pair endpoints disabled")
	}

	ctx := context.Background()
	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	if repo != nil {
		defer repo.Close()
	}

	server := api.NewServer(cfg.ListenAddr, dexService, repo)
	if err := server.Start(); err != nil {
		return err
	}

	// Wait for interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Warn("Interrupt received, shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
