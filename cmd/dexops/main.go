package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"dexops/internal/casper"
	"dexops/internal/config"
	"dexops/internal/dex"
	"dexops/internal/rpc"
	"dexops/internal/rpc/retry"
	"dexops/internal/state"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// Environment first: every command reads its settings from env vars,
	// optionally seeded from a .env file.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "dexops",
		Usage: "Casper DEX contract state resolver and deployment orchestrator",
		Commands: []*cli.Command{
			deployCmd,
			pairCmd,
			reservesCmd,
			quoteCmd,
			eventsCmd,
			keyCmd,
			serveCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("dexops: %v", err)
	}
}

// loadConfig loads and validates the environment configuration, and installs
// the default logger at the configured level.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	return cfg, nil
}

// newNodeClient builds the JSON-RPC client from config
func newNodeClient(cfg *config.Config) (*rpc.Client, error) {
	return rpc.NewClient(rpc.ClientConfig{
		Endpoint: cfg.NodeAddress,
		Timeout:  cfg.RPCTimeout,
		Retry:    retry.LoadConfig(),
	})
}

// newDexService builds the pair query service; requires a factory package
// hash in the environment.
func newDexService(cfg *config.Config, client *rpc.Client) (*dex.Service, error) {
	if cfg.FactoryPackage == "" {
		return nil, fmt.Errorf("FACTORY_PACKAGE_HASH is required")
	}
	factory, err := casper.ParseIdentifier(cfg.FactoryPackage)
	if err != nil {
		return nil, fmt.Errorf("invalid FACTORY_PACKAGE_HASH: %w", err)
	}
	return dex.NewService(state.NewResolver(client), factory), nil
}
