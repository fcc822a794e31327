package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Casper node JSON-RPC endpoint
	NodeAddress string

	// Chain name the deploys are signed for ( casper or casper-test )
	ChainName string

	// Deploying account hash ( account-hash-... )
	DeployAccount string

	// Factory contract package hash ( hash-... ), needed by the query side
	FactoryPackage string

	// Path of the manifest env file written after a deployment run
	ManifestPath string

	// Postgres connection string; empty disables deployment history
	DatabaseURL string

	// HTTP API listen address
	ListenAddr string

	// Log level ( debug, info, warn, error )
	LogLevel string

	// Finality polling
	MaxPollAttempts int
	PollInterval    time.Duration

	// JSON-RPC request timeout
	RPCTimeout time.Duration
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		NodeAddress:     getEnv("NODE_ADDRESS", "http://localhost:7777/rpc"),
		ChainName:       getEnv("CHAIN_NAME", "casper-test"),
		DeployAccount:   getEnv("DEPLOY_ACCOUNT", ""),
		FactoryPackage:  getEnv("FACTORY_PACKAGE_HASH", ""),
		ManifestPath:    getEnv("MANIFEST_PATH", "deployment.env"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		MaxPollAttempts: getEnvAsInt("FINALITY_MAX_POLLS", 30),
		PollInterval:    time.Duration(getEnvAsInt("FINALITY_POLL_INTERVAL_SEC", 2)) * time.Second,
		RPCTimeout:      time.Duration(getEnvAsInt("RPC_TIMEOUT_SEC", 10)) * time.Second,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.NodeAddress == "" {
		return fmt.Errorf("NODE_ADDRESS is required")
	}
	if c.ChainName == "" {
		return fmt.Errorf("CHAIN_NAME is required")
	}
	if c.MaxPollAttempts <= 0 {
		return fmt.Errorf("FINALITY_MAX_POLLS must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("FINALITY_POLL_INTERVAL_SEC must be positive")
	}
	return nil
}

// Helper: get string from env
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Helper: get int from env
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
