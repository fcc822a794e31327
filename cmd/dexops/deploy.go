package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"dexops/internal/casper"
	"dexops/internal/config"
	"dexops/internal/deploy"
	"dexops/internal/manifest"
	"dexops/internal/storage"

	"github.com/urfave/cli/v2"
)

var deployCmd = &cli.Command{
	Name:      "deploy",
	Usage:     "install and initialize the contract suite, skipping contracts already on chain",
	ArgsUsage: "<plan.json>",
	Action:    runDeploy,
}

// planEntry is one contract of the deploy plan file. Install and init point
// at files holding fully signed deploys.
type planEntry struct {
	Name     string `json:"name"`
	NamedKey string `json:"named_key,omitempty"`
	Install  string `json:"install"`
	Init     string `json:"init,omitempty"`
}

func runDeploy(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: dexops deploy <plan.json>")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DeployAccount == "" {
		return fmt.Errorf("DEPLOY_ACCOUNT is required")
	}
	account, err := casper.ParseIdentifier(cfg.DeployAccount)
	if err != nil {
		return fmt.Errorf("invalid DEPLOY_ACCOUNT: %w", err)
	}

	specs, err := loadPlan(c.Args().Get(0))
	if err != nil {
		return err
	}

	client, err := newNodeClient(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()

	prior, err := loadPriorManifest(cfg.ManifestPath)
	if err != nil {
		return err
	}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	if repo != nil {
		defer repo.Close()
	}

	orch := deploy.New(client, prior, repo, deploy.Config{
		Account:         account,
		NodeURL:         cfg.NodeAddress,
		MaxPollAttempts: cfg.MaxPollAttempts,
		PollInterval:    cfg.PollInterval,
	})

	results, runErr := orch.Run(ctx, specs)

	// The manifest is written even on a failed run: the next run resumes
	// from the contracts that did complete.
	if err := orch.Manifest().WriteFile(cfg.ManifestPath); err != nil {
		slog.Error("Failed to write manifest", "path", cfg.ManifestPath, "error", err)
		if runErr == nil {
			return err
		}
	}

	for _, r := range results {
		action := "installed"
		if r.AlreadyDeployed {
			action = "skipped"
		}
		fmt.Printf("%-16s %-10s %s%s\n",
			r.Name, action, manifest.PackagePrefix, r.Entry.PackageHash.HexHash())
	}

	if runErr != nil {
		return runErr
	}

	fmt.Printf("manifest written to %s\n", cfg.ManifestPath)
	return nil
}

// loadPlan reads a deploy plan and the signed deploys it references
func loadPlan(path string) ([]deploy.ContractSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	var entries []planEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("plan is empty")
	}

	specs := make([]deploy.ContractSpec, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" || e.Install == "" {
			return nil, fmt.Errorf("plan entry needs name and install")
		}

		install, err := os.ReadFile(e.Install)
		if err != nil {
			return nil, fmt.Errorf("failed to read install deploy for %s: %w", e.Name, err)
		}

		spec := deploy.ContractSpec{
			Name:     e.Name,
			NamedKey: e.NamedKey,
			Install:  json.RawMessage(install),
		}

		if e.Init != "" {
			init, err := os.ReadFile(e.Init)
			if err != nil {
				return nil, fmt.Errorf("failed to read init deploy for %s: %w", e.Name, err)
			}
			spec.Init = json.RawMessage(init)
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

// loadPriorManifest loads the manifest of a previous run; a missing file is
// a fresh deployment.
func loadPriorManifest(path string) (*manifest.Manifest, error) {
	m, err := manifest.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load manifest %s: %w", path, err)
	}
	slog.Info("Loaded prior manifest", "path", path, "contracts", m.Len())
	return m, nil
}

// openRepository connects to the history database when configured
func openRepository(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	repo, err := storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("Database connected successfully")
	return repo, nil
}
