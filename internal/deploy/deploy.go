package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dexops/internal/casper"
	"dexops/internal/manifest"
	"dexops/internal/metrics"
	"dexops/internal/models"
	"dexops/internal/rpc"
	"dexops/internal/storage"
)

// ErrNoActiveVersion indicates a contract package with no enabled versions
var ErrNoActiveVersion = errors.New("contract package has no active version")

// NodeClient is the node surface the orchestrator needs. *rpc.Client
// implements it.
type NodeClient interface {
	StateRootHash(ctx context.Context) (string, error)
	AccountNamedKeys(ctx context.Context, stateRoot string, account casper.Identifier) (map[string]casper.Identifier, error)
	ContractPackage(ctx context.Context, stateRoot string, pkg casper.Identifier) (rpc.ContractPackage, error)
	Submit(ctx context.Context, deploy json.RawMessage) (string, error)
	DeployStatus(ctx context.Context, deployHash string) (rpc.DeployStatus, error)
}

// ContractSpec describes one contract of the suite. Install and Init carry
// fully formed, signed deploys; building and signing them happens upstream.
type ContractSpec struct {
	// Name is the logical name used in the manifest and the step log.
	Name string

	// NamedKey is the account named key under which the installer stores
	// the package hash. Defaults to the canonical form of Name.
	NamedKey string

	// Install is the signed installation deploy, as JSON.
	Install json.RawMessage

	// Init is an optional signed post-install deploy (constructor-style
	// entry point call). Skipped when the contract was already on chain.
	Init json.RawMessage
}

func (s ContractSpec) namedKey() string {
	if s.NamedKey != "" {
		return s.NamedKey
	}
	return manifest.CanonicalName(s.Name)
}

// Config holds the orchestrator's tunables
type Config struct {
	// Account is the deploying account; its named keys are the
	// idempotency probe target.
	Account casper.Identifier

	// NodeURL is recorded with each deployed contract.
	NodeURL string

	// MaxPollAttempts bounds finality polling per deploy.
	MaxPollAttempts int

	// PollInterval is the wait between finality polls.
	PollInterval time.Duration
}

// Result is the outcome of ensuring one contract
type Result struct {
	Name            string
	Entry           manifest.Entry
	AlreadyDeployed bool
	DeployHash      string
}

// Orchestrator installs and initializes a suite of contracts in order,
// skipping the ones already present, and records what it did. The manifest
// is the cross-run source of truth; the repository, when configured, keeps
// history and never blocks progress.
type Orchestrator struct {
	node     NodeClient
	manifest *manifest.Manifest
	repo     storage.Repository
	config   Config
	runID    string
}

// New creates an Orchestrator. prior may be nil (fresh deployment); repo may
// be nil (no history).
func New(node NodeClient, prior *manifest.Manifest, repo storage.Repository, config Config) *Orchestrator {
	m := manifest.New()
	if prior != nil {
		m.Merge(prior)
	}
	if config.MaxPollAttempts <= 0 {
		config.MaxPollAttempts = 30
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	return &Orchestrator{
		node:     node,
		manifest: m,
		repo:     repo,
		config:   config,
		runID:    fmt.Sprintf("run-%d", time.Now().UnixNano()),
	}
}

// Manifest returns the manifest accumulated so far, including entries from
// the prior run. On a failed Run it holds the contracts that did complete.
func (o *Orchestrator) Manifest() *manifest.Manifest {
	return o.manifest
}

// Run ensures every contract in order. Order matters: later contracts
// reference the hashes of earlier ones. The first failure or timeout aborts
// the run; completed contracts stay in the manifest so the next run resumes
// where this one stopped.
func (o *Orchestrator) Run(ctx context.Context, specs []ContractSpec) ([]Result, error) {
	results := make([]Result, 0, len(specs))

	for _, spec := range specs {
		result, err := o.EnsureDeployed(ctx, spec)
		if err != nil {
			slog.Error("Deployment run aborted",
				"contract", spec.Name,
				"completed", len(results),
				"error", err,
			)
			return results, fmt.Errorf("failed to deploy %s: %w", spec.Name, err)
		}
		results = append(results, result)
	}

	slog.Info("Deployment run complete",
		"run_id", o.runID,
		"contracts", len(results),
	)
	return results, nil
}

// EnsureDeployed makes sure one contract exists on chain, installing and
// initializing it only if nothing from a prior run is found. The probe runs
// in two stages: the manifest from the previous run, then the account's
// named keys on the node. Either hit means skip.
func (o *Orchestrator) EnsureDeployed(ctx context.Context, spec ContractSpec) (Result, error) {
	if entry, ok := o.manifest.Get(spec.Name); ok {
		slog.Info("Contract already in manifest, skipping",
			"contract", spec.Name,
			"package_hash", entry.PackageHash.String(),
		)
		o.recordStep(ctx, spec.Name, "skip", models.StepSuccess, "", "manifest hit", 0)
		metrics.DeploymentsCompleted.WithLabelValues("skipped").Inc()
		return Result{Name: spec.Name, Entry: entry, AlreadyDeployed: true}, nil
	}

	entry, found, err := o.probeNamedKeys(ctx, spec)
	if err != nil {
		return Result{}, err
	}
	if found {
		slog.Info("Contract found in account named keys, skipping",
			"contract", spec.Name,
			"named_key", spec.namedKey(),
			"package_hash", entry.PackageHash.String(),
		)
		o.manifest.Set(spec.Name, entry)
		o.recordStep(ctx, spec.Name, "skip", models.StepSuccess, "", "named key hit", 0)
		o.recordContract(ctx, spec.Name, entry, true, "")
		metrics.DeploymentsCompleted.WithLabelValues("skipped").Inc()
		return Result{Name: spec.Name, Entry: entry, AlreadyDeployed: true}, nil
	}

	deployHash, err := o.install(ctx, spec)
	if err != nil {
		return Result{}, err
	}

	// The installer writes the package hash under the account's named
	// keys; re-probe against a fresh root to pick it up.
	entry, found, err = o.probeNamedKeys(ctx, spec)
	if err != nil {
		return Result{}, err
	}
	if !found {
		o.recordStep(ctx, spec.Name, "install", models.StepFailure, deployHash,
			"install succeeded but named key missing", 0)
		metrics.DeploymentsCompleted.WithLabelValues("failure").Inc()
		return Result{}, fmt.Errorf("install of %s finalized but named key %q not found", spec.Name, spec.namedKey())
	}

	if spec.Init != nil {
		if err := o.initialize(ctx, spec); err != nil {
			return Result{}, err
		}
	}

	o.manifest.Set(spec.Name, entry)
	o.recordContract(ctx, spec.Name, entry, false, deployHash)
	metrics.DeploymentsCompleted.WithLabelValues("success").Inc()

	return Result{Name: spec.Name, Entry: entry, DeployHash: deployHash}, nil
}

// probeNamedKeys looks for the contract's named key in the deploying
// account and, on a hit, resolves the package's active contract hash.
// Absence is a normal answer, not an error.
func (o *Orchestrator) probeNamedKeys(ctx context.Context, spec ContractSpec) (manifest.Entry, bool, error) {
	root, err := o.node.StateRootHash(ctx)
	if err != nil {
		return manifest.Entry{}, false, fmt.Errorf("failed to get state root: %w", err)
	}

	keys, err := o.node.AccountNamedKeys(ctx, root, o.config.Account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return manifest.Entry{}, false, nil
		}
		return manifest.Entry{}, false, fmt.Errorf("failed to read account named keys: %w", err)
	}

	pkg, ok := keys[spec.namedKey()]
	if !ok {
		return manifest.Entry{}, false, nil
	}

	contractHash, err := o.activeContract(ctx, root, pkg)
	if err != nil {
		return manifest.Entry{}, false, fmt.Errorf("failed to resolve %s: %w", spec.Name, err)
	}

	return manifest.Entry{PackageHash: pkg, ContractHash: contractHash}, true, nil
}

// activeContract picks the highest enabled version of a package
func (o *Orchestrator) activeContract(ctx context.Context, stateRoot string, pkg casper.Identifier) (casper.Identifier, error) {
	cp, err := o.node.ContractPackage(ctx, stateRoot, pkg)
	if err != nil {
		return casper.Identifier{}, err
	}
	if len(cp.Versions) == 0 {
		return casper.Identifier{}, ErrNoActiveVersion
	}

	best := cp.Versions[0]
	for _, v := range cp.Versions[1:] {
		if v.Version > best.Version {
			best = v
		}
	}
	return best.ContractHash, nil
}

func (o *Orchestrator) install(ctx context.Context, spec ContractSpec) (string, error) {
	deployHash, err := o.node.Submit(ctx, spec.Install)
	if err != nil {
		o.recordStep(ctx, spec.Name, "install", models.StepFailure, "", err.Error(), 0)
		metrics.DeploymentsCompleted.WithLabelValues("failure").Inc()
		return "", fmt.Errorf("failed to submit install: %w", err)
	}

	slog.Info("Install submitted",
		"contract", spec.Name,
		"deploy_hash", deployHash,
	)

	attempts, err := AwaitFinality(ctx, o.node, deployHash, o.config.MaxPollAttempts, o.config.PollInterval)
	if err != nil {
		o.recordFinalityFailure(ctx, spec.Name, "install", deployHash, attempts, err)
		return "", err
	}

	o.recordStep(ctx, spec.Name, "install", models.StepSuccess, deployHash, "", attempts)
	return deployHash, nil
}

func (o *Orchestrator) initialize(ctx context.Context, spec ContractSpec) error {
	deployHash, err := o.node.Submit(ctx, spec.Init)
	if err != nil {
		o.recordStep(ctx, spec.Name, "init", models.StepFailure, "", err.Error(), 0)
		metrics.DeploymentsCompleted.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to submit init: %w", err)
	}

	slog.Info("Init submitted",
		"contract", spec.Name,
		"deploy_hash", deployHash,
	)

	attempts, err := AwaitFinality(ctx, o.node, deployHash, o.config.MaxPollAttempts, o.config.PollInterval)
	if err != nil {
		o.recordFinalityFailure(ctx, spec.Name, "init", deployHash, attempts, err)
		return err
	}

	o.recordStep(ctx, spec.Name, "init", models.StepSuccess, deployHash, "", attempts)
	return nil
}

func (o *Orchestrator) recordFinalityFailure(ctx context.Context, name, action, deployHash string, attempts int, err error) {
	status := models.StepFailure
	label := "failure"
	if errors.Is(err, ErrFinalityTimeout) {
		status = models.StepTimeout
		label = "timeout"
	}
	o.recordStep(ctx, name, action, status, deployHash, err.Error(), attempts)
	metrics.DeploymentsCompleted.WithLabelValues(label).Inc()
}

// recordStep writes a step to the repository. History is best-effort: a
// failed save is logged, never propagated.
func (o *Orchestrator) recordStep(ctx context.Context, name, action, status, deployHash, message string, attempts int) {
	if o.repo == nil {
		return
	}

	step := &models.DeploymentStep{
		RunID:        o.runID,
		ContractName: name,
		Action:       action,
		Status:       status,
		DeployHash:   deployHash,
		Message:      message,
		Attempts:     attempts,
		FinishedAt:   time.Now().UTC(),
	}
	if err := o.repo.SaveDeploymentStep(ctx, step); err != nil {
		slog.Error("Failed to save deployment step",
			"contract", name,
			"action", action,
			"error", err,
		)
	}
}

func (o *Orchestrator) recordContract(ctx context.Context, name string, entry manifest.Entry, alreadyDeployed bool, deployHash string) {
	if o.repo == nil {
		return
	}

	contract := &models.DeployedContract{
		Name:            name,
		PackageHash:     manifest.PackagePrefix + entry.PackageHash.HexHash(),
		ContractHash:    manifest.ContractPrefix + entry.ContractHash.HexHash(),
		AlreadyDeployed: alreadyDeployed,
		DeployHash:      deployHash,
		Account:         o.config.Account.String(),
		NodeURL:         o.config.NodeURL,
		DeployedAt:      time.Now().UTC(),
	}
	if err := o.repo.SaveDeployedContract(ctx, contract); err != nil {
		slog.Error("Failed to save deployed contract",
			"contract", name,
			"error", err,
		)
	}
}
