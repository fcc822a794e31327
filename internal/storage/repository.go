package storage

import (
	"context"

	"dexops/internal/models"
)

// Repository defines the interface for deployment-history storage.
// The orchestrator works without one (nil repository = no history); when one
// is configured, saves are best-effort and never abort a deployment.
type Repository interface {
	// Deployed Contracts
	SaveDeployedContract(ctx context.Context, contract *models.DeployedContract) error
	GetDeployedContract(ctx context.Context, name string) (*models.DeployedContract, error)
	ListDeployedContracts(ctx context.Context, limit, offset int) ([]*models.DeployedContract, error)

	// Deployment Steps
	SaveDeploymentStep(ctx context.Context, step *models.DeploymentStep) error
	ListDeploymentSteps(ctx context.Context, runID string, limit, offset int) ([]*models.DeploymentStep, error)

	// Pair Snapshots
	SavePairSnapshot(ctx context.Context, snapshot *models.PairSnapshot) error
	ListPairSnapshots(ctx context.Context, pairContract string, limit, offset int) ([]*models.PairSnapshot, error)

	// Health & Maintenance
	Ping(ctx context.Context) error
	Close() error
}
