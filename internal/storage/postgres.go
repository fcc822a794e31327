package storage

import (
	"context"
	"fmt"

	"dexops/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

// SaveDeployedContract saves a confirmed contract to the database.
// Re-running a deployment re-saves the same rows; the conflict target keeps
// that idempotent.
func (r *PostgresRepository) SaveDeployedContract(ctx context.Context, contract *models.DeployedContract) error {
	query := `
		INSERT INTO deployed_contracts (
			name, package_hash, contract_hash, already_deployed,
			deploy_hash, account, node_url, deployed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name, package_hash) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		contract.Name,
		contract.PackageHash,
		contract.ContractHash,
		contract.AlreadyDeployed,
		contract.DeployHash,
		contract.Account,
		contract.NodeURL,
		contract.DeployedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save deployed contract: %w", err)
	}

	return nil
}

// GetDeployedContract retrieves the latest record for one logical name
func (r *PostgresRepository) GetDeployedContract(ctx context.Context, name string) (*models.DeployedContract, error) {
	query := `
		SELECT
			name, package_hash, contract_hash, already_deployed,
			deploy_hash, account, node_url, deployed_at
		FROM deployed_contracts
		WHERE name = $1
		ORDER BY deployed_at DESC
		LIMIT 1
	`

	var contract models.DeployedContract
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&contract.Name,
		&contract.PackageHash,
		&contract.ContractHash,
		&contract.AlreadyDeployed,
		&contract.DeployHash,
		&contract.Account,
		&contract.NodeURL,
		&contract.DeployedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("contract not found: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deployed contract: %w", err)
	}

	return &contract, nil
}

// ListDeployedContracts lists recorded contracts with pagination
func (r *PostgresRepository) ListDeployedContracts(ctx context.Context, limit, offset int) ([]*models.DeployedContract, error) {
	query := `
		SELECT
			name, package_hash, contract_hash, already_deployed,
			deploy_hash, account, node_url, deployed_at
		FROM deployed_contracts
		ORDER BY deployed_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployed contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*models.DeployedContract
	for rows.Next() {
		var contract models.DeployedContract
		err := rows.Scan(
			&contract.Name,
			&contract.PackageHash,
			&contract.ContractHash,
			&contract.AlreadyDeployed,
			&contract.DeployHash,
			&contract.Account,
			&contract.NodeURL,
			&contract.DeployedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployed contract: %w", err)
		}
		contracts = append(contracts, &contract)
	}

	return contracts, rows.Err()
}

// SaveDeploymentStep records one orchestration step's terminal state
func (r *PostgresRepository) SaveDeploymentStep(ctx context.Context, step *models.DeploymentStep) error {
	query := `
		INSERT INTO deployment_steps (
			run_id, contract_name, action, status,
			deploy_hash, message, attempts, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		step.RunID,
		step.ContractName,
		step.Action,
		step.Status,
		step.DeployHash,
		step.Message,
		step.Attempts,
		step.FinishedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save deployment step: %w", err)
	}

	return nil
}

// ListDeploymentSteps lists the steps of one run in execution order
func (r *PostgresRepository) ListDeploymentSteps(ctx context.Context, runID string, limit, offset int) ([]*models.DeploymentStep, error) {
	query := `
		SELECT
			run_id, contract_name, action, status,
			deploy_hash, message, attempts, finished_at
		FROM deployment_steps
		WHERE run_id = $1
		ORDER BY finished_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, runID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployment steps: %w", err)
	}
	defer rows.Close()

	var steps []*models.DeploymentStep
	for rows.Next() {
		var step models.DeploymentStep
		err := rows.Scan(
			&step.RunID,
			&step.ContractName,
			&step.Action,
			&step.Status,
			&step.DeployHash,
			&step.Message,
			&step.Attempts,
			&step.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment step: %w", err)
		}
		steps = append(steps, &step)
	}

	return steps, rows.Err()
}

// SavePairSnapshot records one observed reserve state
func (r *PostgresRepository) SavePairSnapshot(ctx context.Context, snapshot *models.PairSnapshot) error {
	query := `
		INSERT INTO pair_snapshots (
			pair_contract, token0, token1, reserve0, reserve1,
			state_root, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		snapshot.PairContract,
		snapshot.Token0,
		snapshot.Token1,
		snapshot.Reserve0,
		snapshot.Reserve1,
		snapshot.StateRoot,
		snapshot.ObservedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save pair snapshot: %w", err)
	}

	return nil
}

// ListPairSnapshots lists recorded snapshots of one pair, newest first
func (r *PostgresRepository) ListPairSnapshots(ctx context.Context, pairContract string, limit, offset int) ([]*models.PairSnapshot, error) {
	query := `
		SELECT
			pair_contract, token0, token1, reserve0, reserve1,
			state_root, observed_at
		FROM pair_snapshots
		WHERE pair_contract = $1
		ORDER BY observed_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, pairContract, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pair snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.PairSnapshot
	for rows.Next() {
		var snapshot models.PairSnapshot
		err := rows.Scan(
			&snapshot.PairContract,
			&snapshot.Token0,
			&snapshot.Token1,
			&snapshot.Reserve0,
			&snapshot.Reserve1,
			&snapshot.StateRoot,
			&snapshot.ObservedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pair snapshot: %w", err)
		}
		snapshots = append(snapshots, &snapshot)
	}

	return snapshots, rows.Err()
}

// Ping checks the database connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
