package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dexops/internal/rpc"
)

var (
	// ErrFinalityTimeout signals that a deploy was still pending after the
	// configured number of polls. The deploy may yet land on chain.
	ErrFinalityTimeout = errors.New("deploy not finalized within poll budget")

	// ErrDeployFailed signals that the node reported terminal execution
	// failure for a deploy.
	ErrDeployFailed = errors.New("deploy execution failed")
)

// StatusClient reports the node-observed state of a submitted deploy
type StatusClient interface {
	DeployStatus(ctx context.Context, deployHash string) (rpc.DeployStatus, error)
}

// AwaitFinality polls the node until the deploy reaches a terminal state or
// the poll budget runs out. An unknown deploy hash counts as pending: nodes
// answer queries before gossip delivers the deploy. Returns the number of
// polls performed alongside the outcome.
func AwaitFinality(ctx context.Context, client StatusClient, deployHash string, maxAttempts int, pollInterval time.Duration) (int, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := client.DeployStatus(ctx, deployHash)
		if err != nil {
			return attempt, fmt.Errorf("failed to poll deploy %s: %w", deployHash, err)
		}

		switch status.State {
		case rpc.DeploySucceeded:
			slog.Debug("Deploy finalized",
				"deploy_hash", deployHash,
				"attempts", attempt,
			)
			return attempt, nil
		case rpc.DeployFailed:
			return attempt, fmt.Errorf("%w: %s", ErrDeployFailed, status.Message)
		}

		// Pending. Don't sleep after the last attempt; the budget is spent.
		if attempt == maxAttempts {
			break
		}

		// Cancellation ends the wait with timeout semantics: the deploy
		// was still pending when polling stopped.
		select {
		case <-ctx.Done():
			return attempt, fmt.Errorf("%w: %v", ErrFinalityTimeout, ctx.Err())
		case <-time.After(pollInterval):
		}
	}

	return maxAttempts, fmt.Errorf("%w: deploy %s after %d polls", ErrFinalityTimeout, deployHash, maxAttempts)
}
