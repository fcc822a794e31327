package deploy

import (
	"context"
	"errors"
	"testing"
	"time"

	"dexops/internal/rpc"
)

// fakeStatusClient replays a scripted sequence of deploy statuses
type fakeStatusClient struct {
	statuses []rpc.DeployStatus
	err      error
	polls    int
}

func (f *fakeStatusClient) DeployStatus(ctx context.Context, deployHash string) (rpc.DeployStatus, error) {
	if f.err != nil {
		return rpc.DeployStatus{}, f.err
	}
	i := f.polls
	f.polls++
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func pendingTimes(n int, then rpc.DeployStatus) []rpc.DeployStatus {
	statuses := make([]rpc.DeployStatus, 0, n+1)
	for i := 0; i < n; i++ {
		statuses = append(statuses, rpc.DeployStatus{State: rpc.DeployPending})
	}
	return append(statuses, then)
}

func TestAwaitFinalitySucceedsWithinBudget(t *testing.T) {
	client := &fakeStatusClient{
		statuses: pendingTimes(3, rpc.DeployStatus{State: rpc.DeploySucceeded}),
	}

	attempts, err := AwaitFinality(context.Background(), client, "deadbeef", 10, time.Millisecond)
	if err != nil {
		t.Fatalf("AwaitFinality failed: %v", err)
	}
	if attempts != 4 {
		t.Errorf("expected success on 4th poll, got attempts=%d", attempts)
	}
	if client.polls != 4 {
		t.Errorf("expected exactly 4 polls, got %d", client.polls)
	}
}

func TestAwaitFinalityTimesOut(t *testing.T) {
	client := &fakeStatusClient{
		statuses: pendingTimes(3, rpc.DeployStatus{State: rpc.DeploySucceeded}),
	}

	attempts, err := AwaitFinality(context.Background(), client, "deadbeef", 3, time.Millisecond)
	if !errors.Is(err, ErrFinalityTimeout) {
		t.Fatalf("expected ErrFinalityTimeout, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected attempts=3, got %d", attempts)
	}
	if client.polls != 3 {
		t.Errorf("expected the poll budget respected, got %d polls", client.polls)
	}
}

func TestAwaitFinalityReportsExecutionFailure(t *testing.T) {
	client := &fakeStatusClient{
		statuses: []rpc.DeployStatus{
			{State: rpc.DeployPending},
			{State: rpc.DeployFailed, Message: "User error: 1003"},
		},
	}

	attempts, err := AwaitFinality(context.Background(), client, "deadbeef", 10, time.Millisecond)
	if !errors.Is(err, ErrDeployFailed) {
		t.Fatalf("expected ErrDeployFailed, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected failure reported on 2nd poll, got attempts=%d", attempts)
	}
	if err.Error() == "" || !errors.Is(err, ErrDeployFailed) {
		t.Error("expected the node's message in the error")
	}
}

func TestAwaitFinalityCancellationIsTimeout(t *testing.T) {
	client := &fakeStatusClient{
		statuses: pendingTimes(100, rpc.DeployStatus{State: rpc.DeploySucceeded}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The long poll interval would stall for a minute if cancellation
	// did not end the wait promptly.
	_, err := AwaitFinality(ctx, client, "deadbeef", 100, time.Minute)
	if !errors.Is(err, ErrFinalityTimeout) {
		t.Fatalf("expected cancellation classified as timeout, got %v", err)
	}
	if client.polls != 1 {
		t.Errorf("expected polling to stop after the first pending poll, got %d", client.polls)
	}
}

func TestAwaitFinalityPropagatesPollError(t *testing.T) {
	client := &fakeStatusClient{err: errors.New("connection refused")}

	_, err := AwaitFinality(context.Background(), client, "deadbeef", 5, time.Millisecond)
	if err == nil {
		t.Fatal("expected poll error to propagate")
	}
}
