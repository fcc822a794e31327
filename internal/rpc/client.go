// Package rpc is the JSON-RPC client for the node: dictionary storage
// lookups, global-state queries, deploy submission and status polling.
// Transport-level retry lives here and nowhere above.
package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"dexops/internal/casper"
	"dexops/internal/metrics"
	"dexops/internal/rpc/retry"
)

// Deploy status markers reported by the node
const (
	methodStateRootHash  = "chain_get_state_root_hash"
	methodDictionaryItem = "state_get_dictionary_item"
	methodQueryState     = "query_global_state"
	methodPutDeploy      = "account_put_deploy"
	methodGetDeploy      = "info_get_deploy"
)

// StateDictionaryName is the named dictionary every contract keeps its
// hash-addressed fields under.
const StateDictionaryName = "state"

// ClientConfig configures the node client
type ClientConfig struct {
	// Endpoint is the node's JSON-RPC URL
	Endpoint string
	// Timeout bounds one HTTP round trip
	Timeout time.Duration
	// Retry configures transport-level retry beneath every call
	Retry retry.Config
}

// Client talks JSON-RPC to one node
type Client struct {
	endpoint string
	http     *http.Client
	strategy retry.Strategy
	nextID   atomic.Int64
}

// NewClient builds a Client from config
func NewClient(config ClientConfig) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("rpc: endpoint is required")
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		endpoint: config.Endpoint,
		http:     &http.Client{Timeout: timeout},
		strategy: retry.NewStrategy(config.Retry),
	}, nil
}

// call performs one JSON-RPC request with transport retry and decodes the
// result into out. A node-reported "value not found" becomes ErrNotFound.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	metrics.RPCRequests.WithLabelValues(method).Inc()
	start := time.Now()

	err := c.strategy.Execute(ctx, func() error {
		return c.callOnce(ctx, method, params, out)
	})

	metrics.RPCRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCErrors.WithLabelValues(method).Inc()
	}
	return err
}

func (c *Client) callOnce(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: http status %d: %s", method, resp.StatusCode, string(raw))
	}

	var envelope response
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if envelope.Error != nil {
		if envelope.Error.isNotFound() {
			return fmt.Errorf("%s: %w", method, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", method, envelope.Error)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

// StateRootHash returns the current state root
func (c *Client) StateRootHash(ctx context.Context) (string, error) {
	var result struct {
		StateRootHash string `json:"state_root_hash"`
	}
	if err := c.call(ctx, methodStateRootHash, nil, &result); err != nil {
		return "", err
	}
	return result.StateRootHash, nil
}

// DictionaryItem reads one stored value from a contract's state dictionary
// at the given root. itemKey is the lowercase-hex storage key.
func (c *Client) DictionaryItem(ctx context.Context, stateRoot string, contract casper.Identifier, itemKey string) (casper.CLValue, error) {
	metrics.DictionaryReads.Inc()

	params := map[string]any{
		"state_root_hash": stateRoot,
		"dictionary_identifier": map[string]any{
			"ContractNamedKey": map[string]any{
				"key":                 "hash-" + contract.HexHash(),
				"dictionary_name":     StateDictionaryName,
				"dictionary_item_key": itemKey,
			},
		},
	}

	var result struct {
		StoredValue storedValueJSON `json:"stored_value"`
	}
	if err := c.call(ctx, methodDictionaryItem, params, &result); err != nil {
		if isNotFoundErr(err) {
			metrics.DictionaryMisses.Inc()
		}
		return casper.CLValue{}, err
	}

	if result.StoredValue.CLValue == nil {
		return casper.CLValue{}, fmt.Errorf("%s: stored value is not a CLValue", methodDictionaryItem)
	}
	return decodeCLValue(*result.StoredValue.CLValue)
}

// ContractPackage reads a package's metadata (its installed version list)
func (c *Client) ContractPackage(ctx context.Context, stateRoot string, pkg casper.Identifier) (ContractPackage, error) {
	stored, err := c.queryGlobalState(ctx, stateRoot, "hash-"+pkg.HexHash())
	if err != nil {
		return ContractPackage{}, err
	}
	if stored.ContractPackage == nil {
		return ContractPackage{}, fmt.Errorf("%s: stored value is not a contract package", methodQueryState)
	}

	out := ContractPackage{}
	for _, v := range stored.ContractPackage.Versions {
		hash, err := casper.ParseIdentifier(v.ContractHash)
		if err != nil {
			return ContractPackage{}, fmt.Errorf("contract package version %d: %w", v.ContractVersion, err)
		}
		out.Versions = append(out.Versions, ContractVersion{
			ContractHash: hash,
			Version:      v.ContractVersion,
		})
	}
	return out, nil
}

// AccountNamedKeys reads the named references recorded under an account.
// Installers record the package hash of each installed contract here, which
// is what makes re-running a deployment observable.
func (c *Client) AccountNamedKeys(ctx context.Context, stateRoot string, account casper.Identifier) (map[string]casper.Identifier, error) {
	stored, err := c.queryGlobalState(ctx, stateRoot, "account-hash-"+account.HexHash())
	if err != nil {
		return nil, err
	}
	if stored.Account == nil {
		return nil, fmt.Errorf("%s: stored value is not an account", methodQueryState)
	}

	keys := make(map[string]casper.Identifier, len(stored.Account.NamedKeys))
	for _, nk := range stored.Account.NamedKeys {
		id, err := casper.ParseIdentifier(nk.Key)
		if err != nil {
			// Named keys also hold URefs and other non-hash entries; skip them
			continue
		}
		keys[nk.Name] = id
	}
	return keys, nil
}

func (c *Client) queryGlobalState(ctx context.Context, stateRoot, key string) (storedValueJSON, error) {
	params := map[string]any{
		"state_identifier": map[string]any{"StateRootHash": stateRoot},
		"key":              key,
		"path":             []string{},
	}

	var result struct {
		StoredValue storedValueJSON `json:"stored_value"`
	}
	if err := c.call(ctx, methodQueryState, params, &result); err != nil {
		return storedValueJSON{}, err
	}
	return result.StoredValue, nil
}

// Submit sends a signed deploy and returns its hash. The deploy is built and
// signed by external tooling; this client only carries it to the node.
func (c *Client) Submit(ctx context.Context, deploy json.RawMessage) (string, error) {
	metrics.DeploysSubmitted.Inc()

	params := map[string]any{"deploy": deploy}
	var result struct {
		DeployHash string `json:"deploy_hash"`
	}
	if err := c.call(ctx, methodPutDeploy, params, &result); err != nil {
		return "", err
	}
	return result.DeployHash, nil
}

// DeployStatus reports whether a submitted deploy has reached a terminal
// state. A deploy the node knows nothing about yet is Pending, not an error.
func (c *Client) DeployStatus(ctx context.Context, deployHash string) (DeployStatus, error) {
	metrics.FinalityPolls.Inc()

	params := map[string]any{"deploy_hash": deployHash}
	var result struct {
		ExecutionResults []struct {
			Result struct {
				Success *json.RawMessage `json:"Success,omitempty"`
				Failure *struct {
					ErrorMessage string `json:"error_message"`
				} `json:"Failure,omitempty"`
			} `json:"result"`
		} `json:"execution_results"`
	}

	if err := c.call(ctx, methodGetDeploy, params, &result); err != nil {
		if isNotFoundErr(err) {
			return DeployStatus{State: DeployPending}, nil
		}
		return DeployStatus{}, err
	}

	if len(result.ExecutionResults) == 0 {
		return DeployStatus{State: DeployPending}, nil
	}

	r := result.ExecutionResults[0].Result
	if r.Failure != nil {
		return DeployStatus{State: DeployFailed, Message: r.Failure.ErrorMessage}, nil
	}
	if r.Success != nil {
		return DeployStatus{State: DeploySucceeded}, nil
	}
	return DeployStatus{State: DeployPending}, nil
}

// DeployState is the node-observed lifecycle of a submitted deploy
type DeployState int

const (
	DeployPending DeployState = iota
	DeploySucceeded
	DeployFailed
)

// DeployStatus carries the state and, on failure, the node's message verbatim
type DeployStatus struct {
	State   DeployState
	Message string
}

func isNotFoundErr(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func decodeCLValue(v clValueJSON) (casper.CLValue, error) {
	raw, err := hex.DecodeString(v.Bytes)
	if err != nil {
		return casper.CLValue{}, fmt.Errorf("cl value bytes are not hex: %w", err)
	}
	return casper.CLValue{
		Type:  clTypeFromJSON(v.CLType),
		Bytes: raw,
	}, nil
}
