package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dexops/internal/casper"
)

// newTestClient points a Client at a handler that answers per JSON-RPC method
func newTestClient(t *testing.T, handlers map[string]func(params json.RawMessage) (any, *rpcError)) (*Client, func()) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64           `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		handler, ok := handlers[req.Method]
		if !ok {
			http.Error(w, "unexpected method "+req.Method, http.StatusBadRequest)
			return
		}

		result, rpcErr := handler(req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = map[string]any{"code": rpcErr.Code, "message": rpcErr.Message}
		} else {
			resp["result"] = result
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))

	client, err := NewClient(ClientConfig{Endpoint: server.URL})
	if err != nil {
		server.Close()
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, server.Close
}

func testContract(fill byte) casper.Identifier {
	id := casper.Identifier{Tag: casper.TagContract}
	for i := range id.Hash {
		id.Hash[i] = fill
	}
	return id
}

func TestStateRootHash(t *testing.T) {
	client, done := newTestClient(t, map[string]func(json.RawMessage) (any, *rpcError){
		"chain_get_state_root_hash": func(json.RawMessage) (any, *rpcError) {
			return map[string]string{"state_root_hash": "abc123"}, nil
		},
	})
	defer done()

	root, err := client.StateRootHash(context.Background())
	if err != nil {
		t.Fatalf("StateRootHash failed: %v", err)
	}
	if root != "abc123" {
		t.Errorf("root = %q", root)
	}
}

func TestDictionaryItemDecodesCLValue(t *testing.T) {
	want := testContract(0x55)

	client, done := newTestClient(t, map[string]func(json.RawMessage) (any, *rpcError){
		"state_get_dictionary_item": func(params json.RawMessage) (any, *rpcError) {
			var p struct {
				DictionaryIdentifier struct {
					ContractNamedKey struct {
						DictionaryName string `json:"dictionary_name"`
					} `json:"ContractNamedKey"`
				} `json:"dictionary_identifier"`
			}
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, &rpcError{Code: -32602, Message: err.Error()}
			}
			if p.DictionaryIdentifier.ContractNamedKey.DictionaryName != StateDictionaryName {
				return nil, &rpcError{Code: -32602, Message: "wrong dictionary"}
			}
			return map[string]any{
				"stored_value": map[string]any{
					"CLValue": map[string]any{
						"cl_type": "Key",
						"bytes":   hex.EncodeToString(want.Encode()),
					},
				},
			}, nil
		},
	})
	defer done()

	v, err := client.DictionaryItem(context.Background(), "root", testContract(0x01), "00ff")
	if err != nil {
		t.Fatalf("DictionaryItem failed: %v", err)
	}
	if v.Type != casper.CLTypeKey {
		t.Errorf("type = %s, want Key", v.Type)
	}

	got, err := casper.DecodeAmbiguousIdentifier(v)
	if err != nil || !got.Equal(want) {
		t.Errorf("decoded %v, %v", got, err)
	}
}

func TestDictionaryItemNotFound(t *testing.T) {
	client, done := newTestClient(t, map[string]func(json.RawMessage) (any, *rpcError){
		"state_get_dictionary_item": func(json.RawMessage) (any, *rpcError) {
			return nil, &rpcError{Code: -32003, Message: "state query failed: ValueNotFound"}
		},
	})
	defer done()

	_, err := client.DictionaryItem(context.Background(), "root", testContract(0x01), "00ff")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeployStatusVariants(t *testing.T) {
	tests := []struct {
		name        string
		result      any
		rpcErr      *rpcError
		wantState   DeployState
		wantMessage string
	}{
		{
			name:      "no execution results yet",
			result:    map[string]any{"execution_results": []any{}},
			wantState: DeployPending,
		},
		{
			name: "success marker",
			result: map[string]any{"execution_results": []any{
				map[string]any{"result": map[string]any{"Success": map[string]any{"cost": "100"}}},
			}},
			wantState: DeploySucceeded,
		},
		{
			name: "failure with message",
			result: map[string]any{"execution_results": []any{
				map[string]any{"result": map[string]any{"Failure": map[string]any{"error_message": "User error: 6"}}},
			}},
			wantState:   DeployFailed,
			wantMessage: "User error: 6",
		},
		{
			name:      "deploy unknown to node",
			rpcErr:    &rpcError{Code: -32003, Message: "deploy not found"},
			wantState: DeployPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, done := newTestClient(t, map[string]func(json.RawMessage) (any, *rpcError){
				"info_get_deploy": func(json.RawMessage) (any, *rpcError) {
					return tt.result, tt.rpcErr
				},
			})
			defer done()

			status, err := client.DeployStatus(context.Background(), "deadbeef")
			if err != nil {
				t.Fatalf("DeployStatus failed: %v", err)
			}
			if status.State != tt.wantState {
				t.Errorf("state = %d, want %d", status.State, tt.wantState)
			}
			if status.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", status.Message, tt.wantMessage)
			}
		})
	}
}

func TestSubmitReturnsDeployHash(t *testing.T) {
	client, done := newTestClient(t, map[string]func(json.RawMessage) (any, *rpcError){
		"account_put_deploy": func(json.RawMessage) (any, *rpcError) {
			return map[string]string{"deploy_hash": "feedface"}, nil
		},
	})
	defer done()

	hash, err := client.Submit(context.Background(), json.RawMessage(`{"header":{}}`))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if hash != "feedface" {
		t.Errorf("hash = %q", hash)
	}
}

func TestAccountNamedKeysSkipsURefs(t *testing.T) {
	pkg := testContract(0x77)

	client, done := newTestClient(t, map[string]func(json.RawMessage) (any, *rpcError){
		"query_global_state": func(json.RawMessage) (any, *rpcError) {
			return map[string]any{
				"stored_value": map[string]any{
					"Account": map[string]any{
						"account_hash": "account-hash-00",
						"named_keys": []any{
							map[string]string{"name": "router_package_hash", "key": "hash-" + pkg.HexHash()},
							map[string]string{"name": "some_uref", "key": "uref-0011-007"},
						},
					},
				},
			}, nil
		},
	})
	defer done()

	keys, err := client.AccountNamedKeys(context.Background(), "root", casper.Identifier{Tag: casper.TagAccount})
	if err != nil {
		t.Fatalf("AccountNamedKeys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("got %d keys, want 1 (urefs skipped)", len(keys))
	}
	if got := keys["router_package_hash"]; !got.Equal(pkg) {
		t.Errorf("named key = %v, want %v", got, pkg)
	}
}

func TestClTypeFromJSON(t *testing.T) {
	tests := []struct {
		raw  string
		want casper.CLType
	}{
		{`"Key"`, casper.CLTypeKey},
		{`"U256"`, casper.CLTypeU256},
		{`{"List":"U8"}`, casper.CLTypeByteList},
		{`{"Option":"U64"}`, casper.CLTypeAny},
		{`{"Map":{"key":"String","value":"U8"}}`, casper.CLTypeAny},
	}

	for _, tt := range tests {
		if got := clTypeFromJSON(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("clTypeFromJSON(%s) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}
