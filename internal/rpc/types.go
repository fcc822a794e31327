package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"dexops/internal/casper"
)

// ErrNotFound is the sentinel for a lookup that reached the node but found
// no value at the requested key. Absence is an expected signal (an
// uninitialized optional, a mapping key never written, a contract not yet
// deployed), so callers match it with errors.Is rather than failing.
var ErrNotFound = errors.New("value not found")

// request is a JSON-RPC 2.0 request envelope
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// response is a JSON-RPC 2.0 response envelope
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// The node reports missing values with a dedicated code, but some proxies
// flatten it into the message text; check both.
const codeValueNotFound = -32003

func (e *rpcError) isNotFound() bool {
	if e.Code == codeValueNotFound {
		return true
	}
	msg := strings.ToLower(e.Message + " " + e.Data)
	return strings.Contains(msg, "valuenotfound") || strings.Contains(msg, "value not found") ||
		strings.Contains(msg, "dictionary item not found")
}

// clValueJSON is the wire form of a typed stored value
type clValueJSON struct {
	CLType json.RawMessage `json:"cl_type"`
	Bytes  string          `json:"bytes"`
	Parsed json.RawMessage `json:"parsed,omitempty"`
}

// storedValueJSON wraps the variants a state query can return
type storedValueJSON struct {
	CLValue         *clValueJSON         `json:"CLValue,omitempty"`
	Account         *accountJSON         `json:"Account,omitempty"`
	ContractPackage *contractPackageJSON `json:"ContractPackage,omitempty"`
}

type namedKeyJSON struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

type accountJSON struct {
	AccountHash string         `json:"account_hash"`
	NamedKeys   []namedKeyJSON `json:"named_keys"`
}

type contractVersionJSON struct {
	ContractHash         string `json:"contract_hash"`
	ContractVersion      uint32 `json:"contract_version"`
	ProtocolVersionMajor uint32 `json:"protocol_version_major"`
}

type contractPackageJSON struct {
	Versions []contractVersionJSON `json:"versions"`
}

// ContractVersion is one installed version inside a contract package
type ContractVersion struct {
	ContractHash casper.Identifier
	Version      uint32
}

// ContractPackage is the versioned container a package reference points at
type ContractPackage struct {
	Versions []ContractVersion
}

// clTypeFromJSON normalizes the node's cl_type field, which is either a bare
// string ("Key", "U256") or an object for parametrized types ({"List":"U8"}).
func clTypeFromJSON(raw json.RawMessage) casper.CLType {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return casper.CLType(s)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if inner, ok := obj["List"]; ok {
			var elem string
			if err := json.Unmarshal(inner, &elem); err == nil && elem == "U8" {
				return casper.CLTypeByteList
			}
		}
		if _, ok := obj["Option"]; ok {
			return casper.CLTypeAny
		}
	}

	return casper.CLTypeAny
}
