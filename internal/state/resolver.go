// Package state resolves a contract's logical fields to decoded values:
// derive the storage key, look it up against a pinned state root, decode per
// the field's declared type. Reads are pure functions of (root, contract,
// key); the resolver holds no cache and never retries on its own.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"dexops/internal/casper"
	"dexops/internal/rpc"
	"dexops/internal/schema"
)

// ErrNoActiveVersion is returned when a package's version list is empty
var ErrNoActiveVersion = errors.New("contract package has no active version")

// NodeClient is the key-value lookup surface of the node the resolver needs.
// *rpc.Client satisfies it; tests supply fakes.
type NodeClient interface {
	StateRootHash(ctx context.Context) (string, error)
	DictionaryItem(ctx context.Context, stateRoot string, contract casper.Identifier, itemKey string) (casper.CLValue, error)
	ContractPackage(ctx context.Context, stateRoot string, pkg casper.Identifier) (rpc.ContractPackage, error)
	AccountNamedKeys(ctx context.Context, stateRoot string, account casper.Identifier) (map[string]casper.Identifier, error)
}

// ContractRef pins one contract instance to one state root. Every read
// through the same ref observes the same snapshot; multi-field reads that
// must be consistent (token0/token1/reserve0/reserve1 of one pair) go
// through a single ref.
type ContractRef struct {
	Contract  casper.Identifier
	StateRoot string
}

// Resolver reads decoded contract state through a NodeClient
type Resolver struct {
	client NodeClient
}

// NewResolver creates a Resolver on top of a node client
func NewResolver(client NodeClient) *Resolver {
	return &Resolver{client: client}
}

// Snapshot pins the current state root for a contract. Use one snapshot for
// all reads that must observe a consistent state.
func (r *Resolver) Snapshot(ctx context.Context, contract casper.Identifier) (ContractRef, error) {
	root, err := r.client.StateRootHash(ctx)
	if err != nil {
		return ContractRef{}, fmt.Errorf("pin state root: %w", err)
	}
	return ContractRef{Contract: contract, StateRoot: root}, nil
}

// At builds a ref against a caller-supplied root, for callers that already
// hold a snapshot and are adding contracts to it.
func (r *Resolver) At(contract casper.Identifier, stateRoot string) ContractRef {
	return ContractRef{Contract: contract, StateRoot: stateRoot}
}

// ResolveActiveContract resolves a package reference to its currently active
// contract instance: the version-list entry with the highest version number.
func (r *Resolver) ResolveActiveContract(ctx context.Context, pkg casper.Identifier) (casper.Identifier, error) {
	root, err := r.client.StateRootHash(ctx)
	if err != nil {
		return casper.Identifier{}, fmt.Errorf("resolve package %s: %w", pkg, err)
	}
	return r.ResolveActiveContractAt(ctx, pkg, root)
}

// ResolveActiveContractAt is ResolveActiveContract against a pinned root
func (r *Resolver) ResolveActiveContractAt(ctx context.Context, pkg casper.Identifier, stateRoot string) (casper.Identifier, error) {
	meta, err := r.client.ContractPackage(ctx, stateRoot, pkg)
	if err != nil {
		return casper.Identifier{}, fmt.Errorf("resolve package %s: %w", pkg, err)
	}
	if len(meta.Versions) == 0 {
		return casper.Identifier{}, fmt.Errorf("package %s: %w", pkg, ErrNoActiveVersion)
	}

	active := meta.Versions[0]
	for _, v := range meta.Versions[1:] {
		if v.Version > active.Version {
			active = v
		}
	}

	slog.Debug("Resolved active contract version",
		"package", pkg.String(),
		"contract", active.ContractHash.String(),
		"version", active.Version,
	)
	return active.ContractHash, nil
}

// Read fetches the raw typed value of one field. For mapping fields the
// serialized lookup key must be supplied; for plain fields it must not.
// A missing dictionary entry surfaces as rpc.ErrNotFound: absence, not
// failure, and the expected signal for a field never written.
func (r *Resolver) Read(ctx context.Context, ref ContractRef, field schema.Field, lookupKey []byte) (casper.CLValue, error) {
	var key casper.StorageKey
	switch field.Kind {
	case schema.Mapping:
		if lookupKey == nil {
			return casper.CLValue{}, fmt.Errorf("field %s: mapping read requires a lookup key", field.Name)
		}
		key = casper.MappingKey(field.Index, lookupKey)
	default:
		if lookupKey != nil {
			return casper.CLValue{}, fmt.Errorf("field %s: plain read takes no lookup key", field.Name)
		}
		key = casper.PlainKey(field.Index)
	}

	v, err := r.client.DictionaryItem(ctx, ref.StateRoot, ref.Contract, key.Hex())
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return casper.CLValue{}, fmt.Errorf("field %s: %w", field.Name, rpc.ErrNotFound)
		}
		return casper.CLValue{}, fmt.Errorf("field %s: %w", field.Name, err)
	}
	return v, nil
}

// ReadUint reads and decodes an arbitrary-precision unsigned field
func (r *Resolver) ReadUint(ctx context.Context, ref ContractRef, field schema.Field, lookupKey []byte) (*big.Int, error) {
	v, err := r.Read(ctx, ref, field, lookupKey)
	if err != nil {
		return nil, err
	}
	switch v.Type {
	case casper.CLTypeU256, casper.CLTypeU512:
		// dictionary values of big-number type arrive length-prefixed
		u, err := casper.DecodeBigNum(v.Bytes)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		return u, nil
	default:
		return casper.DecodeUint(v.Bytes), nil
	}
}

// ReadIdentifier reads and decodes an identifier field, accepting either
// wire shape the node produces for it.
func (r *Resolver) ReadIdentifier(ctx context.Context, ref ContractRef, field schema.Field, lookupKey []byte) (casper.Identifier, error) {
	v, err := r.Read(ctx, ref, field, lookupKey)
	if err != nil {
		return casper.Identifier{}, err
	}
	id, err := casper.DecodeAmbiguousIdentifier(v)
	if err != nil {
		return casper.Identifier{}, fmt.Errorf("field %s: %w", field.Name, err)
	}
	return id, nil
}

// ReadU64 reads a fixed-width u64 field
func (r *Resolver) ReadU64(ctx context.Context, ref ContractRef, field schema.Field) (uint64, error) {
	v, err := r.Read(ctx, ref, field, nil)
	if err != nil {
		return 0, err
	}
	u, err := casper.DecodeU64(v.Bytes)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", field.Name, err)
	}
	return u, nil
}

// ReadU32 reads a fixed-width u32 field
func (r *Resolver) ReadU32(ctx context.Context, ref ContractRef, field schema.Field) (uint32, error) {
	v, err := r.Read(ctx, ref, field, nil)
	if err != nil {
		return 0, err
	}
	u, err := casper.DecodeU32(v.Bytes)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", field.Name, err)
	}
	return u, nil
}

// ReadBool reads a boolean field
func (r *Resolver) ReadBool(ctx context.Context, ref ContractRef, field schema.Field) (bool, error) {
	v, err := r.Read(ctx, ref, field, nil)
	if err != nil {
		return false, err
	}
	b, err := casper.DecodeBool(v.Bytes)
	if err != nil {
		return false, fmt.Errorf("field %s: %w", field.Name, err)
	}
	return b, nil
}

// ReadBytes reads a raw byte field (packed event records)
func (r *Resolver) ReadBytes(ctx context.Context, ref ContractRef, field schema.Field, lookupKey []byte) ([]byte, error) {
	v, err := r.Read(ctx, ref, field, lookupKey)
	if err != nil {
		return nil, err
	}
	raw := v.Bytes
	// byte-list values carry a u32 length prefix
	if v.Type == casper.CLTypeByteList && len(raw) >= 4 {
		n, err := casper.DecodeU32(raw[:4])
		if err == nil && int(n) == len(raw)-4 {
			raw = raw[4:]
		}
	}
	return raw, nil
}

// AccountNamedKeys exposes the account named-reference lookup at a pinned
// root, for deployment idempotency probes.
func (r *Resolver) AccountNamedKeys(ctx context.Context, stateRoot string, account casper.Identifier) (map[string]casper.Identifier, error) {
	return r.client.AccountNamedKeys(ctx, stateRoot, account)
}

// CurrentRoot returns the node's current state root
func (r *Resolver) CurrentRoot(ctx context.Context) (string, error) {
	return r.client.StateRootHash(ctx)
}
